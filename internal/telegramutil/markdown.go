// Package telegramutil holds helpers for formatting Telegram messages.
package telegramutil

import "strings"

// UnknownValue replaces missing values in formatted output.
const UnknownValue = "Unknown"

// markdownReserved lists the reserved characters; all are ASCII.
const markdownReserved = "_*[]()~`>#+=|{}.!-"

// EscapeMarkdown prefixes every Markdown-reserved character in text with a
// backslash. Empty text yields UnknownValue. All other bytes, including
// invalid UTF-8, pass through unchanged. Escaping is not idempotent, so each
// raw value must be escaped exactly once.
func EscapeMarkdown(text string) string {
	if text == "" {
		return UnknownValue
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if strings.IndexByte(markdownReserved, c) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}
