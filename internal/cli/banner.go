package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme holds the color scheme for the startup banner.
type Theme struct {
	Title lipgloss.Color
	Key   lipgloss.Color
	Value lipgloss.Color
	Hint  lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Title: lipgloss.Color("#00D787"), // green
	Key:   lipgloss.Color("#5FAFD7"), // light blue
	Value: lipgloss.Color("#FFFFFF"),
	Hint:  lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) keyStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Key).Width(12)
}

func (t Theme) valueStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Value)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// bannerField is one labelled line of the banner.
type bannerField struct {
	key   string
	value string
}

// banner describes the running bot.
type banner struct {
	version string
	fields  []bannerField
}

// render returns the banner text, styled when styled is true.
func (b banner) render(styled bool, theme Theme) string {
	var sb strings.Builder
	title := fmt.Sprintf("llm-tg-bot %s", b.version)
	hint := "Press Ctrl+C to stop"

	if !styled {
		sb.WriteString(title + "\n")
		for _, f := range b.fields {
			fmt.Fprintf(&sb, "  %-12s%s\n", f.key, f.value)
		}
		sb.WriteString(hint + "\n")
		return sb.String()
	}

	sb.WriteString(theme.titleStyle().Render("● "+title) + "\n")
	for _, f := range b.fields {
		sb.WriteString("  " + theme.keyStyle().Render(f.key) + theme.valueStyle().Render(f.value) + "\n")
	}
	sb.WriteString(theme.hintStyle().Render(hint) + "\n")
	return sb.String()
}

// printBanner writes the banner to w, styled only when w is a terminal.
func printBanner(w io.Writer, b banner) {
	_, _ = io.WriteString(w, b.render(isTerminal(w), defaultTheme))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
