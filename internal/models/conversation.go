// Package models defines data structures shared across the bot.
package models

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn represents a single role-tagged message within a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
