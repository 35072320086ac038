package models

import "time"

// Roles stored with conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is a single message exchanged in a chat. Turns are
// append-only and retrievable in creation order within a chat; the
// assistant turn of an exchange carries the triggering message id + 1.
type ConversationTurn struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	MessageID int64     `json:"message_id" db:"message_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
