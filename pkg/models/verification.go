package models

import "time"

// VerificationRecord binds a Telegram chat to a verified student email.
// At most one record per chat and at most one per email; once verified
// the binding is never changed for that chat.
type VerificationRecord struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	Email     string    `json:"email" db:"email"`
	Verified  bool      `json:"verified" db:"verified"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
