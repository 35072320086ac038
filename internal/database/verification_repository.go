package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/edubot/pkg/models"
)

// Verification errors surfaced to the dialog layer.
var (
	// ErrAlreadyVerified means the chat already holds a verified binding.
	ErrAlreadyVerified = errors.New("chat is already verified")
	// ErrIdentityTaken means the email is bound to a different chat.
	ErrIdentityTaken = errors.New("email is already bound to another chat")
)

// VerificationRepository handles database operations for chat-email bindings
type VerificationRepository struct {
	db *DB
}

// NewVerificationRepository creates a new repository instance
func NewVerificationRepository(db *DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Bind creates a verified binding between a chat and an email. The write
// is durable before Bind returns. Uniqueness in both directions is
// enforced by the table constraints, so a losing racer gets a clean
// sentinel error instead of corrupting state.
func (r *VerificationRepository) Bind(ctx context.Context, chatID int64, email string) (*models.VerificationRecord, error) {
	email = models.NormalizeEmail(email)

	if existing, err := r.GetByChat(ctx, chatID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrAlreadyVerified
	}

	if existing, err := r.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil && existing.ChatID != chatID {
		return nil, ErrIdentityTaken
	}

	query := r.db.Rebind(`INSERT INTO users (chat_id, email, verified) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, chatID, email, true); err != nil {
		// A constraint violation here means we lost a race with another
		// bind; re-read to report which invariant was hit.
		if existing, lookupErr := r.GetByChat(ctx, chatID); lookupErr == nil && existing != nil {
			return nil, ErrAlreadyVerified
		}
		if existing, lookupErr := r.GetByEmail(ctx, email); lookupErr == nil && existing != nil {
			return nil, ErrIdentityTaken
		}
		return nil, fmt.Errorf("failed to bind chat %d: %v", chatID, err)
	}

	return r.GetByChat(ctx, chatID)
}

// GetByChat returns the binding for a chat, or nil if the chat is unknown.
func (r *VerificationRepository) GetByChat(ctx context.Context, chatID int64) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	query := r.db.Rebind(`
		SELECT id, chat_id, email, verified, created_at, updated_at
		FROM users WHERE chat_id = ?
	`)
	err := r.db.GetContext(ctx, &rec, query, chatID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get binding by chat: %v", err)
	}
	return &rec, nil
}

// GetByEmail returns the binding for a normalized email, or nil.
func (r *VerificationRepository) GetByEmail(ctx context.Context, email string) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	query := r.db.Rebind(`
		SELECT id, chat_id, email, verified, created_at, updated_at
		FROM users WHERE email = ?
	`)
	err := r.db.GetContext(ctx, &rec, query, models.NormalizeEmail(email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get binding by email: %v", err)
	}
	return &rec, nil
}

// IsVerified reports whether the chat holds a verified binding.
func (r *VerificationRepository) IsVerified(ctx context.Context, chatID int64) (bool, error) {
	rec, err := r.GetByChat(ctx, chatID)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Verified, nil
}

// GetAllVerified returns every verified binding, used when fanning out
// progress notifications.
func (r *VerificationRepository) GetAllVerified(ctx context.Context) ([]models.VerificationRecord, error) {
	var recs []models.VerificationRecord
	query := `
		SELECT id, chat_id, email, verified, created_at, updated_at
		FROM users WHERE verified ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("failed to get verified bindings: %v", err)
	}
	return recs, nil
}
