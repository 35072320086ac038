package database

import (
	"context"
	"fmt"

	"github.com/example/edubot/pkg/models"
)

// HistoryRepository handles database operations for conversation turns
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new repository instance
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append stores one conversation turn and returns its id. The row is
// durable before Append returns; turns are never updated or deleted.
func (r *HistoryRepository) Append(ctx context.Context, turn *models.ConversationTurn) (int64, error) {
	if r.db.DriverName() == "postgres" {
		query := `
			INSERT INTO messages (chat_id, message_id, user_id, role, content)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		var id int64
		err := r.db.QueryRowContext(ctx, query,
			turn.ChatID, turn.MessageID, turn.UserID, turn.Role, turn.Content,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to append turn: %v", err)
		}
		return id, nil
	}

	// SQLite doesn't support RETURNING in this driver version
	query := `
		INSERT INTO messages (chat_id, message_id, user_id, role, content)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		turn.ChatID, turn.MessageID, turn.UserID, turn.Role, turn.Content,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append turn: %v", err)
	}
	return result.LastInsertId()
}

// Tail returns the last n turns of a chat, oldest first. Other chats'
// appends never affect the result.
func (r *HistoryRepository) Tail(ctx context.Context, chatID int64, n int) ([]models.ConversationTurn, error) {
	if n <= 0 {
		return nil, nil
	}

	query := r.db.Rebind(`
		SELECT id, chat_id, message_id, user_id, role, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY id DESC
		LIMIT ?
	`)

	var turns []models.ConversationTurn
	if err := r.db.SelectContext(ctx, &turns, query, chatID, n); err != nil {
		return nil, fmt.Errorf("failed to get chat history: %v", err)
	}

	// Newest-first from the query, reverse into append order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CountByChat returns the number of stored turns for a chat.
func (r *HistoryRepository) CountByChat(ctx context.Context, chatID int64) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM messages WHERE chat_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, chatID); err != nil {
		return 0, fmt.Errorf("failed to count turns: %v", err)
	}
	return count, nil
}
