package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/example/edubot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendTurn(t *testing.T, repo *HistoryRepository, chatID, messageID int64, role, content string) int64 {
	t.Helper()
	id, err := repo.Append(context.Background(), &models.ConversationTurn{
		ChatID:    chatID,
		MessageID: messageID,
		UserID:    7,
		Role:      role,
		Content:   content,
	})
	require.NoError(t, err)
	return id
}

func TestAppendReturnsMonotonicIDs(t *testing.T) {
	repo := NewHistoryRepository(testDB(t))

	var last int64
	for i := 0; i < 5; i++ {
		id := appendTurn(t, repo, 1, int64(i), models.RoleUser, fmt.Sprintf("msg %d", i))
		assert.Greater(t, id, last)
		last = id
	}
}

func TestTailReturnsLastNInAppendOrder(t *testing.T) {
	repo := NewHistoryRepository(testDB(t))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		appendTurn(t, repo, 1, int64(i), role, fmt.Sprintf("turn %d", i))
	}

	turns, err := repo.Tail(ctx, 1, 4)
	require.NoError(t, err)
	require.Len(t, turns, 4)

	// Oldest first, and exactly the last four
	for i, turn := range turns {
		assert.Equal(t, fmt.Sprintf("turn %d", 6+i), turn.Content)
	}

	// Asking for more than exists returns everything, still ordered
	all, err := repo.Tail(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, all, 10)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].ID, all[i-1].ID)
	}

	// n <= 0 yields nothing
	none, err := repo.Tail(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTailIsolatesChats(t *testing.T) {
	repo := NewHistoryRepository(testDB(t))
	ctx := context.Background()

	appendTurn(t, repo, 1, 1, models.RoleUser, "chat one a")
	appendTurn(t, repo, 2, 1, models.RoleUser, "chat two a")
	appendTurn(t, repo, 1, 2, models.RoleAssistant, "chat one b")
	appendTurn(t, repo, 2, 2, models.RoleAssistant, "chat two b")

	turns, err := repo.Tail(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "chat one a", turns[0].Content)
	assert.Equal(t, "chat one b", turns[1].Content)

	count, err := repo.CountByChat(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
