package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBindAndLookup(t *testing.T) {
	repo := NewVerificationRepository(testDB(t))
	ctx := context.Background()

	rec, err := repo.Bind(ctx, 100, " Student@X.com ")
	require.NoError(t, err)
	assert.Equal(t, int64(100), rec.ChatID)
	assert.Equal(t, "student@x.com", rec.Email, "email must be normalized before storage")
	assert.True(t, rec.Verified)

	byChat, err := repo.GetByChat(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, byChat)
	assert.Equal(t, rec.Email, byChat.Email)

	byEmail, err := repo.GetByEmail(ctx, "STUDENT@x.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, int64(100), byEmail.ChatID)

	verified, err := repo.IsVerified(ctx, 100)
	require.NoError(t, err)
	assert.True(t, verified)

	verified, err = repo.IsVerified(ctx, 200)
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestBindRejectsSecondVerification(t *testing.T) {
	repo := NewVerificationRepository(testDB(t))
	ctx := context.Background()

	_, err := repo.Bind(ctx, 100, "a@x.com")
	require.NoError(t, err)

	// Same chat, any email: the binding is immutable
	_, err = repo.Bind(ctx, 100, "b@x.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	_, err = repo.Bind(ctx, 100, "a@x.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestBindRejectsTakenIdentity(t *testing.T) {
	repo := NewVerificationRepository(testDB(t))
	ctx := context.Background()

	_, err := repo.Bind(ctx, 100, "a@x.com")
	require.NoError(t, err)

	_, err = repo.Bind(ctx, 200, "A@X.com")
	assert.ErrorIs(t, err, ErrIdentityTaken)

	// The loser holds no binding
	rec, err := repo.GetByChat(ctx, 200)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestBindRaceForSameIdentity(t *testing.T) {
	repo := NewVerificationRepository(testDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Bind(ctx, int64(100+i), "raced@x.com")
		}(i)
	}
	wg.Wait()

	var succeeded, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrIdentityTaken):
			taken++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one bind must win")
	assert.Equal(t, 1, taken, "the loser must get a clean IdentityTaken")

	rec, err := repo.GetByEmail(ctx, "raced@x.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestGetAllVerified(t *testing.T) {
	repo := NewVerificationRepository(testDB(t))
	ctx := context.Background()

	emails := []string{"a@x.com", "b@x.com", "c@x.com"}
	for i, email := range emails {
		_, err := repo.Bind(ctx, int64(100+i), email)
		require.NoError(t, err)
	}

	recs, err := repo.GetAllVerified(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, emails[i], rec.Email)
	}
}
