package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betaione/telegram-bind/internal/domain"
)

const testSchema = `
	CREATE TABLE bind_tokens (
		id               TEXT PRIMARY KEY,
		token            TEXT NOT NULL UNIQUE,
		state            TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		telegram_chat_id TEXT NOT NULL,
		telegram_user_id TEXT NOT NULL,
		expires_at       TIMESTAMP NOT NULL,
		used             BOOLEAN NOT NULL DEFAULT FALSE,
		created_at       TIMESTAMP NOT NULL
	);

	CREATE TABLE telegram_bindings (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		telegram_chat_id TEXT NOT NULL UNIQUE,
		telegram_user_id TEXT NOT NULL,
		created_at       TIMESTAMP NOT NULL,
		updated_at       TIMESTAMP NOT NULL
	);
`

func newTestRepo(t *testing.T) BindRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// A second connection would see its own empty in-memory database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewBindRepository(db, log)
}

func newToken(userID, secret string, expiresAt time.Time) *domain.BindToken {
	return &domain.BindToken{
		ID:             "tok-" + secret,
		Token:          secret,
		State:          "state-" + secret,
		UserID:         userID,
		TelegramChatID: "456",
		TelegramUserID: "123",
		ExpiresAt:      expiresAt,
		CreatedAt:      expiresAt.Add(-10 * time.Minute),
	}
}

func TestCreateAndFindToken(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)

	require.NoError(t, repo.CreateToken(ctx, newToken("U1", "secret-a", expires)))

	found, err := repo.FindTokenBySecret(ctx, "secret-a")
	require.NoError(t, err)

	assert.Equal(t, "tok-secret-a", found.ID)
	assert.Equal(t, "U1", found.UserID)
	assert.Equal(t, "456", found.TelegramChatID)
	assert.Equal(t, "123", found.TelegramUserID)
	assert.False(t, found.Used)
	assert.True(t, expires.Equal(found.ExpiresAt.UTC()), "expires_at must round-trip")
}

func TestFindTokenBySecret_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindTokenBySecret(context.Background(), "missing")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestDeleteUnusedTokens(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(10 * time.Minute)

	require.NoError(t, repo.CreateToken(ctx, newToken("U1", "mine-a", expires)))
	require.NoError(t, repo.CreateToken(ctx, newToken("U1", "mine-b", expires)))
	require.NoError(t, repo.CreateToken(ctx, newToken("U2", "theirs", expires)))

	require.NoError(t, repo.DeleteUnusedTokens(ctx, "U1"))

	_, err := repo.FindTokenBySecret(ctx, "mine-a")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = repo.FindTokenBySecret(ctx, "mine-b")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// Other users' tokens survive.
	_, err = repo.FindTokenBySecret(ctx, "theirs")
	require.NoError(t, err)
}

func TestConfirmToken_CreatesBindingAndConsumesToken(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	token := newToken("U1", "secret-a", now.Add(10*time.Minute))
	require.NoError(t, repo.CreateToken(ctx, token))

	binding, err := repo.ConfirmToken(ctx, token, now)
	require.NoError(t, err)

	assert.Equal(t, "U1", binding.UserID)
	assert.Equal(t, "456", binding.TelegramChatID)

	stored, err := repo.FindBindingByChatID(ctx, "456")
	require.NoError(t, err)
	assert.Equal(t, binding.ID, stored.ID)
	assert.Equal(t, "U1", stored.UserID)

	// The consumed token is invisible to further lookups.
	_, err = repo.FindTokenBySecret(ctx, "secret-a")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConfirmToken_SecondUseFails(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	token := newToken("U1", "secret-a", now.Add(10*time.Minute))
	require.NoError(t, repo.CreateToken(ctx, token))

	_, err := repo.ConfirmToken(ctx, token, now)
	require.NoError(t, err)

	_, err = repo.ConfirmToken(ctx, token, now)
	require.ErrorIs(t, err, ErrTokenConsumed)

	// The losing attempt must not have touched the binding.
	binding, err := repo.FindBindingByChatID(ctx, "456")
	require.NoError(t, err)
	assert.Equal(t, "U1", binding.UserID)
}

func TestConfirmToken_RebindKeepsSingleRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	first := newToken("U1", "secret-a", now.Add(10*time.Minute))
	require.NoError(t, repo.CreateToken(ctx, first))
	_, err := repo.ConfirmToken(ctx, first, now)
	require.NoError(t, err)

	later := now.Add(time.Minute)
	second := newToken("U2", "secret-b", later.Add(10*time.Minute))
	require.NoError(t, repo.CreateToken(ctx, second))
	_, err = repo.ConfirmToken(ctx, second, later)
	require.NoError(t, err)

	binding, err := repo.FindBindingByChatID(ctx, "456")
	require.NoError(t, err)
	assert.Equal(t, "U2", binding.UserID, "rebinding hands the chat to the newer user")
	assert.True(t, now.Equal(binding.CreatedAt.UTC()), "created_at survives the rebind")
	assert.True(t, later.Equal(binding.UpdatedAt.UTC()))
}

func TestFindBindingByChatID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindBindingByChatID(context.Background(), "456")
	require.ErrorIs(t, err, ErrBindingNotFound)
}

func TestDeleteStaleTokens(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	used := newToken("U1", "used", now.Add(10*time.Minute))
	require.NoError(t, repo.CreateToken(ctx, used))
	_, err := repo.ConfirmToken(ctx, used, now)
	require.NoError(t, err)

	expired := newToken("U2", "expired", now.Add(-time.Hour))
	require.NoError(t, repo.CreateToken(ctx, expired))

	live := newToken("U3", "live", now.Add(10*time.Minute))
	require.NoError(t, repo.CreateToken(ctx, live))

	deleted, err := repo.DeleteStaleTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.FindTokenBySecret(ctx, "live")
	require.NoError(t, err)
}

func TestDeleteStaleTokens_Many(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 25; i++ {
		tok := newToken(fmt.Sprintf("U%d", i), fmt.Sprintf("old-%d", i), now.Add(-time.Hour))
		require.NoError(t, repo.CreateToken(ctx, tok))
	}

	deleted, err := repo.DeleteStaleTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(25), deleted)
}
