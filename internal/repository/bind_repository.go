// Package repository defines persistence operations for bind tokens and
// telegram bindings.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/betaione/telegram-bind/internal/domain"
)

var (
	// ErrTokenNotFound indicates no unused bind token matches the secret.
	ErrTokenNotFound = errors.New("bind token not found")

	// ErrTokenConsumed indicates the token lost the race on the used flag:
	// another confirmation marked it used first.
	ErrTokenConsumed = errors.New("bind token already consumed")

	// ErrBindingNotFound indicates no binding exists for the chat.
	ErrBindingNotFound = errors.New("telegram binding not found")
)

// BindRepository defines persistence operations for the bind protocol.
type BindRepository interface {
	// DeleteUnusedTokens removes all unused tokens owned by the user so at
	// most one live token per user exists after the next insert.
	DeleteUnusedTokens(ctx context.Context, userID string) error
	// CreateToken persists a freshly minted bind token.
	CreateToken(ctx context.Context, token *domain.BindToken) error
	// FindTokenBySecret loads the unused token matching the secret value.
	FindTokenBySecret(ctx context.Context, secret string) (*domain.BindToken, error)
	// ConfirmToken atomically upserts the binding for the token's chat and
	// marks the token used. The used-flag update is guarded by used = false,
	// so of two racing confirmations exactly one succeeds.
	ConfirmToken(ctx context.Context, token *domain.BindToken, now time.Time) (*domain.TelegramBinding, error)
	// FindBindingByChatID loads the binding for a telegram chat.
	FindBindingByChatID(ctx context.Context, chatID string) (*domain.TelegramBinding, error)
	// DeleteStaleTokens removes used tokens and tokens expired before cutoff,
	// returning the number of rows removed.
	DeleteStaleTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

type bindRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewBindRepository creates a new SQL-backed bind repository.
func NewBindRepository(db *sql.DB, log *slog.Logger) BindRepository {
	return &bindRepository{
		db:  db,
		log: log,
	}
}

func (r *bindRepository) DeleteUnusedTokens(ctx context.Context, userID string) error {
	const query = `
		DELETE FROM bind_tokens
		WHERE user_id = $1 AND used = FALSE
	`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		if r.log != nil {
			r.log.Error("failed to delete unused bind tokens", slog.String("user_id", userID), slog.Any("error", err))
		}
		return fmt.Errorf("delete unused bind tokens: %w", err)
	}

	return nil
}

func (r *bindRepository) CreateToken(ctx context.Context, token *domain.BindToken) error {
	const query = `
		INSERT INTO bind_tokens (id, token, state, user_id, telegram_chat_id, telegram_user_id, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		token.ID,
		token.Token,
		token.State,
		token.UserID,
		token.TelegramChatID,
		token.TelegramUserID,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to create bind token", slog.String("user_id", token.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert bind token: %w", err)
	}

	return nil
}

func (r *bindRepository) FindTokenBySecret(ctx context.Context, secret string) (*domain.BindToken, error) {
	const query = `
		SELECT id, token, state, user_id, telegram_chat_id, telegram_user_id, expires_at, used, created_at
		FROM bind_tokens
		WHERE token = $1 AND used = FALSE
	`

	row := r.db.QueryRowContext(ctx, query, secret)

	var token domain.BindToken
	if err := row.Scan(
		&token.ID,
		&token.Token,
		&token.State,
		&token.UserID,
		&token.TelegramChatID,
		&token.TelegramUserID,
		&token.ExpiresAt,
		&token.Used,
		&token.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch bind token", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select bind token: %w", err)
	}

	return &token, nil
}

func (r *bindRepository) ConfirmToken(ctx context.Context, token *domain.BindToken, now time.Time) (*domain.TelegramBinding, error) {
	const upsertBinding = `
		INSERT INTO telegram_bindings (id, user_id, telegram_chat_id, telegram_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_chat_id) DO UPDATE
		SET user_id = excluded.user_id,
		    telegram_user_id = excluded.telegram_user_id,
		    updated_at = excluded.updated_at
	`

	const markUsed = `
		UPDATE bind_tokens
		SET used = TRUE
		WHERE id = $1 AND used = FALSE
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirm transaction: %w", err)
	}

	binding := &domain.TelegramBinding{
		ID:             newBindingID(),
		UserID:         token.UserID,
		TelegramChatID: token.TelegramChatID,
		TelegramUserID: token.TelegramUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := tx.ExecContext(
		ctx,
		upsertBinding,
		binding.ID,
		binding.UserID,
		binding.TelegramChatID,
		binding.TelegramUserID,
		binding.CreatedAt,
		binding.UpdatedAt,
	); err != nil {
		rollback(tx, r.log)
		if r.log != nil {
			r.log.Error("failed to upsert telegram binding", slog.String("chat_id", token.TelegramChatID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("upsert telegram binding: %w", err)
	}

	res, err := tx.ExecContext(ctx, markUsed, token.ID)
	if err != nil {
		rollback(tx, r.log)
		if r.log != nil {
			r.log.Error("failed to mark bind token used", slog.Any("error", err))
		}
		return nil, fmt.Errorf("mark bind token used: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		rollback(tx, r.log)
		return nil, fmt.Errorf("mark bind token used: rows affected: %w", err)
	}

	if affected == 0 {
		// A concurrent confirmation already consumed the token; its binding
		// write wins and ours is rolled back wholesale.
		rollback(tx, r.log)
		return nil, ErrTokenConsumed
	}

	if err := tx.Commit(); err != nil {
		rollback(tx, r.log)
		return nil, fmt.Errorf("commit confirm transaction: %w", err)
	}

	return binding, nil
}

func (r *bindRepository) FindBindingByChatID(ctx context.Context, chatID string) (*domain.TelegramBinding, error) {
	const query = `
		SELECT id, user_id, telegram_chat_id, telegram_user_id, created_at, updated_at
		FROM telegram_bindings
		WHERE telegram_chat_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, chatID)

	var binding domain.TelegramBinding
	if err := row.Scan(
		&binding.ID,
		&binding.UserID,
		&binding.TelegramChatID,
		&binding.TelegramUserID,
		&binding.CreatedAt,
		&binding.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBindingNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch telegram binding", slog.String("chat_id", chatID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select telegram binding: %w", err)
	}

	return &binding, nil
}

func (r *bindRepository) DeleteStaleTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM bind_tokens
		WHERE used = TRUE OR expires_at < $1
	`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to delete stale bind tokens", slog.Any("error", err))
		}
		return 0, fmt.Errorf("delete stale bind tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale bind tokens: rows affected: %w", err)
	}

	return affected, nil
}

func rollback(tx *sql.Tx, log *slog.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) && log != nil {
		log.Error("transaction rollback failed", slog.Any("error", err))
	}
}
