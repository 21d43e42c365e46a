// Package bind implements the Telegram account-binding protocol: minting of
// single-use bind tokens and their confirmation into durable bindings.
package bind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/betaione/telegram-bind/internal/domain"
	apperrors "github.com/betaione/telegram-bind/internal/errors"
	"github.com/betaione/telegram-bind/internal/repository"
	"github.com/betaione/telegram-bind/internal/session"
	"github.com/betaione/telegram-bind/pkg/metrics"
)

const (
	defaultTokenTTL    = 10 * time.Minute
	defaultTokenLength = 32
	defaultStateLength = 16

	notifyTimeout = 10 * time.Second
)

// Notifier delivers the binding-success message to the bound chat. Failures
// are never surfaced to the confirming client.
type Notifier interface {
	NotifyBound(ctx context.Context, chatID, userID string) error
}

// Config tunes the token protocol; zero values fall back to the defaults
// mandated by the protocol (10 minute TTL, 32/16 character secrets).
type Config struct {
	TokenTTL    time.Duration
	TokenLength int
	StateLength int
}

// IssueResult carries the plaintext token back to the caller. This is the
// only place the secret ever leaves the service.
type IssueResult struct {
	BindToken string
	State     string
	ExpiresAt time.Time
}

// ConfirmResult reports the binding outcome of a redeemed token.
type ConfirmResult struct {
	UserID         string
	TelegramChatID string
	Rebound        bool
}

// Service owns issuance and confirmation of bind tokens.
type Service struct {
	repo     repository.BindRepository
	notifier Notifier
	log      *slog.Logger
	cfg      Config
	now      func() time.Time
}

// NewService constructs the bind service. notifier may be nil when the
// Telegram bot is disabled.
func NewService(repo repository.BindRepository, notifier Notifier, log *slog.Logger, cfg Config) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.TokenLength < defaultTokenLength {
		cfg.TokenLength = defaultTokenLength
	}
	if cfg.StateLength < defaultStateLength {
		cfg.StateLength = defaultStateLength
	}

	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Issue mints a fresh single-use bind token for the authenticated user and
// the Telegram identifiers carried over from the bot deep link. Any unused
// tokens the user still owns are invalidated first, so at most one live
// token per user exists at a time.
func (s *Service) Issue(ctx context.Context, sess *session.Session, tgUserID, tgChatID string) (*IssueResult, error) {
	if sess == nil || sess.UserID == "" {
		return nil, apperrors.NewUnauthorizedError()
	}

	if tgUserID == "" || tgChatID == "" {
		return nil, apperrors.NewValidationError("Missing telegram parameters")
	}

	if err := s.repo.DeleteUnusedTokens(ctx, sess.UserID); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	secret, err := NewSecret(s.cfg.TokenLength)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("generate token: %w", err))
	}

	state, err := NewSecret(s.cfg.StateLength)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("generate state: %w", err))
	}

	now := s.now().UTC()
	token := &domain.BindToken{
		ID:             uuid.NewString(),
		Token:          secret,
		State:          state,
		UserID:         sess.UserID,
		TelegramChatID: tgChatID,
		TelegramUserID: tgUserID,
		ExpiresAt:      now.Add(s.cfg.TokenTTL),
		Used:           false,
		CreatedAt:      now,
	}

	if err := s.repo.CreateToken(ctx, token); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	metrics.RecordTokenIssued()

	s.log.Info("bind token issued",
		slog.String("user_id", sess.UserID),
		slog.String("tg_chat_id", tgChatID),
		slog.Time("expires_at", token.ExpiresAt),
	)

	return &IssueResult{
		BindToken: secret,
		State:     state,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// Confirm redeems a bind token: it writes (or overwrites) the binding for
// the token's chat and consumes the token, as one atomic unit. Nonexistent,
// expired and already-used tokens fail identically so callers cannot probe
// which case they hit. tgStartParam is accepted for caller-side bookkeeping
// and not interpreted.
func (s *Service) Confirm(ctx context.Context, bindToken, tgStartParam string) (*ConfirmResult, error) {
	if bindToken == "" {
		return nil, apperrors.NewValidationError("Missing bind_token")
	}

	token, err := s.repo.FindTokenBySecret(ctx, bindToken)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			metrics.RecordConfirm(metrics.StatusInvalid)
			return nil, apperrors.NewInvalidTokenError()
		}

		metrics.RecordConfirm(metrics.StatusError)
		return nil, apperrors.NewDatabaseError(err)
	}

	now := s.now().UTC()
	if token.Expired(now) {
		metrics.RecordConfirm(metrics.StatusInvalid)
		return nil, apperrors.NewInvalidTokenError()
	}

	rebound := s.bindingExists(ctx, token.TelegramChatID)

	if _, err := s.repo.ConfirmToken(ctx, token, now); err != nil {
		if errors.Is(err, repository.ErrTokenConsumed) {
			metrics.RecordConfirm(metrics.StatusInvalid)
			return nil, apperrors.NewInvalidTokenError()
		}

		metrics.RecordConfirm(metrics.StatusError)
		return nil, apperrors.NewDatabaseError(err)
	}

	metrics.RecordConfirm(metrics.StatusOK)
	if rebound {
		metrics.RecordBindingWritten(metrics.OutcomeRebound)
	} else {
		metrics.RecordBindingWritten(metrics.OutcomeCreated)
	}

	s.log.Info("telegram binding confirmed",
		slog.String("user_id", token.UserID),
		slog.String("tg_chat_id", token.TelegramChatID),
		slog.Bool("rebound", rebound),
		slog.String("tg_start_param", tgStartParam),
	)

	s.notifyBound(token.TelegramChatID, token.UserID)

	return &ConfirmResult{
		UserID:         token.UserID,
		TelegramChatID: token.TelegramChatID,
		Rebound:        rebound,
	}, nil
}

// bindingExists is advisory: it only distinguishes create from rebind for
// metrics and logging. The binding write itself is an atomic upsert.
func (s *Service) bindingExists(ctx context.Context, chatID string) bool {
	_, err := s.repo.FindBindingByChatID(ctx, chatID)
	if err != nil {
		if !errors.Is(err, repository.ErrBindingNotFound) {
			s.log.Warn("binding lookup failed", slog.String("tg_chat_id", chatID), slog.Any("error", err))
		}
		return false
	}

	return true
}

// notifyBound fires the bot notification without blocking or failing the
// confirmation.
func (s *Service) notifyBound(chatID, userID string) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyBound(ctx, chatID, userID); err != nil {
			s.log.Warn("binding success notification failed",
				slog.String("tg_chat_id", chatID),
				slog.Any("error", err),
			)
		}
	}()
}
