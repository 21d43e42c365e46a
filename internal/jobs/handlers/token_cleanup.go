// Package handlers contains the asynq task handlers for background
// maintenance of the bind protocol tables.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/betaione/telegram-bind/internal/jobs"
	"github.com/betaione/telegram-bind/internal/repository"
	"github.com/betaione/telegram-bind/pkg/metrics"
)

// TokenCleanupHandler prunes used and expired bind tokens. Correctness never
// depends on deletion (expiry and the used flag are checked on read); this
// keeps the table from accumulating dead secrets.
type TokenCleanupHandler struct {
	repo repository.BindRepository
	log  *slog.Logger
	now  func() time.Time
}

var _ asynq.Handler = (*TokenCleanupHandler)(nil)

// NewTokenCleanupHandler constructs the cleanup handler.
func NewTokenCleanupHandler(repo repository.BindRepository, log *slog.Logger) *TokenCleanupHandler {
	if log == nil {
		log = slog.Default()
	}

	return &TokenCleanupHandler{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// ProcessTask implements asynq.Handler.
func (h *TokenCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.TokenCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal token cleanup payload: %w", err)
	}

	cutoff := h.now().UTC().Add(-payload.Retain())

	deleted, err := h.repo.DeleteStaleTokens(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("token cleanup: %w", err)
	}

	metrics.RecordTokensCleaned(deleted)

	if deleted > 0 {
		h.log.Info("pruned stale bind tokens",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff),
		)
	}

	return nil
}
