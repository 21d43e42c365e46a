package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/betaione/telegram-bind/internal/bind"
	apperrors "github.com/betaione/telegram-bind/internal/errors"
	"github.com/betaione/telegram-bind/internal/session"
)

// BindHandler exposes the two operations of the bind protocol over HTTP.
type BindHandler struct {
	svc        *bind.Service
	sessions   session.Provider
	validate   *validator.Validate
	errHandler *apperrors.Handler
	log        *slog.Logger
}

// NewBindHandler constructs the HTTP handler for the bind endpoints.
func NewBindHandler(svc *bind.Service, sessions session.Provider, errHandler *apperrors.Handler, log *slog.Logger) *BindHandler {
	if log == nil {
		log = slog.Default()
	}

	return &BindHandler{
		svc:        svc,
		sessions:   sessions,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		errHandler: errHandler,
		log:        log,
	}
}

type issueRequest struct {
	TgUserID string `json:"tg_user_id" validate:"required"`
	TgChatID string `json:"tg_chat_id" validate:"required"`
}

type issueResponse struct {
	Success   bool   `json:"success"`
	BindToken string `json:"bind_token"`
	State     string `json:"state"`
	ExpiresAt string `json:"expires_at"`
}

type confirmRequest struct {
	BindToken    string `json:"bind_token" validate:"required"`
	TgStartParam string `json:"tg_start_param"`
}

type confirmResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	TelegramChatID string `json:"telegram_chat_id"`
}

// Issue handles POST /api/telegram/bind-token. Requires an authenticated
// session; mints a fresh single-use token for the requesting user.
func (h *BindHandler) Issue(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), r)
	if err != nil {
		writeError(w, r, h.errHandler, apperrors.NewDatabaseError(err))
		return
	}

	if sess == nil || sess.UserID == "" {
		writeError(w, r, h.errHandler, apperrors.NewUnauthorizedError())
		return
	}

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.errHandler, apperrors.NewValidationError("Invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, h.errHandler, apperrors.NewValidationError("Missing telegram parameters"))
		return
	}

	result, err := h.svc.Issue(r.Context(), sess, req.TgUserID, req.TgChatID)
	if err != nil {
		writeError(w, r, h.errHandler, err)
		return
	}

	writeJSON(w, http.StatusOK, issueResponse{
		Success:   true,
		BindToken: result.BindToken,
		State:     result.State,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Confirm handles POST /api/bind/confirm. No session required: possession
// of a valid token is the authorization.
func (h *BindHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.errHandler, apperrors.NewValidationError("Invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, h.errHandler, apperrors.NewValidationError("Missing bind_token"))
		return
	}

	result, err := h.svc.Confirm(r.Context(), req.BindToken, req.TgStartParam)
	if err != nil {
		writeError(w, r, h.errHandler, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmResponse{
		Success:        true,
		Message:        "Telegram account successfully bound",
		UserID:         result.UserID,
		TelegramChatID: result.TelegramChatID,
	})
}
