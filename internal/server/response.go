package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/betaione/telegram-bind/internal/errors"
	"github.com/betaione/telegram-bind/pkg/metrics"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", slog.Any("error", err))
	}
}

// writeError maps an application error to the HTTP status and the response
// body the protocol promises. Internal details never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, errHandler *apperrors.Handler, err error) {
	userMessage, _ := errHandler.Handle(r.Context(), err)

	status := http.StatusInternalServerError

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr != nil {
		metrics.RecordError(appErr.Code, string(appErr.Severity))

		switch appErr.Code {
		case apperrors.CodeValidation, apperrors.CodeInvalidToken:
			status = http.StatusBadRequest
		case apperrors.CodeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.CodeRateLimit:
			status = http.StatusTooManyRequests
		}
	}

	if userMessage == "" {
		userMessage = "Internal server error"
	}

	writeJSON(w, status, errorResponse{Error: userMessage})
}
