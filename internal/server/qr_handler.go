package server

import (
	"log/slog"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/betaione/telegram-bind/internal/telegram"
)

// QRHandler renders the bot deep link as a PNG QR code for the site's
// "add our Telegram bot" modal.
type QRHandler struct {
	botUsername string
	log         *slog.Logger
}

// NewQRHandler constructs the QR endpoint handler.
func NewQRHandler(botUsername string, log *slog.Logger) *QRHandler {
	if log == nil {
		log = slog.Default()
	}

	return &QRHandler{
		botUsername: botUsername,
		log:         log,
	}
}

// Get handles GET /api/telegram/qr. An optional user_id query parameter is
// carried into the deep link start payload so the bot can correlate the
// scan.
func (h *QRHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.botUsername == "" {
		http.NotFound(w, r)
		return
	}

	link := telegram.DeepLink(h.botUsername, r.URL.Query().Get("user_id"))

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		h.log.Error("failed to generate qr code", slog.Any("error", err))
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
