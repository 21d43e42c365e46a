package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/betaione/telegram-bind/internal/errors"
)

// Notifier sends the binding-success message to the freshly bound chat.
// Sends go through a retry loop and a circuit breaker since the Bot API is
// an external collaborator with its own outages.
type Notifier struct {
	bot     *telebot.Bot
	log     *slog.Logger
	breaker *apperrors.CircuitBreaker
}

// NewNotifier constructs a Notifier over an initialized bot.
func NewNotifier(bot *telebot.Bot, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{
		bot:     bot,
		log:     log,
		breaker: apperrors.NewCircuitBreaker(),
	}
}

// NotifyBound tells the chat its account is now linked.
func (n *Notifier) NotifyBound(ctx context.Context, chatID, userID string) error {
	if n == nil || n.bot == nil {
		return nil
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", chatID, err)
	}

	text := "✅ Your Telegram account is now linked. You will receive your picks here."

	sendErr := apperrors.WithRetry(ctx, func() error {
		return n.breaker.Call(func() error {
			if _, err := n.bot.Send(telebot.ChatID(id), text); err != nil {
				return apperrors.NewExternalAPIError("telegram", err)
			}
			return nil
		})
	})
	if sendErr != nil {
		n.log.Warn("failed to send binding notification",
			slog.String("chat_id", chatID),
			slog.String("user_id", userID),
			slog.Any("error", sendErr),
		)
		return sendErr
	}

	return nil
}
