// Package telegram hosts the bot side of the binding handoff: the /start
// deep link that sends users to the login page, and the success
// notification sent back once the binding is confirmed.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/betaione/telegram-bind/internal/repository"
	"github.com/betaione/telegram-bind/pkg/config"
)

const CommandStart = "/start"

// Bot wraps telebot.Bot with the application dependencies needed to handle
// the binding handoff.
type Bot struct {
	telebot *telebot.Bot
	repo    repository.BindRepository
	log     *slog.Logger
	cfg     config.BotConfig
}

// New builds a telegram bot instance configured according to the
// application settings.
func New(cfg config.BotConfig, log *slog.Logger, repo repository.BindRepository) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Token,
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := &Bot{
		telebot: tb,
		repo:    repo,
		log:     log,
		cfg:     cfg,
	}

	tb.Handle(CommandStart, b.handleStart)

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such
// as health checks and the notifier.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// handleStart answers a (possibly deep-linked) /start. Already-bound chats
// get a short confirmation; everyone else gets the login link carrying the
// telegram identifiers the web side needs to mint a bind token.
func (b *Bot) handleStart(c telebot.Context) error {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	chatID := strconv.FormatInt(chat.ID, 10)

	if b.repo != nil {
		binding, err := b.repo.FindBindingByChatID(context.Background(), chatID)
		if err == nil && binding != nil {
			return c.Send("This chat is already linked to a betaione account. Send /start again after unlinking to rebind.")
		}
		if err != nil && !errors.Is(err, repository.ErrBindingNotFound) {
			b.log.Warn("binding lookup failed in /start", slog.String("chat_id", chatID), slog.Any("error", err))
		}
	}

	loginURL, err := b.loginLink(sender.ID, chat.ID, c.Message().Payload)
	if err != nil {
		b.log.Error("failed to build login link", slog.Any("error", err))
		return c.Send("Something went wrong, please try again later.")
	}

	markup := &telebot.ReplyMarkup{}
	btn := markup.URL("Log in & link account", loginURL)
	markup.Inline(markup.Row(btn))

	return c.Send("Welcome! Log in on the website to link this chat to your account:", markup)
}

func (b *Bot) loginLink(userID, chatID int64, startParam string) (string, error) {
	base, err := url.Parse(b.cfg.LoginURL)
	if err != nil {
		return "", fmt.Errorf("parse login url: %w", err)
	}

	q := base.Query()
	q.Set("tg_user_id", strconv.FormatInt(userID, 10))
	q.Set("tg_chat_id", strconv.FormatInt(chatID, 10))
	if startParam != "" {
		q.Set("tg_start_param", startParam)
	}
	base.RawQuery = q.Encode()

	return base.String(), nil
}

// DeepLink returns the t.me link that opens this bot, optionally with a
// start payload. The QR endpoint renders it for the site's modal.
func DeepLink(username, startParam string) string {
	if startParam == "" {
		startParam = "betaione"
	}

	return fmt.Sprintf("https://t.me/%s?start=%s", username, url.QueryEscape(startParam))
}
