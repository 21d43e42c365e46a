package telegram

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betaione/telegram-bind/pkg/config"
)

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "https://t.me/betaione_bot?start=betaione", DeepLink("betaione_bot", ""))
	assert.Equal(t, "https://t.me/betaione_bot?start=U1", DeepLink("betaione_bot", "U1"))
}

func TestDeepLink_EscapesStartPayload(t *testing.T) {
	link := DeepLink("betaione_bot", "a b&c")

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "a b&c", parsed.Query().Get("start"))
}

func TestLoginLink_CarriesTelegramIdentifiers(t *testing.T) {
	b := &Bot{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg: config.BotConfig{LoginURL: "https://betaione.example/login"},
	}

	link, err := b.loginLink(123, 456, "promo")
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)

	assert.Equal(t, "https://betaione.example/login", parsed.Scheme+"://"+parsed.Host+parsed.Path)
	assert.Equal(t, "123", parsed.Query().Get("tg_user_id"))
	assert.Equal(t, "456", parsed.Query().Get("tg_chat_id"))
	assert.Equal(t, "promo", parsed.Query().Get("tg_start_param"))
}

func TestLoginLink_OmitsEmptyStartParam(t *testing.T) {
	b := &Bot{cfg: config.BotConfig{LoginURL: "https://betaione.example/login"}}

	link, err := b.loginLink(123, 456, "")
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.False(t, parsed.Query().Has("tg_start_param"))
}

func TestNotifyBound_NilBotIsNoop(t *testing.T) {
	n := NewNotifier(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, n.NotifyBound(context.Background(), "456", "U1"))
}
