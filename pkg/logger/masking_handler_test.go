package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func maskingLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewMaskingHandler(slog.NewTextHandler(buf, nil)))
}

func TestMaskingHandler_MasksSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := maskingLogger(&buf)

	log.InfoContext(context.Background(), "token issued",
		slog.String("bind_token", "super-secret-value"),
		slog.String("state", "csrf-state"),
		slog.String("user_id", "U1"),
	)

	out := buf.String()
	assert.NotContains(t, out, "super-secret-value")
	assert.NotContains(t, out, "csrf-state")
	assert.Contains(t, out, `bind_token=***`)
	assert.Contains(t, out, `state=***`)
	assert.Contains(t, out, "user_id=U1")
}

func TestMaskingHandler_KeyMatchIsCaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	log := maskingLogger(&buf)

	log.Info("request", slog.String("Authorization", "Bearer abc"))

	out := buf.String()
	assert.NotContains(t, out, "Bearer abc")
	assert.Contains(t, out, "***")
}

func TestMaskingHandler_MasksWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := maskingLogger(&buf).With(slog.String("password", "hunter2"))

	log.Info("login attempt")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "password=***")
}

func TestMaskingHandler_LeavesOtherAttrsAlone(t *testing.T) {
	var buf bytes.Buffer
	log := maskingLogger(&buf)

	log.Info("binding confirmed",
		slog.String("tg_chat_id", "456"),
		slog.Bool("rebound", true),
	)

	out := buf.String()
	assert.Contains(t, out, "tg_chat_id=456")
	assert.Contains(t, out, "rebound=true")
	assert.NotContains(t, out, "***")
}
