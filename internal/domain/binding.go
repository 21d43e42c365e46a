package domain

import "time"

// BindToken is a pending request to link a Telegram identity to a web user.
// The plaintext Token value is the capability required to confirm the
// binding and is only ever returned to the caller at mint time.
type BindToken struct {
	ID             string
	Token          string
	State          string
	UserID         string
	TelegramChatID string
	TelegramUserID string
	ExpiresAt      time.Time
	Used           bool
	CreatedAt      time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *BindToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TelegramBinding is the durable association between one Telegram chat and
// one web user account. There is at most one binding per telegram chat;
// re-confirming for the same chat overwrites the bound user.
type TelegramBinding struct {
	ID             string
	UserID         string
	TelegramChatID string
	TelegramUserID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
