package bind

import (
	"context"
	"sync"
	"time"

	"github.com/betaione/telegram-bind/internal/domain"
	"github.com/betaione/telegram-bind/internal/repository"
)

// fakeRepo is an in-memory BindRepository with the same observable
// semantics as the SQL implementation, including the conditional
// mark-used guard.
type fakeRepo struct {
	mu       sync.Mutex
	tokens   map[string]*domain.BindToken       // by id
	bindings map[string]*domain.TelegramBinding // by chat id

	createCalls  int
	confirmCalls int
}

var _ repository.BindRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tokens:   make(map[string]*domain.BindToken),
		bindings: make(map[string]*domain.TelegramBinding),
	}
}

func (f *fakeRepo) DeleteUnusedTokens(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, tok := range f.tokens {
		if tok.UserID == userID && !tok.Used {
			delete(f.tokens, id)
		}
	}

	return nil
}

func (f *fakeRepo) CreateToken(ctx context.Context, token *domain.BindToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	cp := *token
	f.tokens[token.ID] = &cp

	return nil
}

func (f *fakeRepo) FindTokenBySecret(ctx context.Context, secret string) (*domain.BindToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, tok := range f.tokens {
		if tok.Token == secret && !tok.Used {
			cp := *tok
			return &cp, nil
		}
	}

	return nil, repository.ErrTokenNotFound
}

func (f *fakeRepo) ConfirmToken(ctx context.Context, token *domain.BindToken, now time.Time) (*domain.TelegramBinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.confirmCalls++

	stored, ok := f.tokens[token.ID]
	if !ok || stored.Used {
		return nil, repository.ErrTokenConsumed
	}
	stored.Used = true

	binding, ok := f.bindings[token.TelegramChatID]
	if ok {
		binding.UserID = token.UserID
		binding.TelegramUserID = token.TelegramUserID
		binding.UpdatedAt = now
	} else {
		binding = &domain.TelegramBinding{
			ID:             "binding-" + token.ID,
			UserID:         token.UserID,
			TelegramChatID: token.TelegramChatID,
			TelegramUserID: token.TelegramUserID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		f.bindings[token.TelegramChatID] = binding
	}

	cp := *binding
	return &cp, nil
}

func (f *fakeRepo) FindBindingByChatID(ctx context.Context, chatID string) (*domain.TelegramBinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	binding, ok := f.bindings[chatID]
	if !ok {
		return nil, repository.ErrBindingNotFound
	}

	cp := *binding
	return &cp, nil
}

func (f *fakeRepo) DeleteStaleTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var deleted int64
	for id, tok := range f.tokens {
		if tok.Used || tok.ExpiresAt.Before(cutoff) {
			delete(f.tokens, id)
			deleted++
		}
	}

	return deleted, nil
}

func (f *fakeRepo) bindingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.bindings)
}

func (f *fakeRepo) liveTokenCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, tok := range f.tokens {
		if tok.UserID == userID && !tok.Used {
			count++
		}
	}

	return count
}
