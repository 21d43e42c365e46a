// Package session resolves the authenticated web user behind a request. The
// auth provider issues sessions; this service only verifies them.
package session

import (
	"context"
	"net/http"
)

// Session identifies an authenticated web user.
type Session struct {
	UserID string
	Name   string
	Email  string
}

// Provider resolves the session carried by an HTTP request. A nil session
// with a nil error means the request is anonymous.
type Provider interface {
	Get(ctx context.Context, r *http.Request) (*Session, error)
}
