package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTProvider verifies the HS256-signed session cookie issued by the auth
// provider. Invalid or expired tokens resolve to an anonymous request, not
// an error: the issue endpoint turns that into 401.
type JWTProvider struct {
	secret     []byte
	cookieName string
	log        *slog.Logger
}

// NewJWTProvider constructs a provider for the given signing secret and
// session cookie name.
func NewJWTProvider(secret, cookieName string, log *slog.Logger) *JWTProvider {
	if log == nil {
		log = slog.Default()
	}

	return &JWTProvider{
		secret:     []byte(secret),
		cookieName: cookieName,
		log:        log,
	}
}

// Get extracts and verifies the session token from the request cookie, or
// from a bearer Authorization header as a fallback.
func (p *JWTProvider) Get(ctx context.Context, r *http.Request) (*Session, error) {
	raw := p.rawToken(r)
	if raw == "" {
		return nil, nil
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		p.log.Debug("session token rejected", slog.Any("error", err))
		return nil, nil
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, nil
	}

	return &Session{
		UserID: sub,
		Name:   stringClaim(claims, "name"),
		Email:  stringClaim(claims, "email"),
	}, nil
}

func (p *JWTProvider) rawToken(r *http.Request) string {
	if cookie, err := r.Cookie(p.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}

	return ""
}
