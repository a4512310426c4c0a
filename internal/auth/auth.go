// Package auth gates editor routes behind a session check.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned when a request carries no valid session.
var ErrUnauthorized = errors.New("unauthorized")

// SessionChecker reports whether a request belongs to an authenticated
// editor.
type SessionChecker interface {
	Check(r *http.Request) (Session, error)
}

// Session is the identity attached to an authorized request.
type Session struct {
	Subject string
}

type ctxKey int

const sessionKey ctxKey = 0

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the session stored by Middleware.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// TokenChecker accepts requests bearing a fixed token in the Authorization
// header. An empty token rejects everything.
type TokenChecker struct {
	token []byte
}

func NewTokenChecker(token string) *TokenChecker {
	return &TokenChecker{token: []byte(token)}
}

func (c *TokenChecker) Check(r *http.Request) (Session, error) {
	if len(c.token) == 0 {
		return Session{}, ErrUnauthorized
	}
	h := r.Header.Get("Authorization")
	got, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return Session{}, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), c.token) != 1 {
		return Session{}, ErrUnauthorized
	}
	return Session{Subject: "editor"}, nil
}

// CheckerFunc adapts a function to SessionChecker.
type CheckerFunc func(r *http.Request) (Session, error)

func (f CheckerFunc) Check(r *http.Request) (Session, error) { return f(r) }

// Middleware rejects requests the checker refuses. onDeny writes the
// response; nil writes a bare 401.
func Middleware(c SessionChecker, onDeny func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	if onDeny == nil {
		onDeny = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := c.Check(r)
			if err != nil {
				onDeny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
