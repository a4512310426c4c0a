package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/auth"
)

func TestTokenChecker(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		ok     bool
	}{
		{"valid", "s3cret", "Bearer s3cret", true},
		{"wrong token", "s3cret", "Bearer nope", false},
		{"missing header", "s3cret", "", false},
		{"basic scheme", "s3cret", "Basic s3cret", false},
		{"no token configured", "", "Bearer ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			_, err := auth.NewTokenChecker(tt.token).Check(r)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, auth.ErrUnauthorized)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	var seen auth.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := auth.FromContext(r.Context())
		require.True(t, ok)
		seen = s
		w.WriteHeader(http.StatusNoContent)
	})
	h := auth.Middleware(auth.NewTokenChecker("tok"), nil)(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "editor", seen.Subject)
}

func TestCheckerFunc(t *testing.T) {
	c := auth.CheckerFunc(func(*http.Request) (auth.Session, error) {
		return auth.Session{Subject: "test"}, nil
	})
	s, err := c.Check(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "test", s.Subject)
}
