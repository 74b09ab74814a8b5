package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hiroyukim/warikan/pkg/middleware"
)

type fakeVerifier struct {
	userID string
	name   string
	err    error
}

func (v fakeVerifier) VerifyToken(ctx context.Context, token string) (string, string, error) {
	return v.userID, v.name, v.err
}

func identityEcho(t *testing.T, wantID, wantName string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.GetUserID(r.Context())
		if !ok || id != wantID {
			t.Errorf("user id: expected '%s', got '%s' (ok=%v)", wantID, id, ok)
		}
		name, ok := middleware.GetDisplayName(r.Context())
		if !ok || name != wantName {
			t.Errorf("display name: expected '%s', got '%s' (ok=%v)", wantName, name, ok)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	handler := middleware.Auth(fakeVerifier{userID: "U123", name: "Alice"})(identityEcho(t, "U123", "Alice"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		verifier fakeVerifier
	}{
		{
			name:   "missing header",
			header: "",
		},
		{
			name:   "not a bearer token",
			header: "Basic abc",
		},
		{
			name:     "verifier rejects token",
			header:   "Bearer expired",
			verifier: fakeVerifier{err: errors.New("expired")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := middleware.Auth(tt.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			if called {
				t.Error("next handler should not run on rejection")
			}
		})
	}
}

func TestDevUser(t *testing.T) {
	handler := middleware.DevUser(identityEcho(t, "alice", "Alice"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User-ID", "alice")
	req.Header.Set("X-Debug-User-Name", "Alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestDevUser_MissingHeader(t *testing.T) {
	handler := middleware.DevUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run without debug header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
