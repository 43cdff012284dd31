package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type verifierFunc func(ctx context.Context, token string) (*Identity, error)

func (f verifierFunc) VerifySession(ctx context.Context, token string) (*Identity, error) {
	return f(ctx, token)
}

func okHandler(t *testing.T, wantRole string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantRole != "" {
			id, ok := IdentityFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, wantRole, id.Role)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware(t *testing.T) {
	verifier := verifierFunc(func(_ context.Context, token string) (*Identity, error) {
		if token == "good" {
			return &Identity{UserID: "u1", Wallet: "w1", Role: "user", Token: token}, nil
		}
		return nil, errors.New("session not found")
	})

	tests := []struct {
		name         string
		header       string
		expectedCode int
	}{
		{name: "Valid session", header: "Bearer good", expectedCode: http.StatusOK},
		{name: "Missing header", expectedCode: http.StatusUnauthorized},
		{name: "Wrong scheme", header: "Basic good", expectedCode: http.StatusUnauthorized},
		{name: "Inactive session", header: "Bearer bad", expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Middleware(verifier)(okHandler(t, "user")).ServeHTTP(w, r)
			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name         string
		identity     *Identity
		expectedCode int
	}{
		{name: "Admin", identity: &Identity{Role: "admin"}, expectedCode: http.StatusOK},
		{name: "User", identity: &Identity{Role: "user"}, expectedCode: http.StatusForbidden},
		{name: "Anonymous", expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.identity != nil {
				r = r.WithContext(WithIdentity(r.Context(), tt.identity))
			}
			w := httptest.NewRecorder()
			RequireRole("admin")(okHandler(t, "")).ServeHTTP(w, r)
			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestSharedSecret(t *testing.T) {
	tests := []struct {
		name         string
		secret       string
		header       string
		expectedCode int
	}{
		{name: "Matching secret", secret: "s3cret", header: "Bearer s3cret", expectedCode: http.StatusOK},
		{name: "Wrong secret", secret: "s3cret", header: "Bearer nope", expectedCode: http.StatusUnauthorized},
		{name: "Disabled", secret: "", header: "Bearer ", expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			SharedSecret(tt.secret)(okHandler(t, "")).ServeHTTP(w, r)
			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}
