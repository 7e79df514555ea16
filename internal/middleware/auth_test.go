package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens() *auth.TokenManager {
	return auth.NewTokenManager(config.AuthConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
}

func bearer(t *testing.T, tokens *auth.TokenManager, role model.Role) string {
	t.Helper()
	token, err := tokens.IssueAccess(1, "alice", role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthenticate(t *testing.T) {
	tokens := newTestTokens()
	pair, err := tokens.IssuePair(&model.User{ID: 1, Username: "alice", Role: model.RoleCustomer})
	require.NoError(t, err)

	tests := []struct {
		name            string
		header          string
		expectedStatus  int
		expectPrincipal bool
	}{
		{
			name:           "Anonymous request passes through",
			header:         "",
			expectedStatus: http.StatusOK,
		},
		{
			name:            "Valid access token",
			header:          bearer(t, tokens, model.RoleCustomer),
			expectedStatus:  http.StatusOK,
			expectPrincipal: true,
		},
		{
			name:           "Refresh token is not accepted",
			header:         "Bearer " + pair.Refresh,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Garbage token",
			header:         "Bearer not-a-jwt",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong scheme",
			header:         "Basic YWxpY2U6cGFzcw==",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal auth.Principal
			var found bool
			handler := Authenticate(tokens, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal, found = auth.PrincipalFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/cart/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectPrincipal, found)
			if tt.expectPrincipal {
				assert.Equal(t, int64(1), principal.UserID)
				assert.Equal(t, "alice", principal.Username)
			}
		})
	}
}

func TestRequireAuthAndAdmin(t *testing.T) {
	tokens := newTestTokens()

	tests := []struct {
		name           string
		guard          func(http.Handler) http.Handler
		header         string
		expectedStatus int
	}{
		{"auth: anonymous", RequireAuth, "", http.StatusUnauthorized},
		{"auth: customer", RequireAuth, bearer(t, tokens, model.RoleCustomer), http.StatusOK},
		{"admin: anonymous", RequireAdmin, "", http.StatusUnauthorized},
		{"admin: customer", RequireAdmin, bearer(t, tokens, model.RoleCustomer), http.StatusForbidden},
		{"admin: admin", RequireAdmin, bearer(t, tokens, model.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			handler := Authenticate(tokens, zerolog.Nop())(tt.guard(inner))

			req := httptest.NewRequest(http.MethodPost, "/api/products/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, handlerCalled)
		})
	}
}
