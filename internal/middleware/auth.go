package middleware

import (
	"net/http"
	"strings"

	"storefront/internal/auth"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

const bearerPrefix = "Bearer "

// Authenticate resolves the caller from a bearer access token. Requests
// without an Authorization header continue anonymously; a header carrying an
// invalid or expired token is rejected with 401.
func Authenticate(tokens *auth.TokenManager, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasPrefix(header, bearerPrefix) {
				logger.Debug().Str("path", r.URL.Path).Msg("unsupported authorization scheme")
				unauthorised(w, r)
				return
			}

			claims, err := tokens.ParseAccess(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected access token")
				unauthorised(w, r)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.Principal{
				UserID:   claims.UserID,
				Username: claims.Username,
				Role:     claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFrom(r.Context()); !ok {
			unauthorised(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admin callers with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			unauthorised(w, r)
			return
		}
		if !principal.IsAdmin() {
			writeError(w, r, http.StatusForbidden, model.ErrForbidden.Code, model.ErrForbidden.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorised(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, r, http.StatusUnauthorized, model.ErrUnauthorised.Code, model.ErrUnauthorised.Message)
}
