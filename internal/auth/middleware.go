package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fotoshare/auth-service/internal/httputil"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// SubjectContextKey holds the authenticated account's email
const SubjectContextKey ContextKey = "subject"

// Middleware handles authentication for protected routes
type Middleware struct {
	codec *Codec
}

func NewMiddleware(codec *Codec) *Middleware {
	return &Middleware{codec: codec}
}

// RequireAuth validates the bearer access token and puts the subject into the
// request context. Only access-scope tokens pass; presenting a refresh or
// verification token here is a hard reject.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return
		}

		claims, err := m.codec.Decode(parts[1], ScopeAccess)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
			case errors.Is(err, ErrTokenScopeMismatch):
				httputil.RespondErrorWithCode(w, "token not valid for this purpose", httputil.CodeTokenScopeMismatch, http.StatusUnauthorized)
			default:
				httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			}
			return
		}

		ctx := context.WithValue(r.Context(), SubjectContextKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSubjectFromContext extracts the authenticated email from the request context
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectContextKey).(string)
	return subject, ok
}
