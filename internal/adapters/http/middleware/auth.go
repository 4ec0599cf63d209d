package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const staffContextKey contextKey = "staff"

const authRealm = `Basic realm="sponsor admin", charset="UTF-8"`

// StaffOnly returns middleware that admits only the configured operator via HTTP basic auth.
// passwordHash is a bcrypt hash. An empty hash disables the check; configuration refuses
// that outside development.
// PRE: user is non-empty
// POST: Unauthenticated requests receive 401 and never reach next
func StaffOnly(user, passwordHash string) func(http.Handler) http.Handler {
	if passwordHash == "" {
		slog.Warn("auth_disabled", "message", "no admin password hash configured; admin routes are open")
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(ContextWithStaff(r.Context(), user)))
			})
		}
	}
	hash := []byte(passwordHash)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPass, ok := r.BasicAuth()
			userOK := subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) == 1
			// Always run bcrypt so a wrong user name costs the same as a wrong password.
			passOK := bcrypt.CompareHashAndPassword(hash, []byte(gotPass)) == nil
			if !ok || !userOK || !passOK {
				if ok {
					slog.Warn("auth_failed", "user", gotUser, "path", r.URL.Path)
				}
				w.Header().Set("WWW-Authenticate", authRealm)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithStaff(r.Context(), user)))
		})
	}
}

// StaffFromContext returns the authenticated operator name.
func StaffFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(staffContextKey).(string)
	return user, ok
}

// ContextWithStaff returns a context carrying the operator name.
// Intended for use in tests.
func ContextWithStaff(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, staffContextKey, user)
}
