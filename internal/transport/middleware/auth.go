package middleware

import (
	"net/http"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/pkg/logger"
)

// UserContext tags the request logger with the authenticated principal. It must run after
// the auth middleware.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := internal.UserFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
