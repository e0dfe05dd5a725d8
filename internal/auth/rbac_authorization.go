package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/transport"
)

// RBACAuthorization guards routes with the same capability table the services consult.
type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer internal.Authorizer
}

func NewRBACAuthorization(authorizer internal.Authorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  authorizer,
	}
}

func (ra *RBACAuthorization) Require(action, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := internal.UserFromContext(r.Context())
			if !ok {
				ra.Log(r).Warn("authorization check failed: user not found in context")
				ra.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !ra.authorizer.CanPerform(r.Context(), user, action, resource) {
				ra.Log(r).Warn("access denied: insufficient permissions",
					"user_id", user.ID,
					"action", action,
					"resource", resource,
					"user_permissions", user.Permissions)
				ra.HandleServiceError(w, internal.ErrUnauthorizedAccess)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
