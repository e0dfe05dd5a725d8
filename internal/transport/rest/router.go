package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/auth"
	"github.com/frahmantamala/payflow/internal/department"
	"github.com/frahmantamala/payflow/internal/notification"
	"github.com/frahmantamala/payflow/internal/transaction"
	"github.com/frahmantamala/payflow/internal/transport/middleware"
	"github.com/frahmantamala/payflow/internal/transport/swagger"
	"github.com/frahmantamala/payflow/internal/user"
)

// Handlers groups everything the router mounts. Nil handlers leave their routes out.
type Handlers struct {
	Health       *HealthHandler
	Auth         *auth.Handler
	User         *user.Handler
	Department   *department.Handler
	Transaction  *transaction.Handler
	Notification *notification.Handler
	RBAC         *auth.RBACAuthorization
	Spec         *swagger.Spec
	// Files serves stored uploads read-only under /storage.
	Files http.Handler
}

type RouterConfig struct {
	AllowedOrigins string
	StoragePrefix  string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, cfg RouterConfig, logger *slog.Logger) {
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))

	if h.Spec != nil {
		router.Handle("/openapi.yml", h.Spec)
		router.Handle("/swagger/*", swagger.Handler())
	}

	if h.Files != nil {
		prefix := cfg.StoragePrefix
		if prefix == "" {
			prefix = "/storage"
		}
		router.Handle(prefix+"/*", http.StripPrefix(prefix+"/", h.Files))
	}

	requireAuth := func(r chi.Router) {
		r.Use(h.Auth.AuthMiddleware)
		r.Use(middleware.UserContext)
	}
	require := h.RBAC.Require

	if h.Transaction != nil && h.Auth != nil {
		router.Route("/payflow/payment/{transactionId}", func(r chi.Router) {
			r.Use(middleware.LoggingMiddleware(logger))
			requireAuth(r)
			r.Use(require(internal.ActionSubmitPayment, internal.ResourceTransaction))
			r.Get("/", h.Transaction.PaymentPage)
			r.Post("/", h.Transaction.SubmitPaymentPage)
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LoggingMiddleware(logger))

		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			if h.User != nil {
				sr.Post("/register", h.User.Register)
			}
		})

		r.Group(func(pr chi.Router) {
			requireAuth(pr)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetMe)
				pr.Put("/users/me/biodata", h.User.UpdateBiodata)

				pr.Route("/users", func(ur chi.Router) {
					ur.With(require(internal.ActionViewAny, internal.ResourceUser)).Get("/", h.User.ListUsers)
					ur.With(require(internal.ActionCreate, internal.ResourceUser)).Post("/", h.User.CreateUser)
					ur.With(require(internal.ActionBulkDelete, internal.ResourceUser)).Post("/bulk-delete", h.User.BulkDeleteUsers)
					ur.With(require(internal.ActionViewAny, internal.ResourceUser)).Get("/{id}", h.User.GetUser)
					ur.With(require(internal.ActionUpdate, internal.ResourceUser)).Put("/{id}", h.User.UpdateUser)
					ur.With(require(internal.ActionDelete, internal.ResourceUser)).Delete("/{id}", h.User.DeleteUser)
				})
			}

			if h.Department != nil {
				pr.Route("/departments", func(dr chi.Router) {
					dr.Get("/", h.Department.ListDepartments)
					dr.Get("/options", h.Department.GetDepartmentOptions)
					dr.Get("/{id}", h.Department.GetDepartment)
					dr.Get("/{id}/cost", h.Department.GetDepartmentCost)
					dr.With(require(internal.ActionCreate, internal.ResourceDepartment)).Post("/", h.Department.CreateDepartment)
					dr.With(require(internal.ActionUpdate, internal.ResourceDepartment)).Put("/{id}", h.Department.UpdateDepartment)
					dr.With(require(internal.ActionDelete, internal.ResourceDepartment)).Delete("/{id}", h.Department.DeleteDepartment)
				})
			}

			if h.Transaction != nil {
				pr.Route("/transactions", func(tr chi.Router) {
					tr.Get("/", h.Transaction.ListTransactions)
					tr.Post("/", h.Transaction.CreateTransaction)
					tr.Get("/summary", h.Transaction.GetSummary)
					tr.With(require(internal.ActionBulkDelete, internal.ResourceTransaction)).Post("/bulk-delete", h.Transaction.BulkDeleteTransactions)
					tr.Get("/{id}", h.Transaction.GetTransaction)
					tr.With(require(internal.ActionUpdate, internal.ResourceTransaction)).Put("/{id}", h.Transaction.UpdateTransaction)
					tr.With(require(internal.ActionDelete, internal.ResourceTransaction)).Delete("/{id}", h.Transaction.DeleteTransaction)
					tr.Post("/{id}/payment", h.Transaction.SubmitPayment)

					tr.With(require(internal.ActionApprove, internal.ResourceTransaction)).Patch("/{id}/approve", h.Transaction.ApproveTransaction)
					tr.With(require(internal.ActionMarkPending, internal.ResourceTransaction)).Patch("/{id}/mark-pending", h.Transaction.MarkTransactionPending)
					tr.With(require(internal.ActionMarkFailed, internal.ResourceTransaction)).Patch("/{id}/mark-failed", h.Transaction.MarkTransactionFailed)
				})
			}

			if h.Notification != nil {
				pr.Get("/notifications", h.Notification.ListNotifications)
			}
		})
	})
}
