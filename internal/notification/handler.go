package notification

import (
	"context"
	"net/http"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, principal *internal.User, limit int64) ([]Notification, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

type NotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	limit, _ := h.Pagination(r)
	items, err := h.Service.List(r.Context(), principal, int64(limit))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NotificationsResponse{Notifications: items})
}
