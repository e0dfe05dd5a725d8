package department

import (
	"context"
	"net/http"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/transport"
)

type ServiceAPI interface {
	ListAll(ctx context.Context) ([]*Department, error)
	FindByID(ctx context.Context, id int64) (*Department, error)
	CostFor(ctx context.Context, departmentID int64) (int64, error)
	Options(ctx context.Context) ([]OptionResponse, error)
	Create(ctx context.Context, principal *internal.User, dto CreateDepartmentDTO) (*Department, error)
	Update(ctx context.Context, principal *internal.User, id int64, dto UpdateDepartmentDTO) (*Department, error)
	Delete(ctx context.Context, principal *internal.User, id int64) error
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

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Service.ListAll(r.Context())
	if err != nil {
		h.Log(r).Error("ListDepartments: failed to get departments", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	resp := DepartmentsResponse{Departments: make([]DepartmentResponse, 0, len(departments))}
	for _, d := range departments {
		resp.Departments = append(resp.Departments, d.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.FindByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d.ToResponse())
}

func (h *Handler) GetDepartmentCost(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	cost, err := h.Service.CostFor(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CostResponse{DepartmentID: id, Cost: cost})
}

func (h *Handler) GetDepartmentOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.Service.Options(r.Context())
	if err != nil {
		h.Log(r).Error("GetDepartmentOptions: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"options": options})
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var dto CreateDepartmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.Create(r.Context(), user, dto)
	if err != nil {
		h.Log(r).Warn("CreateDepartment: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, d.ToResponse())
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateDepartmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.Update(r.Context(), user, id, dto)
	if err != nil {
		h.Log(r).Warn("UpdateDepartment: service error", "error", err, "department_id", id, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d.ToResponse())
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		h.Log(r).Warn("DeleteDepartment: service error", "error", err, "department_id", id, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
