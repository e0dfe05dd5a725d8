package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/storage"
	"github.com/frahmantamala/payflow/internal/transport"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO, files Files) (*User, error)
	GetMe(ctx context.Context, principal *internal.User) (*User, error)
	UpdateBiodata(ctx context.Context, principal *internal.User, dto BiodataDTO, files Files) (*User, error)
	List(ctx context.Context, principal *internal.User, filter ListFilter) ([]*User, int64, error)
	Get(ctx context.Context, principal *internal.User, id int64) (*User, error)
	Create(ctx context.Context, principal *internal.User, dto CreateUserDTO, files Files) (*User, error)
	Update(ctx context.Context, principal *internal.User, id int64, dto UpdateUserDTO, files Files) (*User, error)
	Delete(ctx context.Context, principal *internal.User, id int64) error
	BulkDelete(ctx context.Context, principal *internal.User, dto BulkDeleteDTO) (int, error)
}

type URLResolver interface {
	URL(ref string) string
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Images  *storage.ImageValidator
	URLs    URLResolver
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, images *storage.ImageValidator, urls URLResolver) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Images:      images,
		URLs:        urls,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	files, err := h.bind(r, &dto, func() {
		dto.Name = r.FormValue("name")
		dto.Email = r.FormValue("email")
		dto.Password = r.FormValue("password")
		dto.PasswordConfirmation = r.FormValue("password_confirmation")
		dto.Phone = r.FormValue("phone")
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.Register(r.Context(), dto, files)
	if err != nil {
		h.Log(r).Warn("Register: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, h.toResponse(u))
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetMe(r.Context(), principal)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, h.toResponse(u))
}

func (h *Handler) UpdateBiodata(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var dto BiodataDTO
	files, err := h.bind(r, &dto, func() {
		dto.Name = r.FormValue("name")
		dto.Email = r.FormValue("email")
		dto.Phone = r.FormValue("phone")
		dto.Password = r.FormValue("password")
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.UpdateBiodata(r.Context(), principal, dto, files)
	if err != nil {
		h.Log(r).Warn("UpdateBiodata: service error", "error", err, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, h.toResponse(u))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	limit, offset := h.Pagination(r)
	filter := ListFilter{Search: r.URL.Query().Get("search"), Limit: limit, Offset: offset}

	users, total, err := h.Service.List(r.Context(), principal, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp := UsersResponse{Users: make([]UserResponse, 0, len(users)), Total: total, Limit: limit, Offset: offset}
	for _, u := range users {
		resp.Users = append(resp.Users, h.toResponse(u))
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.Get(r.Context(), principal, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, h.toResponse(u))
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var dto CreateUserDTO
	files, err := h.bind(r, &dto, func() {
		dto.Name = r.FormValue("name")
		dto.Email = r.FormValue("email")
		dto.Password = r.FormValue("password")
		dto.Phone = r.FormValue("phone")
		dto.Permissions = formList(r, "permissions")
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.Create(r.Context(), principal, dto, files)
	if err != nil {
		h.Log(r).Warn("CreateUser: service error", "error", err, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, h.toResponse(u))
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateUserDTO
	files, err := h.bind(r, &dto, func() {
		dto.Name = r.FormValue("name")
		dto.Email = r.FormValue("email")
		dto.Password = r.FormValue("password")
		dto.Phone = r.FormValue("phone")
		if _, present := r.MultipartForm.Value["permissions"]; present {
			permissions := formList(r, "permissions")
			dto.Permissions = &permissions
		}
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.Update(r.Context(), principal, id, dto, files)
	if err != nil {
		h.Log(r).Warn("UpdateUser: service error", "error", err, "target_id", id, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, h.toResponse(u))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), principal, id); err != nil {
		h.Log(r).Warn("DeleteUser: service error", "error", err, "target_id", id, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BulkDeleteUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var dto BulkDeleteDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	deleted, err := h.Service.BulkDelete(r.Context(), principal, dto)
	if err != nil {
		h.Log(r).Warn("BulkDeleteUsers: service error", "error", err, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, BulkDeleteResponse{Deleted: deleted})
}

// bind fills dst from a JSON body, or from a multipart form through fromForm together with
// the optional photo and scan_certificate uploads.
func (h *Handler) bind(r *http.Request, dst interface{}, fromForm func()) (Files, error) {
	if !transport.IsMultipart(r) {
		return Files{}, h.DecodeJSON(r, dst)
	}

	if err := h.ParseMultipart(r); err != nil {
		return Files{}, err
	}
	fromForm()

	photo, err := h.OptionalImage(r, "photo", h.Images)
	if err != nil {
		return Files{}, err
	}
	certificate, err := h.OptionalImage(r, "scan_certificate", h.Images)
	if err != nil {
		return Files{}, err
	}
	return Files{Photo: photo, ScanCertificate: certificate}, nil
}

func (h *Handler) toResponse(u *User) UserResponse {
	resp := UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Phone:           u.Phone,
		Photo:           u.PhotoRef(),
		ScanCertificate: u.CertificateRef(),
		Permissions:     u.Permissions,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if h.URLs != nil {
		if resp.Photo != "" {
			resp.PhotoURL = h.URLs.URL(resp.Photo)
		}
		if resp.ScanCertificate != "" {
			resp.ScanCertificateURL = h.URLs.URL(resp.ScanCertificate)
		}
	}
	return resp
}

// formList accepts repeated fields as well as one comma-separated value.
func formList(r *http.Request, field string) []string {
	var out []string
	for _, raw := range r.MultipartForm.Value[field] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
