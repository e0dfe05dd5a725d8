package transport

import (
	"errors"
	"net/http"
	"strings"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/storage"
)

// multipart bodies carry at most two images plus form fields
const maxMultipartMemory = 8 << 20

func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (h *BaseHandler) ParseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return internal.NewValidationError("invalid multipart form", internal.ErrCodeValidationFailed).WithCause(err)
	}
	return nil
}

// OptionalImage returns nil when the field carries no file.
func (h *BaseHandler) OptionalImage(r *http.Request, field string, v *storage.ImageValidator) (*storage.Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, internal.NewValidationFieldError(field, "could not read uploaded file", internal.ErrCodeInvalidFile)
	}
	defer file.Close()

	upload, appErr := v.Validate(field, header.Filename, file)
	if appErr != nil {
		return nil, appErr
	}
	return upload, nil
}

// RequiredImage is OptionalImage that rejects a missing file.
func (h *BaseHandler) RequiredImage(r *http.Request, field string, v *storage.ImageValidator) (*storage.Upload, error) {
	upload, err := h.OptionalImage(r, field, v)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, internal.NewValidationFieldError(field, field+" is required", internal.ErrCodeValidationFailed)
	}
	return upload, nil
}
