package auth

import (
	"strings"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email,max=150"`
	Password string `json:"password" validate:"required"`
}

func (d *LoginDTO) Validate() *internal.AppError {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	return validation.Struct(d)
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (d *RefreshTokenDTO) Validate() *internal.AppError {
	return validation.Struct(d)
}
