package user

import (
	"regexp"
	"strings"
	"time"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/common/validation"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags removes markup from free-text profile fields.
func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

type RegisterDTO struct {
	Name                 string `json:"name" validate:"required,max=100"`
	Email                string `json:"email" validate:"required,email,max=150"`
	Password             string `json:"password" validate:"required,min=4"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Phone                string `json:"phone" validate:"required,max=15,phone"`
}

func (d *RegisterDTO) Validate() *internal.AppError {
	d.Name = stripTags(d.Name)
	d.Email = strings.ToLower(stripTags(d.Email))
	d.Phone = stripTags(d.Phone)
	return validation.Struct(d)
}

// BiodataDTO is the self-service profile edit. An empty password keeps the current one.
type BiodataDTO struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=150"`
	Phone    string `json:"phone" validate:"required,max=15,phone"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

func (d *BiodataDTO) Validate() *internal.AppError {
	d.Name = stripTags(d.Name)
	d.Email = strings.ToLower(stripTags(d.Email))
	d.Phone = stripTags(d.Phone)
	return validation.Struct(d)
}

type CreateUserDTO struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Email       string   `json:"email" validate:"required,email,max=150"`
	Password    string   `json:"password" validate:"required,min=8"`
	Phone       string   `json:"phone" validate:"required,max=15,phone"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

func (d *CreateUserDTO) Validate() *internal.AppError {
	d.Name = stripTags(d.Name)
	d.Email = strings.ToLower(stripTags(d.Email))
	d.Phone = stripTags(d.Phone)
	return validation.Struct(d)
}

type UpdateUserDTO struct {
	Name        string    `json:"name" validate:"required,max=100"`
	Email       string    `json:"email" validate:"required,email,max=150"`
	Password    string    `json:"password" validate:"omitempty,min=8"`
	Phone       string    `json:"phone" validate:"required,max=15,phone"`
	Permissions *[]string `json:"permissions,omitempty"`
}

func (d *UpdateUserDTO) Validate() *internal.AppError {
	d.Name = stripTags(d.Name)
	d.Email = strings.ToLower(stripTags(d.Email))
	d.Phone = stripTags(d.Phone)
	return validation.Struct(d)
}

type BulkDeleteDTO struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

func (d *BulkDeleteDTO) Validate() *internal.AppError {
	return validation.Struct(d)
}

type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

type UserResponse struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Photo              string    `json:"photo,omitempty"`
	PhotoURL           string    `json:"photo_url,omitempty"`
	ScanCertificate    string    `json:"scan_certificate,omitempty"`
	ScanCertificateURL string    `json:"scan_certificate_url,omitempty"`
	Permissions        []string  `json:"permissions,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type UsersResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type BulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}
