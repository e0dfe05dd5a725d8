package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
)

type User struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	PasswordHash    string    `json:"-"`
	Photo           *string   `json:"photo,omitempty"`
	ScanCertificate *string   `json:"scan_certificate,omitempty"`
	Permissions     []string  `json:"permissions,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) PhotoRef() string {
	return deref(u.Photo)
}

func (u *User) CertificateRef() string {
	return deref(u.ScanCertificate)
}

// StoredFiles lists every file reference the user owns.
func (u *User) StoredFiles() []string {
	var refs []string
	if ref := u.PhotoRef(); ref != "" {
		refs = append(refs, ref)
	}
	if ref := u.CertificateRef(); ref != "" {
		refs = append(refs, ref)
	}
	return refs
}

// Removal reports what a delete took out of the store.
type Removal struct {
	Count int
	Files []string
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Phone:           u.Phone,
		Photo:           u.Photo,
		ScanCertificate: u.ScanCertificate,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Phone:           u.Phone,
		Photo:           u.Photo,
		ScanCertificate: u.ScanCertificate,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
