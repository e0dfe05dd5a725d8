package transaction

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/common/validation"
)

type CreateTransactionDTO struct {
	Code          string `json:"code" validate:"omitempty,max=32"`
	UserID        int64  `json:"user_id" validate:"omitempty,gt=0"`
	DepartmentID  int64  `json:"department_id" validate:"required,gt=0"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cash transfer digital_wallet"`
}

func (d *CreateTransactionDTO) Validate() *errors.AppError {
	d.Code = strings.TrimSpace(d.Code)
	d.PaymentMethod = strings.TrimSpace(d.PaymentMethod)
	return validation.Struct(d)
}

type UpdateTransactionDTO struct {
	UserID        int64  `json:"user_id" validate:"required,gt=0"`
	DepartmentID  int64  `json:"department_id" validate:"required,gt=0"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cash transfer digital_wallet"`
}

func (d *UpdateTransactionDTO) Validate() *errors.AppError {
	d.PaymentMethod = strings.TrimSpace(d.PaymentMethod)
	return validation.Struct(d)
}

// SubmitPaymentDTO carries a proof that is already in file storage.
type SubmitPaymentDTO struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash transfer digital_wallet"`
	PaymentProof  string `json:"payment_proof" validate:"required,max=255"`
}

func (d *SubmitPaymentDTO) Validate() *errors.AppError {
	d.PaymentMethod = strings.TrimSpace(d.PaymentMethod)
	d.PaymentProof = strings.TrimSpace(d.PaymentProof)
	return validation.Struct(d)
}

type BulkDeleteDTO struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

func (d *BulkDeleteDTO) Validate() *errors.AppError {
	return validation.Struct(d)
}

type ListFilter struct {
	Status       string `json:"payment_status" validate:"omitempty,oneof=pending complete failed"`
	UserID       int64  `json:"user_id" validate:"gte=0"`
	DepartmentID int64  `json:"department_id" validate:"gte=0"`
	Search       string `json:"search" validate:"max=100"`
	Limit        int    `json:"-"`
	Offset       int    `json:"-"`
}

func (f *ListFilter) Validate() *errors.AppError {
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	f.Search = strings.TrimSpace(f.Search)
	return validation.Struct(f)
}

type DepartmentSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Semester int    `json:"semester"`
	Label    string `json:"label"`
}

type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type ActionResponse struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	Color  string `json:"color"`
}

// TransactionView is a transaction joined with the data shown next to it. DepartmentCost is
// resolved from the department at read time and never stored.
type TransactionView struct {
	ID              int64             `json:"id"`
	Code            string            `json:"code"`
	PaymentMethod   string            `json:"payment_method,omitempty"`
	PaymentStatus   string            `json:"payment_status"`
	StatusColor     string            `json:"status_color"`
	PaymentProof    string            `json:"payment_proof,omitempty"`
	PaymentProofURL string            `json:"payment_proof_url,omitempty"`
	DepartmentCost  int64             `json:"department_cost"`
	Department      DepartmentSummary `json:"department"`
	User            UserSummary       `json:"user"`
	Actions         []ActionResponse  `json:"actions"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type TransactionsResponse struct {
	Transactions []*TransactionView `json:"transactions"`
	Total        int64              `json:"total"`
	Limit        int                `json:"limit"`
	Offset       int                `json:"offset"`
}

type TransitionResponse struct {
	Transaction  *TransactionView `json:"transaction"`
	Notification string           `json:"notification"`
}

type MethodOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// PaymentForm is everything the payment submission page renders.
type PaymentForm struct {
	Transaction   *TransactionView `json:"transaction"`
	Methods       []MethodOption   `json:"payment_methods"`
	AcceptedTypes []string         `json:"accepted_types"`
	MaxUploadKB   int64            `json:"max_upload_kb"`
}

type PaymentSubmittedResponse struct {
	Transaction  *TransactionView `json:"transaction"`
	Notification string           `json:"notification"`
	Message      string           `json:"message"`
}

type StatusSummary struct {
	Status    string `json:"payment_status" db:"payment_status"`
	Count     int64  `json:"count" db:"count"`
	TotalCost int64  `json:"total_cost" db:"total_cost"`
}

type SummaryResponse struct {
	Statuses []StatusSummary `json:"statuses"`
	Total    int64           `json:"total"`
}

type BulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// Removal reports what a delete took out of the store.
type Removal struct {
	Count  int
	Proofs []string
}

func MethodOptions() []MethodOption {
	return []MethodOption{
		{Value: MethodCash, Label: "Cash"},
		{Value: MethodTransfer, Label: "Transfer"},
		{Value: MethodDigitalWallet, Label: "Digital Wallet"},
	}
}
