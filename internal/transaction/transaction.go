package transaction

import (
	"time"

	transactionDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/transaction"
)

const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

const (
	MethodCash          = "cash"
	MethodTransfer      = "transfer"
	MethodDigitalWallet = "digital_wallet"
)

var (
	Statuses = []string{StatusPending, StatusComplete, StatusFailed}
	Methods  = []string{MethodCash, MethodTransfer, MethodDigitalWallet}
)

type Transaction struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	UserID        int64     `json:"user_id"`
	DepartmentID  int64     `json:"department_id"`
	PaymentMethod *string   `json:"payment_method,omitempty"`
	PaymentStatus string    `json:"payment_status"`
	PaymentProof  *string   `json:"payment_proof,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (t *Transaction) CanApprove() bool {
	return t.PaymentStatus == StatusPending
}

func (t *Transaction) CanMarkPending() bool {
	return t.PaymentStatus != StatusPending
}

func (t *Transaction) CanMarkFailed() bool {
	return t.PaymentStatus != StatusFailed
}

func (t *Transaction) Method() string {
	if t.PaymentMethod == nil {
		return ""
	}
	return *t.PaymentMethod
}

func (t *Transaction) Proof() string {
	if t.PaymentProof == nil {
		return ""
	}
	return *t.PaymentProof
}

func (t *Transaction) OwnedBy(userID int64) bool {
	return t.UserID == userID
}

func NewTransaction(code string, userID, departmentID int64, method string) *Transaction {
	now := time.Now()
	t := &Transaction{
		Code:          code,
		UserID:        userID,
		DepartmentID:  departmentID,
		PaymentStatus: StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if method != "" {
		t.PaymentMethod = &method
	}
	return t
}

func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func IsValidMethod(method string) bool {
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}

func ToDataModel(t *Transaction) *transactionDatamodel.Transaction {
	return &transactionDatamodel.Transaction{
		ID:            t.ID,
		Code:          t.Code,
		UserID:        t.UserID,
		DepartmentID:  t.DepartmentID,
		PaymentMethod: t.PaymentMethod,
		PaymentStatus: t.PaymentStatus,
		PaymentProof:  t.PaymentProof,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func FromDataModel(t *transactionDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:            t.ID,
		Code:          t.Code,
		UserID:        t.UserID,
		DepartmentID:  t.DepartmentID,
		PaymentMethod: t.PaymentMethod,
		PaymentStatus: t.PaymentStatus,
		PaymentProof:  t.PaymentProof,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
