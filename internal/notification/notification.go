package notification

import (
	"fmt"
	"time"

	"github.com/frahmantamala/payflow/internal/core/events"
)

const (
	TypeStatusChanged    = "status_changed"
	TypePaymentSubmitted = "payment_submitted"
)

// ReviewQueue is the shared inbox read by everyone allowed to review transactions.
const ReviewQueue = "review"

type Notification struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	TransactionID int64     `json:"transaction_id"`
	Code          string    `json:"code"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserInbox names the inbox of a single user.
func UserInbox(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

var statusTitles = map[string]string{
	"pending":  "Payment reopened",
	"complete": "Payment approved",
	"failed":   "Payment failed",
}

func FromStatusChange(e *events.TransactionStatusChangedEvent) Notification {
	title, ok := statusTitles[e.ToStatus]
	if !ok {
		title = "Payment status changed"
	}
	return Notification{
		ID:            e.EventID(),
		Type:          TypeStatusChanged,
		Title:         title,
		Body:          fmt.Sprintf("Transaction %s moved from %s to %s", e.Code, e.FromStatus, e.ToStatus),
		TransactionID: e.TransactionID,
		Code:          e.Code,
		Status:        e.ToStatus,
		CreatedAt:     e.OccurredAt(),
	}
}

func FromPaymentSubmitted(e *events.PaymentSubmittedEvent) Notification {
	return Notification{
		ID:            e.EventID(),
		Type:          TypePaymentSubmitted,
		Title:         "Payment submitted",
		Body:          fmt.Sprintf("Transaction %s has a new %s payment proof waiting for review", e.Code, e.PaymentMethod),
		TransactionID: e.TransactionID,
		Code:          e.Code,
		CreatedAt:     e.OccurredAt(),
	}
}
