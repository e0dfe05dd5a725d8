package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTransactionStatusChanged = "transaction.status_changed"
	EventTypePaymentSubmitted         = "transaction.payment_submitted"
)

type TransactionStatusChangedEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	Code          string `json:"code"`
	UserID        int64  `json:"user_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	ActorID       int64  `json:"actor_id"`
}

func NewTransactionStatusChangedEvent(transactionID int64, code string, userID int64, from, to string, actorID int64) *TransactionStatusChangedEvent {
	return &TransactionStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransactionStatusChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"code":           code,
				"user_id":        userID,
				"from_status":    from,
				"to_status":      to,
				"actor_id":       actorID,
			},
		},
		TransactionID: transactionID,
		Code:          code,
		UserID:        userID,
		FromStatus:    from,
		ToStatus:      to,
		ActorID:       actorID,
	}
}

type PaymentSubmittedEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	Code          string `json:"code"`
	UserID        int64  `json:"user_id"`
	PaymentMethod string `json:"payment_method"`
	PaymentProof  string `json:"payment_proof"`
}

func NewPaymentSubmittedEvent(transactionID int64, code string, userID int64, method, proof string) *PaymentSubmittedEvent {
	return &PaymentSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentSubmitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id": transactionID,
				"code":           code,
				"user_id":        userID,
				"payment_method": method,
				"payment_proof":  proof,
			},
		},
		TransactionID: transactionID,
		Code:          code,
		UserID:        userID,
		PaymentMethod: method,
		PaymentProof:  proof,
	}
}
