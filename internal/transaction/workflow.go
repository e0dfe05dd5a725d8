package transaction

import (
	"github.com/frahmantamala/payflow/internal"
)

const (
	ActionApprove     = "approve"
	ActionMarkPending = "mark_pending"
	ActionMarkFailed  = "mark_failed"
)

// Transition is one admin action of the payment status machine.
type Transition struct {
	Action     string
	Target     string
	Capability string
	Label      string
	Color      string
	Notice     string
	allowed    func(t *Transaction) bool
}

var transitions = []Transition{
	{
		Action:     ActionApprove,
		Target:     StatusComplete,
		Capability: internal.ActionApprove,
		Label:      "Approve",
		Color:      "success",
		Notice:     "Transaction %s approved",
		allowed:    (*Transaction).CanApprove,
	},
	{
		Action:     ActionMarkPending,
		Target:     StatusPending,
		Capability: internal.ActionMarkPending,
		Label:      "Mark as Pending",
		Color:      "warning",
		Notice:     "Transaction %s marked as pending",
		allowed:    (*Transaction).CanMarkPending,
	},
	{
		Action:     ActionMarkFailed,
		Target:     StatusFailed,
		Capability: internal.ActionMarkFailed,
		Label:      "Mark as Failed",
		Color:      "danger",
		Notice:     "Transaction %s marked as failed",
		allowed:    (*Transaction).CanMarkFailed,
	},
}

func LookupTransition(action string) (Transition, bool) {
	for _, tr := range transitions {
		if tr.Action == action {
			return tr, true
		}
	}
	return Transition{}, false
}

// Next returns the status action leads to from t's current status.
func Next(t *Transaction, action string) (string, error) {
	tr, ok := LookupTransition(action)
	if !ok {
		return "", internal.NewValidationError("unknown action "+action, internal.ErrCodeValidationFailed)
	}
	if !tr.allowed(t) {
		return "", internal.NewInvalidTransitionError(t.PaymentStatus, action)
	}
	return tr.Target, nil
}

// AvailableActions lists the transitions valid from status, in table order.
func AvailableActions(status string) []Transition {
	candidate := &Transaction{PaymentStatus: status}
	var out []Transition
	for _, tr := range transitions {
		if tr.allowed(candidate) {
			out = append(out, tr)
		}
	}
	return out
}

// StatusColor is the badge colour for a status.
func StatusColor(status string) string {
	switch status {
	case StatusPending:
		return "warning"
	case StatusComplete:
		return "primary"
	case StatusFailed:
		return "danger"
	default:
		return "secondary"
	}
}
