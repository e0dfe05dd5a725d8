package internal

import "context"

const (
	ResourceDepartment   = "department"
	ResourceUser         = "user"
	ResourceTransaction  = "transaction"
	ResourceNotification = "notification"
)

const (
	ActionView          = "view"
	ActionViewAny       = "view_any"
	ActionCreate        = "create"
	ActionUpdate        = "update"
	ActionDelete        = "delete"
	ActionBulkDelete    = "bulk_delete"
	ActionApprove       = "approve"
	ActionMarkPending   = "mark_pending"
	ActionMarkFailed    = "mark_failed"
	ActionSubmitPayment = "submit_payment"
	// ActionActOnBehalf covers touching records owned by another user.
	ActionActOnBehalf = "act_on_behalf"
)

// Authorizer answers capability checks for a principal.
type Authorizer interface {
	CanPerform(ctx context.Context, principal *User, action, resource string) bool
}
