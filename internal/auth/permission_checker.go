package auth

import (
	"context"

	"github.com/frahmantamala/payflow/internal"
)

const (
	PermissionAdmin               = "admin"
	PermissionManageDepartments   = "manage_departments"
	PermissionManageUsers         = "manage_users"
	PermissionManageTransactions  = "manage_transactions"
	PermissionApproveTransactions = "approve_transactions"
	PermissionSubmitPayment       = "submit_payment"
	PermissionViewTransactions    = "view_transactions"
)

// DefaultStudentPermissions are granted on self-registration.
var DefaultStudentPermissions = []string{PermissionSubmitPayment, PermissionViewTransactions}

// AllPermissions is the seeded permission catalogue.
var AllPermissions = map[string]string{
	PermissionAdmin:               "Full access to every resource",
	PermissionManageDepartments:   "Create, edit and delete departments",
	PermissionManageUsers:         "Create, edit and delete users",
	PermissionManageTransactions:  "Manage transactions of any user",
	PermissionApproveTransactions: "Approve, reopen or fail transactions",
	PermissionSubmitPayment:       "Create own transactions and submit payment proof",
	PermissionViewTransactions:    "View own transactions",
}

// an empty list means any authenticated principal
var capabilities = map[string]map[string][]string{
	internal.ResourceDepartment: {
		internal.ActionView:   {},
		internal.ActionCreate: {PermissionManageDepartments},
		internal.ActionUpdate: {PermissionManageDepartments},
		internal.ActionDelete: {PermissionManageDepartments},
	},
	internal.ResourceUser: {
		internal.ActionViewAny:    {PermissionManageUsers},
		internal.ActionCreate:     {PermissionManageUsers},
		internal.ActionUpdate:     {PermissionManageUsers},
		internal.ActionDelete:     {PermissionManageUsers},
		internal.ActionBulkDelete: {PermissionManageUsers},
	},
	internal.ResourceTransaction: {
		internal.ActionView:          {PermissionViewTransactions, PermissionManageTransactions, PermissionApproveTransactions},
		internal.ActionViewAny:       {PermissionManageTransactions, PermissionApproveTransactions},
		internal.ActionCreate:        {PermissionSubmitPayment, PermissionManageTransactions},
		internal.ActionUpdate:        {PermissionManageTransactions},
		internal.ActionDelete:        {PermissionManageTransactions},
		internal.ActionBulkDelete:    {PermissionManageTransactions},
		internal.ActionApprove:       {PermissionApproveTransactions},
		internal.ActionMarkPending:   {PermissionApproveTransactions},
		internal.ActionMarkFailed:    {PermissionApproveTransactions},
		internal.ActionSubmitPayment: {PermissionSubmitPayment, PermissionManageTransactions},
		internal.ActionActOnBehalf:   {PermissionManageTransactions},
	},
	internal.ResourceNotification: {
		internal.ActionView:    {},
		internal.ActionViewAny: {PermissionApproveTransactions},
	},
}

// PermissionChecker implements internal.Authorizer over the permission names carried by the principal.
type PermissionChecker struct{}

func NewPermissionChecker() *PermissionChecker {
	return &PermissionChecker{}
}

func (c *PermissionChecker) CanPerform(ctx context.Context, principal *internal.User, action, resource string) bool {
	if principal == nil {
		return false
	}
	if principal.IsAdmin() {
		return true
	}

	actions, ok := capabilities[resource]
	if !ok {
		return false
	}
	required, ok := actions[action]
	if !ok {
		return false
	}
	if len(required) == 0 {
		return true
	}
	return principal.HasAnyPermission(required...)
}
