package auth_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/auth"
)

var _ = Describe("PermissionChecker", func() {
	var (
		checker *auth.PermissionChecker
		ctx     context.Context
		student *internal.User
		finance *internal.User
		admin   *internal.User
	)

	BeforeEach(func() {
		checker = auth.NewPermissionChecker()
		ctx = context.Background()
		student = &internal.User{ID: 2, Permissions: auth.DefaultStudentPermissions}
		finance = &internal.User{ID: 3, Permissions: []string{auth.PermissionApproveTransactions}}
		admin = &internal.User{ID: 1, Permissions: []string{auth.PermissionAdmin}}
	})

	DescribeTable("capabilities",
		func(who string, action, resource string, expected bool) {
			principal := map[string]*internal.User{"student": student, "finance": finance, "admin": admin}[who]
			Expect(checker.CanPerform(ctx, principal, action, resource)).To(Equal(expected))
		},
		Entry("student submits payment", "student", internal.ActionSubmitPayment, internal.ResourceTransaction, true),
		Entry("student creates transaction", "student", internal.ActionCreate, internal.ResourceTransaction, true),
		Entry("student cannot approve", "student", internal.ActionApprove, internal.ResourceTransaction, false),
		Entry("student cannot act for others", "student", internal.ActionActOnBehalf, internal.ResourceTransaction, false),
		Entry("student views departments", "student", internal.ActionView, internal.ResourceDepartment, true),
		Entry("student cannot create departments", "student", internal.ActionCreate, internal.ResourceDepartment, false),
		Entry("finance approves", "finance", internal.ActionApprove, internal.ResourceTransaction, true),
		Entry("finance marks failed", "finance", internal.ActionMarkFailed, internal.ResourceTransaction, true),
		Entry("finance cannot delete users", "finance", internal.ActionDelete, internal.ResourceUser, false),
		Entry("admin does everything", "admin", internal.ActionBulkDelete, internal.ResourceUser, true),
		Entry("unknown action", "student", "launch", internal.ResourceTransaction, false),
	)

	It("should deny a nil principal", func() {
		Expect(checker.CanPerform(ctx, nil, internal.ActionView, internal.ResourceDepartment)).To(BeFalse())
	})
})
