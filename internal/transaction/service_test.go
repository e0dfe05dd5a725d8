package transaction_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/payflow/internal"
	transactionDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
	"github.com/frahmantamala/payflow/internal/core/events"
	"github.com/frahmantamala/payflow/internal/core/testutil"
	"github.com/frahmantamala/payflow/internal/department"
	"github.com/frahmantamala/payflow/internal/storage"
	"github.com/frahmantamala/payflow/internal/transaction"
)

// MockRepository is a goroutine-safe store that enforces code uniqueness and applies
// status updates as compare-and-set, like the database does.
type MockRepository struct {
	mu             sync.Mutex
	transactions   map[int64]*transactionDatamodel.Transaction
	nextID         int64
	updatePayments int
	failPayment    error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{transactions: make(map[int64]*transactionDatamodel.Transaction)}
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*transactionDatamodel.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, internal.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockRepository) List(ctx context.Context, filter transaction.ListFilter) ([]*transactionDatamodel.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*transactionDatamodel.Transaction
	for i := int64(1); i <= m.nextID; i++ {
		t, ok := m.transactions[i]
		if !ok {
			continue
		}
		if filter.UserID > 0 && t.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && t.PaymentStatus != filter.Status {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}
	return result, int64(len(result)), nil
}

func (m *MockRepository) Create(ctx context.Context, t *transactionDatamodel.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.transactions {
		if existing.Code == t.Code {
			return internal.NewConstraintViolation("code", nil)
		}
	}
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.transactions[t.ID] = &cp
	return nil
}

func (m *MockRepository) Update(ctx context.Context, t *transactionDatamodel.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.transactions[t.ID]
	if !ok {
		return internal.ErrTransactionNotFound
	}
	existing.UserID = t.UserID
	existing.DepartmentID = t.DepartmentID
	existing.PaymentMethod = t.PaymentMethod
	return nil
}

func (m *MockRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return internal.ErrTransactionNotFound
	}
	if t.PaymentStatus != from {
		return internal.ErrInvalidTransition
	}
	t.PaymentStatus = to
	return nil
}

func (m *MockRepository) UpdatePayment(ctx context.Context, id int64, method, proof string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPayment != nil {
		return "", m.failPayment
	}
	t, ok := m.transactions[id]
	if !ok {
		return "", internal.ErrTransactionNotFound
	}
	var previous string
	if t.PaymentProof != nil {
		previous = *t.PaymentProof
	}
	t.PaymentMethod = &method
	t.PaymentProof = &proof
	m.updatePayments++
	return previous, nil
}

func (m *MockRepository) DeleteByIDs(ctx context.Context, ids []int64) (*transaction.Removal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removal := &transaction.Removal{}
	for _, id := range ids {
		t, ok := m.transactions[id]
		if !ok {
			continue
		}
		if t.PaymentProof != nil {
			removal.Proofs = append(removal.Proofs, *t.PaymentProof)
		}
		delete(m.transactions, id)
		removal.Count++
	}
	return removal, nil
}

func (m *MockRepository) status(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions[id].PaymentStatus
}

func (m *MockRepository) codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.transactions))
	for _, t := range m.transactions {
		codes = append(codes, t.Code)
	}
	return codes
}

type fakeDepartments struct {
	mu          sync.Mutex
	departments map[int64]*department.Department
}

func (f *fakeDepartments) FindByID(ctx context.Context, id int64) (*department.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.departments[id]
	if !ok {
		return nil, internal.ErrDepartmentNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDepartments) CostFor(ctx context.Context, id int64) (int64, error) {
	d, err := f.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return d.Cost, nil
}

func (f *fakeDepartments) setCost(id, cost int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.departments[id].Cost = cost
}

type fakeUsers map[int64]*userDatamodel.User

func (f fakeUsers) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) PublishSync(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fakeSummary struct {
	rows   []transaction.StatusSummary
	userID int64
}

func (f *fakeSummary) Summary(ctx context.Context, userID int64) ([]transaction.StatusSummary, error) {
	f.userID = userID
	return f.rows, nil
}

// roleAuthorizer lets admins do everything and students only act on their own rows.
type roleAuthorizer struct{}

func (roleAuthorizer) CanPerform(ctx context.Context, principal *internal.User, action, resource string) bool {
	if principal == nil {
		return false
	}
	if principal.IsAdmin() {
		return true
	}
	switch action {
	case internal.ActionView, internal.ActionCreate, internal.ActionSubmitPayment:
		return true
	}
	return false
}

var _ = Describe("Transaction Service", func() {
	var (
		mockRepo    *MockRepository
		departments *fakeDepartments
		files       *testutil.MemoryFileStore
		publisher   *recordingPublisher
		summary     *fakeSummary
		service     *transaction.Service
		admin       *internal.User
		student     *internal.User
		ctx         context.Context
		logger      *slog.Logger
	)

	newService := func(attempts int) *transaction.Service {
		return transaction.NewService(mockRepo, transaction.Collaborators{
			Departments: departments,
			Users: fakeUsers{
				1: {ID: 1, Name: "Admin", Phone: "0800000001"},
				2: {ID: 2, Name: "Budi", Phone: "0812345678"},
				3: {ID: 3, Name: "Siti", Phone: "0898765432"},
			},
			Authorizer: roleAuthorizer{},
			Files:      files,
			Events:     publisher,
			Summary:    summary,
		}, internal.TransactionConfig{CodeMaxAttempts: attempts}, 2048, logger)
	}

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		departments = &fakeDepartments{departments: map[int64]*department.Department{
			1: {ID: 1, Name: "Informatics", Semester: 1, Cost: 500000},
		}}
		files = testutil.NewMemoryFileStore()
		publisher = &recordingPublisher{}
		summary = &fakeSummary{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = newService(5)
		admin = &internal.User{ID: 1, Permissions: []string{"admin"}}
		student = &internal.User{ID: 2, Permissions: []string{"submit_payment", "view_transactions"}}
		ctx = context.Background()
	})

	create := func() *transaction.TransactionView {
		view, err := service.Create(ctx, student, transaction.CreateTransactionDTO{DepartmentID: 1, PaymentMethod: transaction.MethodTransfer})
		Expect(err).NotTo(HaveOccurred())
		return view
	}

	proof := func(id int64, name string) string {
		return storage.ProofDir(id) + "/" + name
	}

	submit := func(id int64, ref string) (*transaction.TransactionView, error) {
		return service.SubmitPayment(ctx, student, id, transaction.SubmitPaymentDTO{PaymentMethod: transaction.MethodTransfer, PaymentProof: ref})
	}

	Describe("Scenario A: creating a transaction", func() {
		It("should start pending and resolve the department cost at display time", func() {
			view := create()

			Expect(view.PaymentStatus).To(Equal(transaction.StatusPending))
			Expect(view.PaymentMethod).To(Equal(transaction.MethodTransfer))
			Expect(view.DepartmentCost).To(Equal(int64(500000)))
			Expect(view.Department.Label).To(Equal("Informatics - Semester 1"))
			Expect(transaction.IsValidCode(view.Code)).To(BeTrue())
		})

		It("should show the current cost, not a snapshot", func() {
			view := create()
			departments.setCost(1, 650000)

			reloaded, err := service.Get(ctx, student, view.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.DepartmentCost).To(Equal(int64(650000)))
		})

		It("should fail for an unknown department", func() {
			_, err := service.Create(ctx, student, transaction.CreateTransactionDTO{DepartmentID: 9})

			Expect(err).To(MatchError(internal.ErrDepartmentNotFound))
		})

		It("should reject an unknown payment method", func() {
			_, err := service.Create(ctx, student, transaction.CreateTransactionDTO{DepartmentID: 1, PaymentMethod: "cheque"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			details := appErr.Details.(internal.ValidationErrors)
			Expect(details.Errors[0].Code).To(Equal(string(internal.ErrCodeInvalidPaymentMethod)))
		})

		It("should let an admin create for another user but not a student", func() {
			view, err := service.Create(ctx, admin, transaction.CreateTransactionDTO{UserID: 3, DepartmentID: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.User.ID).To(Equal(int64(3)))

			_, err = service.Create(ctx, student, transaction.CreateTransactionDTO{UserID: 3, DepartmentID: 1})
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("Scenario B: first proof submission", func() {
		It("should set the proof, keep the status and delete nothing", func() {
			view := create()
			files.Put(proof(view.ID, "first.jpg"))

			updated, err := submit(view.ID, proof(view.ID, "first.jpg"))

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PaymentProof).To(Equal(proof(view.ID, "first.jpg")))
			Expect(updated.PaymentProofURL).To(Equal("/storage/" + proof(view.ID, "first.jpg")))
			Expect(updated.PaymentStatus).To(Equal(transaction.StatusPending))
			Expect(files.Deleted).To(BeEmpty())
			Expect(mockRepo.updatePayments).To(Equal(1))
		})

		It("should publish a payment submitted event", func() {
			view := create()
			files.Put(proof(view.ID, "first.jpg"))

			_, err := submit(view.ID, proof(view.ID, "first.jpg"))

			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.events).To(HaveLen(1))
			Expect(publisher.events[0].EventType()).To(Equal(events.EventTypePaymentSubmitted))
		})
	})

	Describe("Scenario C: approving", func() {
		It("should complete a pending transaction and refuse a second approval", func() {
			// Given
			view := create()

			// When
			resp, err := service.Approve(ctx, admin, view.ID)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Transaction.PaymentStatus).To(Equal(transaction.StatusComplete))
			Expect(resp.Notification).To(ContainSubstring(view.Code))

			_, err = service.Approve(ctx, admin, view.ID)
			Expect(err).To(MatchError(internal.ErrInvalidTransition))
			Expect(mockRepo.status(view.ID)).To(Equal(transaction.StatusComplete))
		})

		It("should publish the status change for the owner", func() {
			view := create()

			_, err := service.Approve(ctx, admin, view.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.events).To(HaveLen(1))
			changed, ok := publisher.events[0].(*events.TransactionStatusChangedEvent)
			Expect(ok).To(BeTrue())
			Expect(changed.UserID).To(Equal(student.ID))
			Expect(changed.FromStatus).To(Equal(transaction.StatusPending))
			Expect(changed.ToStatus).To(Equal(transaction.StatusComplete))
			Expect(changed.ActorID).To(Equal(admin.ID))
		})

		It("should keep the transition when event delivery fails", func() {
			view := create()
			publisher.err = fmt.Errorf("inbox down")

			_, err := service.Approve(ctx, admin, view.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.status(view.ID)).To(Equal(transaction.StatusComplete))
		})

		It("should deny a student", func() {
			view := create()

			_, err := service.Approve(ctx, student, view.ID)

			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
			Expect(mockRepo.status(view.ID)).To(Equal(transaction.StatusPending))
		})

		It("should return not found for a missing transaction", func() {
			_, err := service.Approve(ctx, admin, 404)

			Expect(err).To(MatchError(internal.ErrTransactionNotFound))
		})

		It("should let exactly one of two racing approvals win", func() {
			view := create()

			var wg sync.WaitGroup
			results := make(chan error, 2)
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := service.Approve(ctx, admin, view.ID)
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			var succeeded, rejected int
			for err := range results {
				if err == nil {
					succeeded++
					continue
				}
				Expect(err).To(MatchError(internal.ErrInvalidTransition))
				rejected++
			}
			Expect(succeeded).To(Equal(1))
			Expect(rejected).To(Equal(1))
		})
	})

	Describe("Scenario D: failing and reopening", func() {
		It("should move complete to failed and back to pending", func() {
			view := create()
			_, err := service.Approve(ctx, admin, view.ID)
			Expect(err).NotTo(HaveOccurred())

			resp, err := service.MarkFailed(ctx, admin, view.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Transaction.PaymentStatus).To(Equal(transaction.StatusFailed))
			Expect(resp.Transaction.StatusColor).To(Equal("danger"))

			resp, err = service.MarkPending(ctx, admin, view.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Transaction.PaymentStatus).To(Equal(transaction.StatusPending))
		})

		It("should refuse markPending on a pending transaction and markFailed on a failed one", func() {
			view := create()

			_, err := service.MarkPending(ctx, admin, view.ID)
			Expect(err).To(MatchError(internal.ErrInvalidTransition))

			_, err = service.MarkFailed(ctx, admin, view.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.MarkFailed(ctx, admin, view.ID)
			Expect(err).To(MatchError(internal.ErrInvalidTransition))
			Expect(mockRepo.status(view.ID)).To(Equal(transaction.StatusFailed))
		})

		It("should always leave the status inside the closed set", func() {
			view := create()
			actions := []string{
				transaction.ActionApprove, transaction.ActionApprove, transaction.ActionMarkFailed,
				transaction.ActionMarkPending, transaction.ActionMarkPending, transaction.ActionMarkFailed,
				transaction.ActionApprove, transaction.ActionMarkPending, transaction.ActionApprove,
			}
			for _, action := range actions {
				_, _ = service.Transition(ctx, admin, view.ID, action)
				Expect(transaction.IsValidStatus(mockRepo.status(view.ID))).To(BeTrue())
			}
		})

		It("should expose the matching actions on the view", func() {
			view := create()
			Expect(view.Actions).To(HaveLen(2))
			Expect(view.Actions[0].Action).To(Equal(transaction.ActionApprove))
		})
	})

	Describe("Scenario E: replacing the proof", func() {
		It("should delete the old file exactly once and persist the new reference", func() {
			// Given
			view := create()
			files.Put(proof(view.ID, "old.jpg"))
			files.Put(proof(view.ID, "new.jpg"))
			_, err := submit(view.ID, proof(view.ID, "old.jpg"))
			Expect(err).NotTo(HaveOccurred())

			// When
			updated, err := submit(view.ID, proof(view.ID, "new.jpg"))

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PaymentProof).To(Equal(proof(view.ID, "new.jpg")))
			Expect(files.Deleted).To(Equal([]string{proof(view.ID, "old.jpg")}))
			Expect(files.Has(proof(view.ID, "new.jpg"))).To(BeTrue())
			Expect(mockRepo.updatePayments).To(Equal(2))
		})

		It("should delete nothing when the same reference is submitted again", func() {
			view := create()
			files.Put(proof(view.ID, "same.jpg"))
			_, err := submit(view.ID, proof(view.ID, "same.jpg"))
			Expect(err).NotTo(HaveOccurred())

			_, err = submit(view.ID, proof(view.ID, "same.jpg"))

			Expect(err).NotTo(HaveOccurred())
			Expect(files.Deleted).To(BeEmpty())
			Expect(files.Has(proof(view.ID, "same.jpg"))).To(BeTrue())
		})

		It("should still succeed when the old file cannot be deleted", func() {
			view := create()
			files.Put(proof(view.ID, "old.jpg"))
			_, err := submit(view.ID, proof(view.ID, "old.jpg"))
			Expect(err).NotTo(HaveOccurred())
			files.Put(proof(view.ID, "new.jpg"))
			files.FailDelete = true

			updated, err := submit(view.ID, proof(view.ID, "new.jpg"))

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PaymentProof).To(Equal(proof(view.ID, "new.jpg")))
		})

		It("should not change an approved status", func() {
			view := create()
			_, err := service.Approve(ctx, admin, view.ID)
			Expect(err).NotTo(HaveOccurred())
			files.Put(proof(view.ID, "late.jpg"))

			updated, err := submit(view.ID, proof(view.ID, "late.jpg"))

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PaymentStatus).To(Equal(transaction.StatusComplete))
		})
	})

	Describe("SubmitPayment validation and ownership", func() {
		It("should require a payment method from the closed set", func() {
			view := create()

			_, err := service.SubmitPayment(ctx, student, view.ID, transaction.SubmitPaymentDTO{PaymentMethod: "cheque", PaymentProof: "x.jpg"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(mockRepo.updatePayments).To(BeZero())
		})

		It("should refuse another student's transaction", func() {
			view := create()
			other := &internal.User{ID: 3, Permissions: []string{"submit_payment"}}

			_, err := service.SubmitPayment(ctx, other, view.ID, transaction.SubmitPaymentDTO{PaymentMethod: transaction.MethodCash, PaymentProof: "x.jpg"})

			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("SubmitPayment proof references", func() {
		expectInvalidProof := func(err error) {
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			details := appErr.Details.(internal.ValidationErrors)
			Expect(details.Errors[0].Field).To(Equal("payment_proof"))
			Expect(details.Errors[0].Code).To(Equal(string(internal.ErrCodeInvalidPaymentProof)))
		}

		It("should refuse a file stored for another user and leave it alone", func() {
			// Given
			view := create()
			files.Put("user_certificates/victim.png")

			// When
			_, err := submit(view.ID, "user_certificates/victim.png")

			// Then
			expectInvalidProof(err)
			Expect(mockRepo.updatePayments).To(BeZero())

			files.Put(proof(view.ID, "mine.jpg"))
			_, err = submit(view.ID, proof(view.ID, "mine.jpg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(files.Has("user_certificates/victim.png")).To(BeTrue())
			Expect(files.Deleted).To(BeEmpty())
		})

		It("should refuse the proof of another transaction", func() {
			mine := create()
			theirs, err := service.Create(ctx, admin, transaction.CreateTransactionDTO{UserID: 3, DepartmentID: 1})
			Expect(err).NotTo(HaveOccurred())
			files.Put(proof(theirs.ID, "theirs.jpg"))

			_, err = submit(mine.ID, proof(theirs.ID, "theirs.jpg"))

			expectInvalidProof(err)
			Expect(files.Has(proof(theirs.ID, "theirs.jpg"))).To(BeTrue())
		})

		It("should refuse a reference that was never stored", func() {
			view := create()

			_, err := submit(view.ID, proof(view.ID, "ghost.jpg"))

			expectInvalidProof(err)
		})

		It("should refuse a reference escaping the proof directory", func() {
			view := create()
			files.Put("user_photos/face.jpg")

			_, err := submit(view.ID, proof(view.ID, "../../user_photos/face.jpg"))

			expectInvalidProof(err)
			Expect(files.Has("user_photos/face.jpg")).To(BeTrue())
		})

		It("should refuse a non image reference", func() {
			view := create()
			files.Put(proof(view.ID, "notes.txt"))

			_, err := submit(view.ID, proof(view.ID, "notes.txt"))

			expectInvalidProof(err)
		})

		It("should keep a previous proof outside the transaction directory", func() {
			view := create()
			_, err := mockRepo.UpdatePayment(ctx, view.ID, transaction.MethodCash, "user_photos/legacy.jpg")
			Expect(err).NotTo(HaveOccurred())
			files.Put("user_photos/legacy.jpg")
			files.Put(proof(view.ID, "new.jpg"))

			updated, err := submit(view.ID, proof(view.ID, "new.jpg"))

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PaymentProof).To(Equal(proof(view.ID, "new.jpg")))
			Expect(files.Has("user_photos/legacy.jpg")).To(BeTrue())
		})
	})

	Describe("SubmitPaymentUpload", func() {
		upload := func() *storage.Upload {
			return &storage.Upload{Filename: "bukti.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}
		}

		It("should store the proof and replace the previous one", func() {
			view := create()
			first, err := service.SubmitPaymentUpload(ctx, student, view.ID, transaction.MethodTransfer, upload())
			Expect(err).NotTo(HaveOccurred())

			second, err := service.SubmitPaymentUpload(ctx, student, view.ID, transaction.MethodDigitalWallet, upload())

			Expect(err).NotTo(HaveOccurred())
			Expect(second.PaymentProof).NotTo(Equal(first.PaymentProof))
			Expect(second.PaymentMethod).To(Equal(transaction.MethodDigitalWallet))
			Expect(files.Has(first.PaymentProof)).To(BeFalse())
			Expect(files.Count()).To(Equal(1))
			Expect(second.PaymentProof).To(HavePrefix(storage.ProofDir(view.ID) + "/"))
		})

		It("should remove the stored file when the update fails", func() {
			view := create()
			mockRepo.failPayment = fmt.Errorf("connection reset")

			_, err := service.SubmitPaymentUpload(ctx, student, view.ID, transaction.MethodTransfer, upload())

			Expect(err).To(HaveOccurred())
			Expect(files.Count()).To(BeZero())
		})

		It("should not store anything for an invalid method", func() {
			view := create()

			_, err := service.SubmitPaymentUpload(ctx, student, view.ID, "", upload())

			Expect(err).To(HaveOccurred())
			Expect(files.Count()).To(BeZero())
		})

		It("should require the proof", func() {
			view := create()

			_, err := service.SubmitPaymentUpload(ctx, student, view.ID, transaction.MethodCash, nil)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Code generation", func() {
		It("should retry a colliding generated code", func() {
			// Given
			draws := []int{7, 7, 8}
			var mu sync.Mutex
			clock := func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }
			service.WithCodeGenerator(transaction.NewCodeGeneratorWith(clock, func(int) int {
				mu.Lock()
				defer mu.Unlock()
				n := draws[0]
				if len(draws) > 1 {
					draws = draws[1:]
				}
				return n
			}))

			// When
			first := create()
			second := create()

			// Then
			Expect(first.Code).To(Equal("TRX-20250102-0000007"))
			Expect(second.Code).To(Equal("TRX-20250102-0000008"))
		})

		It("should give up after the configured attempts", func() {
			service = newService(3)
			service.WithCodeGenerator(transaction.NewCodeGeneratorWith(time.Now, func(int) int { return 1 }))
			create()

			_, err := service.Create(ctx, student, transaction.CreateTransactionDTO{DepartmentID: 1})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeCodeExhausted))
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("should not retry a caller supplied code", func() {
			_, err := service.Create(ctx, admin, transaction.CreateTransactionDTO{Code: "TRX-20250101-0000001", DepartmentID: 1})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, admin, transaction.CreateTransactionDTO{Code: "TRX-20250101-0000001", DepartmentID: 1})

			Expect(err).To(MatchError(internal.ErrConstraintViolation))
		})

		It("should persist 10,000 concurrently created transactions with unique codes", func() {
			const total = 10_000
			var wg sync.WaitGroup
			sem := make(chan struct{}, 64)
			errs := make(chan error, total)

			for i := 0; i < total; i++ {
				wg.Add(1)
				sem <- struct{}{}
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					defer func() { <-sem }()
					_, err := service.Create(ctx, student, transaction.CreateTransactionDTO{DepartmentID: 1})
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			codes := mockRepo.codes()
			Expect(codes).To(HaveLen(total))
			seen := make(map[string]struct{}, total)
			for _, code := range codes {
				Expect(seen).NotTo(HaveKey(code))
				seen[code] = struct{}{}
			}
		})
	})

	Describe("List", func() {
		It("should scope students to their own transactions", func() {
			create()
			_, err := service.Create(ctx, admin, transaction.CreateTransactionDTO{UserID: 3, DepartmentID: 1})
			Expect(err).NotTo(HaveOccurred())

			views, total, err := service.List(ctx, student, transaction.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(views[0].User.ID).To(Equal(student.ID))

			_, total, err = service.List(ctx, admin, transaction.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
		})

		It("should reject success as a status filter", func() {
			_, _, err := service.List(ctx, admin, transaction.ListFilter{Status: "success"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Details.(internal.ValidationErrors).Errors[0].Code).To(Equal(string(internal.ErrCodeInvalidPaymentStatus)))
		})

		It("should hide another user's transaction from a student", func() {
			view, err := service.Create(ctx, admin, transaction.CreateTransactionDTO{UserID: 3, DepartmentID: 1})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Get(ctx, student, view.ID)

			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("Delete", func() {
		It("should delete the rows and then their proofs", func() {
			view := create()
			files.Put(proof(view.ID, "p.jpg"))
			_, err := submit(view.ID, proof(view.ID, "p.jpg"))
			Expect(err).NotTo(HaveOccurred())

			deleted, err := service.BulkDelete(ctx, admin, transaction.BulkDeleteDTO{IDs: []int64{view.ID, 99}})

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(1))
			Expect(files.Has(proof(view.ID, "p.jpg"))).To(BeFalse())
		})

		It("should return not found for a missing transaction", func() {
			Expect(service.Delete(ctx, admin, 99)).To(MatchError(internal.ErrTransactionNotFound))
		})

		It("should deny a student", func() {
			view := create()

			Expect(service.Delete(ctx, student, view.ID)).To(MatchError(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("PaymentForm", func() {
		It("should carry the live cost, methods and limits", func() {
			view := create()

			form, err := service.PaymentForm(ctx, student, view.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(form.Transaction.DepartmentCost).To(Equal(int64(500000)))
			Expect(form.Methods).To(HaveLen(3))
			Expect(form.MaxUploadKB).To(Equal(int64(2048)))
		})
	})

	Describe("Summary", func() {
		It("should fill in every status and scope students to themselves", func() {
			summary.rows = []transaction.StatusSummary{{Status: transaction.StatusPending, Count: 2, TotalCost: 1000000}}

			resp, err := service.Summary(ctx, student)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.userID).To(Equal(student.ID))
			Expect(resp.Statuses).To(HaveLen(3))
			Expect(resp.Total).To(Equal(int64(2)))
		})
	})
})
