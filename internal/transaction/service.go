package transaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/payflow/internal"
	transactionDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
	"github.com/frahmantamala/payflow/internal/core/events"
	"github.com/frahmantamala/payflow/internal/department"
	"github.com/frahmantamala/payflow/internal/storage"
)

const defaultCodeAttempts = 5

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*transactionDatamodel.Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]*transactionDatamodel.Transaction, int64, error)
	Create(ctx context.Context, t *transactionDatamodel.Transaction) error
	Update(ctx context.Context, t *transactionDatamodel.Transaction) error
	// CompareAndSetStatus moves id from one status to another only if it is still in from.
	CompareAndSetStatus(ctx context.Context, id int64, from, to string) error
	// UpdatePayment stores method and proof and returns the proof it replaced.
	UpdatePayment(ctx context.Context, id int64, method, proof string) (string, error)
	DeleteByIDs(ctx context.Context, ids []int64) (*Removal, error)
}

type SummaryAPI interface {
	Summary(ctx context.Context, userID int64) ([]StatusSummary, error)
}

type DepartmentLookup interface {
	FindByID(ctx context.Context, id int64) (*department.Department, error)
	CostFor(ctx context.Context, departmentID int64) (int64, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
}

// Collaborators are the services the workflow engine consults.
type Collaborators struct {
	Departments DepartmentLookup
	Users       UserLookup
	Authorizer  internal.Authorizer
	Files       storage.FileStore
	Events      events.Publisher
	Summary     SummaryAPI
}

type Service struct {
	repo         RepositoryAPI
	departments  DepartmentLookup
	users        UserLookup
	authorizer   internal.Authorizer
	files        storage.FileStore
	events       events.Publisher
	summary      SummaryAPI
	codes        *CodeGenerator
	codeAttempts int
	maxUploadKB  int64
	logger       *slog.Logger
}

func NewService(repo RepositoryAPI, c Collaborators, cfg internal.TransactionConfig, maxUploadKB int64, logger *slog.Logger) *Service {
	attempts := cfg.CodeMaxAttempts
	if attempts < 1 {
		attempts = defaultCodeAttempts
	}
	if maxUploadKB <= 0 {
		maxUploadKB = storage.DefaultMaxUploadKB
	}
	return &Service{
		repo:         repo,
		departments:  c.Departments,
		users:        c.Users,
		authorizer:   c.Authorizer,
		files:        c.Files,
		events:       c.Events,
		summary:      c.Summary,
		codes:        NewCodeGenerator(),
		codeAttempts: attempts,
		maxUploadKB:  maxUploadKB,
		logger:       logger,
	}
}

func (s *Service) WithCodeGenerator(g *CodeGenerator) *Service {
	s.codes = g
	return s
}

// Create opens a pending transaction. Generated codes are retried on collision; a code
// supplied by the caller is tried once.
func (s *Service) Create(ctx context.Context, principal *internal.User, dto CreateTransactionDTO) (*TransactionView, error) {
	if !s.can(ctx, principal, internal.ActionCreate) {
		s.logger.Warn("create transaction denied", "user_id", principalID(principal))
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ownerID := dto.UserID
	if ownerID == 0 {
		ownerID = principal.ID
	}
	if ownerID != principal.ID && !s.can(ctx, principal, internal.ActionActOnBehalf) {
		s.logger.Warn("create transaction for another user denied", "user_id", principal.ID, "owner_id", ownerID)
		return nil, internal.ErrUnauthorizedAccess
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	cost, err := s.departments.CostFor(ctx, dto.DepartmentID)
	if err != nil {
		return nil, err
	}

	model, err := s.insert(ctx, dto, ownerID)
	if err != nil {
		s.logger.Warn("failed to create transaction", "error", err, "user_id", ownerID, "department_id", dto.DepartmentID)
		return nil, err
	}

	s.logger.Info("transaction created",
		"transaction_id", model.ID,
		"code", model.Code,
		"user_id", ownerID,
		"department_id", dto.DepartmentID,
		"department_cost", cost)
	return s.load(ctx, model.ID)
}

func (s *Service) insert(ctx context.Context, dto CreateTransactionDTO, ownerID int64) (*transactionDatamodel.Transaction, error) {
	if dto.Code != "" {
		model := ToDataModel(NewTransaction(dto.Code, ownerID, dto.DepartmentID, dto.PaymentMethod))
		if err := s.repo.Create(ctx, model); err != nil {
			return nil, err
		}
		return model, nil
	}

	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		model := ToDataModel(NewTransaction(s.codes.Next(), ownerID, dto.DepartmentID, dto.PaymentMethod))
		err := s.repo.Create(ctx, model)
		if err == nil {
			return model, nil
		}
		if !isCodeCollision(err) {
			return nil, err
		}
		s.logger.Warn("transaction code collision", "code", model.Code, "attempt", attempt)
	}

	return nil, internal.NewConflictError(
		fmt.Sprintf("could not generate a unique transaction code after %d attempts", s.codeAttempts),
		internal.ErrCodeCodeExhausted)
}

func (s *Service) Get(ctx context.Context, principal *internal.User, id int64) (*TransactionView, error) {
	if !s.can(ctx, principal, internal.ActionView) {
		return nil, internal.ErrUnauthorizedAccess
	}

	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model.UserID != principal.ID && !s.can(ctx, principal, internal.ActionViewAny) {
		return nil, internal.ErrUnauthorizedAccess
	}
	return s.view(ctx, model)
}

// List returns every transaction to reviewers and only the caller's own to everyone else.
func (s *Service) List(ctx context.Context, principal *internal.User, filter ListFilter) ([]*TransactionView, int64, error) {
	if !s.can(ctx, principal, internal.ActionView) {
		return nil, 0, internal.ErrUnauthorizedAccess
	}
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	if !s.can(ctx, principal, internal.ActionViewAny) {
		filter.UserID = principal.ID
	}

	models, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list transactions", "error", err)
		return nil, 0, err
	}

	views := make([]*TransactionView, 0, len(models))
	for _, m := range models {
		v, err := s.view(ctx, m)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, v)
	}
	return views, total, nil
}

func (s *Service) Update(ctx context.Context, principal *internal.User, id int64, dto UpdateTransactionDTO) (*TransactionView, error) {
	if !s.can(ctx, principal, internal.ActionUpdate) {
		s.logger.Warn("update transaction denied", "user_id", principalID(principal), "transaction_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, dto.UserID); err != nil {
		return nil, err
	}
	if _, err := s.departments.CostFor(ctx, dto.DepartmentID); err != nil {
		return nil, err
	}

	existing.UserID = dto.UserID
	existing.DepartmentID = dto.DepartmentID
	existing.PaymentMethod = nil
	if dto.PaymentMethod != "" {
		existing.PaymentMethod = &dto.PaymentMethod
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		s.logger.Warn("failed to update transaction", "error", err, "transaction_id", id)
		return nil, err
	}

	s.logger.Info("transaction updated", "transaction_id", id, "actor_id", principal.ID)
	return s.load(ctx, id)
}

func (s *Service) Delete(ctx context.Context, principal *internal.User, id int64) error {
	if !s.can(ctx, principal, internal.ActionDelete) {
		s.logger.Warn("delete transaction denied", "user_id", principalID(principal), "transaction_id", id)
		return internal.ErrUnauthorizedAccess
	}

	deleted, err := s.remove(ctx, principal, []int64{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return internal.ErrTransactionNotFound
	}
	return nil
}

func (s *Service) BulkDelete(ctx context.Context, principal *internal.User, dto BulkDeleteDTO) (int, error) {
	if !s.can(ctx, principal, internal.ActionBulkDelete) {
		s.logger.Warn("bulk delete transactions denied", "user_id", principalID(principal))
		return 0, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return 0, err
	}
	return s.remove(ctx, principal, dto.IDs)
}

func (s *Service) remove(ctx context.Context, principal *internal.User, ids []int64) (int, error) {
	removal, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("failed to delete transactions", "error", err, "count", len(ids))
		return 0, err
	}

	purged := storage.Purge(ctx, s.files, s.logger, removal.Proofs, "reason", "transaction deleted")
	s.logger.Info("transactions deleted", "count", removal.Count, "proofs_removed", purged, "actor_id", principal.ID)
	return removal.Count, nil
}

func (s *Service) Approve(ctx context.Context, principal *internal.User, id int64) (*TransitionResponse, error) {
	return s.Transition(ctx, principal, id, ActionApprove)
}

func (s *Service) MarkPending(ctx context.Context, principal *internal.User, id int64) (*TransitionResponse, error) {
	return s.Transition(ctx, principal, id, ActionMarkPending)
}

func (s *Service) MarkFailed(ctx context.Context, principal *internal.User, id int64) (*TransitionResponse, error) {
	return s.Transition(ctx, principal, id, ActionMarkFailed)
}

// Transition applies an admin status action. The guard is checked against the stored status
// and enforced again by the compare-and-set in the store, so a concurrent change yields
// INVALID_TRANSITION instead of a double transition.
func (s *Service) Transition(ctx context.Context, principal *internal.User, id int64, action string) (*TransitionResponse, error) {
	tr, ok := LookupTransition(action)
	if !ok {
		return nil, internal.NewValidationError("unknown action "+action, internal.ErrCodeValidationFailed)
	}
	if !s.can(ctx, principal, tr.Capability) {
		s.logger.Warn("transition denied", "user_id", principalID(principal), "transaction_id", id, "action", action)
		return nil, internal.ErrUnauthorizedAccess
	}

	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current := FromDataModel(model)
	from := current.PaymentStatus

	to, err := Next(current, action)
	if err != nil {
		s.logger.Info("transition rejected", "transaction_id", id, "action", action, "status", from)
		return nil, err
	}

	if err := s.repo.CompareAndSetStatus(ctx, id, from, to); err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Is(internal.ErrInvalidTransition) {
			s.logger.Info("transition lost a race", "transaction_id", id, "action", action, "status", from)
			return nil, internal.NewInvalidTransitionError(from, action)
		}
		return nil, err
	}

	s.logger.Info("transaction status changed",
		"transaction_id", id,
		"code", model.Code,
		"from", from,
		"to", to,
		"actor_id", principal.ID)

	s.publish(ctx, events.NewTransactionStatusChangedEvent(id, model.Code, model.UserID, from, to, principal.ID))

	view, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TransitionResponse{Transaction: view, Notification: fmt.Sprintf(tr.Notice, model.Code)}, nil
}

// SubmitPayment records the method and a proof already stored under ProofDir(id). A different
// previous proof is deleted after the update commits; resubmitting the same reference deletes
// nothing. The payment status is left as it is.
func (s *Service) SubmitPayment(ctx context.Context, principal *internal.User, id int64, dto SubmitPaymentDTO) (*TransactionView, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	model, err := s.authorizeSubmission(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !s.isOwnProof(id, dto.PaymentProof) {
		s.logger.Warn("payment proof rejected", "transaction_id", id, "user_id", principal.ID, "ref", dto.PaymentProof)
		return nil, internal.NewValidationFieldError("payment_proof",
			"payment_proof must be an image uploaded for this transaction", internal.ErrCodeInvalidPaymentProof)
	}

	previous, err := s.repo.UpdatePayment(ctx, id, dto.PaymentMethod, dto.PaymentProof)
	if err != nil {
		s.logger.Warn("failed to record payment", "error", err, "transaction_id", id)
		return nil, err
	}

	if storage.Replaced(previous, dto.PaymentProof) && !storage.InDir(previous, storage.ProofDir(id)) {
		s.logger.Warn("previous proof outside the transaction directory left in place", "transaction_id", id, "ref", previous)
	} else {
		storage.CleanupReplaced(ctx, s.files, s.logger, previous, dto.PaymentProof, "transaction_id", id)
	}

	s.logger.Info("payment submitted",
		"transaction_id", id,
		"code", model.Code,
		"payment_method", dto.PaymentMethod,
		"replaced_proof", storage.Replaced(previous, dto.PaymentProof))

	s.publish(ctx, events.NewPaymentSubmittedEvent(id, model.Code, model.UserID, dto.PaymentMethod, dto.PaymentProof))
	return s.load(ctx, id)
}

// SubmitPaymentUpload stores the uploaded proof and submits it. The stored file is removed
// again when the submission does not go through.
func (s *Service) SubmitPaymentUpload(ctx context.Context, principal *internal.User, id int64, method string, proof *storage.Upload) (*TransactionView, error) {
	check := SubmitPaymentDTO{PaymentMethod: method, PaymentProof: "pending-upload"}
	if err := check.Validate(); err != nil {
		return nil, err
	}
	if proof == nil {
		return nil, internal.NewValidationFieldError("payment_proof", "payment_proof is required", internal.ErrCodeValidationFailed)
	}
	if _, err := s.authorizeSubmission(ctx, principal, id); err != nil {
		return nil, err
	}

	ref, err := s.files.Store(ctx, proof.Reader(), storage.ProofDir(id), proof.StoredName())
	if err != nil {
		s.logger.Error("failed to store payment proof", "error", err, "transaction_id", id)
		return nil, internal.NewInternalError("failed to store payment proof", err)
	}

	view, err := s.SubmitPayment(ctx, principal, id, SubmitPaymentDTO{PaymentMethod: method, PaymentProof: ref})
	if err != nil {
		storage.Discard(ctx, s.files, s.logger, ref)
		return nil, err
	}
	return view, nil
}

// isOwnProof accepts only stored images from this transaction's proof directory.
func (s *Service) isOwnProof(id int64, ref string) bool {
	return storage.InDir(ref, storage.ProofDir(id)) && s.files.Exists(ref)
}

func (s *Service) authorizeSubmission(ctx context.Context, principal *internal.User, id int64) (*transactionDatamodel.Transaction, error) {
	if !s.can(ctx, principal, internal.ActionSubmitPayment) {
		s.logger.Warn("payment submission denied", "user_id", principalID(principal), "transaction_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}

	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model.UserID != principal.ID && !s.can(ctx, principal, internal.ActionActOnBehalf) {
		s.logger.Warn("payment submission for another user denied", "user_id", principal.ID, "transaction_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}
	return model, nil
}

// PaymentForm assembles the payment page: the transaction with its live cost, the accepted
// methods and the upload limits.
func (s *Service) PaymentForm(ctx context.Context, principal *internal.User, id int64) (*PaymentForm, error) {
	model, err := s.authorizeSubmission(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, model)
	if err != nil {
		return nil, err
	}
	return &PaymentForm{
		Transaction:   view,
		Methods:       MethodOptions(),
		AcceptedTypes: []string{"image/jpeg", "image/png", "image/jpg"},
		MaxUploadKB:   s.maxUploadKB,
	}, nil
}

// Summary counts transactions per status with the summed live department cost.
func (s *Service) Summary(ctx context.Context, principal *internal.User) (*SummaryResponse, error) {
	if !s.can(ctx, principal, internal.ActionView) {
		return nil, internal.ErrUnauthorizedAccess
	}

	var userID int64
	if !s.can(ctx, principal, internal.ActionViewAny) {
		userID = principal.ID
	}

	rows, err := s.summary.Summary(ctx, userID)
	if err != nil {
		s.logger.Error("failed to summarise transactions", "error", err)
		return nil, err
	}

	byStatus := make(map[string]StatusSummary, len(rows))
	for _, r := range rows {
		byStatus[r.Status] = r
	}

	resp := &SummaryResponse{Statuses: make([]StatusSummary, 0, len(Statuses))}
	for _, status := range Statuses {
		row, ok := byStatus[status]
		if !ok {
			row = StatusSummary{Status: status}
		}
		resp.Statuses = append(resp.Statuses, row)
		resp.Total += row.Count
	}
	return resp, nil
}

func (s *Service) load(ctx context.Context, id int64) (*TransactionView, error) {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, model)
}

func (s *Service) view(ctx context.Context, model *transactionDatamodel.Transaction) (*TransactionView, error) {
	t := FromDataModel(model)
	v := &TransactionView{
		ID:            t.ID,
		Code:          t.Code,
		PaymentMethod: t.Method(),
		PaymentStatus: t.PaymentStatus,
		StatusColor:   StatusColor(t.PaymentStatus),
		PaymentProof:  t.Proof(),
		Actions:       make([]ActionResponse, 0, len(transitions)),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if v.PaymentProof != "" {
		v.PaymentProofURL = s.files.URL(v.PaymentProof)
	}
	for _, tr := range AvailableActions(t.PaymentStatus) {
		v.Actions = append(v.Actions, ActionResponse{Action: tr.Action, Label: tr.Label, Color: tr.Color})
	}

	if model.Department != nil {
		d := department.FromDataModel(model.Department)
		v.Department = DepartmentSummary{ID: d.ID, Name: d.Name, Semester: d.Semester, Label: d.Label()}
		v.DepartmentCost = d.Cost
	} else {
		d, err := s.departments.FindByID(ctx, t.DepartmentID)
		if err != nil {
			return nil, err
		}
		v.Department = DepartmentSummary{ID: d.ID, Name: d.Name, Semester: d.Semester, Label: d.Label()}
		v.DepartmentCost = d.Cost
	}

	if model.User != nil {
		v.User = UserSummary{ID: model.User.ID, Name: model.User.Name, Phone: model.User.Phone}
	} else {
		v.User = UserSummary{ID: t.UserID}
	}
	return v, nil
}

// publish delivers synchronously; a failing subscriber never undoes the committed change.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSync(ctx, event); err != nil {
		s.logger.Warn("event delivery failed", "error", err, "event_type", event.EventType(), "event_id", event.EventID())
	}
}

func (s *Service) can(ctx context.Context, principal *internal.User, action string) bool {
	return s.authorizer.CanPerform(ctx, principal, action, internal.ResourceTransaction)
}

func isCodeCollision(err error) bool {
	appErr, ok := internal.IsAppError(err)
	if !ok || !appErr.Is(internal.ErrConstraintViolation) {
		return false
	}
	details, ok := appErr.Details.(internal.ValidationErrors)
	if !ok {
		return false
	}
	for _, fe := range details.Errors {
		if fe.Field == "code" {
			return true
		}
	}
	return false
}

func principalID(u *internal.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
