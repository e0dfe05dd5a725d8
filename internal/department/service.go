package department

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/payflow/internal"
	departmentDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/department"
	"github.com/frahmantamala/payflow/internal/storage"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*departmentDatamodel.Department, error)
	GetByID(ctx context.Context, id int64) (*departmentDatamodel.Department, error)
	Create(ctx context.Context, department *departmentDatamodel.Department) error
	Update(ctx context.Context, department *departmentDatamodel.Department) error
	Delete(ctx context.Context, id int64) (*Removal, error)
}

type Service struct {
	repo       RepositoryAPI
	authorizer internal.Authorizer
	files      storage.FileStore
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, authorizer internal.Authorizer, files storage.FileStore, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		files:      files,
		logger:     logger,
	}
}

func (s *Service) ListAll(ctx context.Context) ([]*Department, error) {
	dataDepartments, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get departments from repository", "error", err)
		return nil, err
	}

	departments := make([]*Department, 0, len(dataDepartments))
	for _, d := range dataDepartments {
		departments = append(departments, FromDataModel(d))
	}
	return departments, nil
}

func (s *Service) FindByID(ctx context.Context, id int64) (*Department, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(d), nil
}

// CostFor resolves the current fee of a department. The value is never copied onto transactions.
func (s *Service) CostFor(ctx context.Context, departmentID int64) (int64, error) {
	d, err := s.repo.GetByID(ctx, departmentID)
	if err != nil {
		return 0, err
	}
	return d.Cost, nil
}

func (s *Service) Options(ctx context.Context) ([]OptionResponse, error) {
	departments, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	options := make([]OptionResponse, 0, len(departments))
	for _, d := range departments {
		options = append(options, OptionResponse{ID: d.ID, Label: d.Label(), Cost: d.Cost})
	}
	return options, nil
}

func (s *Service) Create(ctx context.Context, principal *internal.User, dto CreateDepartmentDTO) (*Department, error) {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionCreate, internal.ResourceDepartment) {
		s.logger.Warn("create department denied", "user_id", principalID(principal))
		return nil, internal.ErrUnauthorizedAccess
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	d := NewDepartment(dto.Name, dto.Semester, dto.Cost)
	model := ToDataModel(d)
	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Warn("failed to create department", "error", err, "semester", dto.Semester)
		return nil, err
	}

	s.logger.Info("department created", "department_id", model.ID, "semester", model.Semester, "cost", model.Cost)
	return FromDataModel(model), nil
}

func (s *Service) Update(ctx context.Context, principal *internal.User, id int64, dto UpdateDepartmentDTO) (*Department, error) {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionUpdate, internal.ResourceDepartment) {
		s.logger.Warn("update department denied", "user_id", principalID(principal), "department_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = dto.Name
	existing.Semester = dto.Semester
	existing.Cost = dto.Cost
	if err := s.repo.Update(ctx, existing); err != nil {
		s.logger.Warn("failed to update department", "error", err, "department_id", id)
		return nil, err
	}

	s.logger.Info("department updated", "department_id", id, "semester", existing.Semester, "cost", existing.Cost)
	return FromDataModel(existing), nil
}

// Delete removes the department; its transactions go with it through the foreign key cascade
// and their proof files are purged after the delete commits.
func (s *Service) Delete(ctx context.Context, principal *internal.User, id int64) error {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionDelete, internal.ResourceDepartment) {
		s.logger.Warn("delete department denied", "user_id", principalID(principal), "department_id", id)
		return internal.ErrUnauthorizedAccess
	}

	removal, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	purged := storage.Purge(ctx, s.files, s.logger, removal.Proofs, "department_id", id)
	s.logger.Info("department deleted", "department_id", id, "proofs", len(removal.Proofs), "purged", purged)
	return nil
}

func principalID(u *internal.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
