package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/auth"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
	"github.com/frahmantamala/payflow/internal/storage"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetPermissions(ctx context.Context, userID int64) ([]string, error)
	List(ctx context.Context, filter ListFilter) ([]*userDatamodel.User, int64, error)
	Create(ctx context.Context, u *userDatamodel.User, permissions []string) error
	Update(ctx context.Context, u *userDatamodel.User, permissions *[]string) error
	DeleteByIDs(ctx context.Context, ids []int64) (*Removal, error)
}

// Files are the optional uploads accompanying a profile mutation.
type Files struct {
	Photo           *storage.Upload
	ScanCertificate *storage.Upload
}

type Service struct {
	repo       RepositoryAPI
	authorizer internal.Authorizer
	files      storage.FileStore
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, authorizer internal.Authorizer, files storage.FileStore, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		files:      files,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a student account with the default student grants.
func (s *Service) Register(ctx context.Context, dto RegisterDTO, files Files) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u := &User{Name: dto.Name, Email: dto.Email, Phone: dto.Phone}
	created, err := s.create(ctx, u, dto.Password, auth.DefaultStudentPermissions, files)
	if err != nil {
		s.logger.Warn("registration failed", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", created.ID)
	return created, nil
}

func (s *Service) GetMe(ctx context.Context, principal *internal.User) (*User, error) {
	if principal == nil {
		return nil, internal.ErrUnauthorizedAccess
	}
	return s.load(ctx, principal.ID)
}

// UpdateBiodata is the self-service profile edit. Stored files are only replaced when a new one is uploaded.
func (s *Service) UpdateBiodata(ctx context.Context, principal *internal.User, dto BiodataDTO, files Files) (*User, error) {
	if principal == nil {
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	existing.Name = dto.Name
	existing.Email = dto.Email
	existing.Phone = dto.Phone

	updated, err := s.update(ctx, existing, dto.Password, nil, files)
	if err != nil {
		s.logger.Warn("biodata update failed", "error", err, "user_id", principal.ID)
		return nil, err
	}

	s.logger.Info("biodata updated", "user_id", principal.ID)
	return updated, nil
}

func (s *Service) List(ctx context.Context, principal *internal.User, filter ListFilter) ([]*User, int64, error) {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionViewAny, internal.ResourceUser) {
		return nil, 0, internal.ErrUnauthorizedAccess
	}

	dataUsers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, 0, err
	}

	users := make([]*User, 0, len(dataUsers))
	for _, u := range dataUsers {
		users = append(users, FromDataModel(u))
	}
	return users, total, nil
}

func (s *Service) Get(ctx context.Context, principal *internal.User, id int64) (*User, error) {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionViewAny, internal.ResourceUser) {
		return nil, internal.ErrUnauthorizedAccess
	}
	return s.load(ctx, id)
}

func (s *Service) Create(ctx context.Context, principal *internal.User, dto CreateUserDTO, files Files) (*User, error) {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionCreate, internal.ResourceUser) {
		s.logger.Warn("create user denied", "user_id", principalID(principal))
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := validatePermissions(dto.Permissions); err != nil {
		return nil, err
	}

	u := &User{Name: dto.Name, Email: dto.Email, Phone: dto.Phone}
	created, err := s.create(ctx, u, dto.Password, dto.Permissions, files)
	if err != nil {
		s.logger.Warn("failed to create user", "error", err, "actor_id", principal.ID)
		return nil, err
	}

	s.logger.Info("user created", "user_id", created.ID, "actor_id", principal.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, principal *internal.User, id int64, dto UpdateUserDTO, files Files) (*User, error) {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionUpdate, internal.ResourceUser) {
		s.logger.Warn("update user denied", "user_id", principalID(principal), "target_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.Permissions != nil {
		if err := validatePermissions(*dto.Permissions); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Name = dto.Name
	existing.Email = dto.Email
	existing.Phone = dto.Phone

	updated, err := s.update(ctx, existing, dto.Password, dto.Permissions, files)
	if err != nil {
		s.logger.Warn("failed to update user", "error", err, "target_id", id, "actor_id", principal.ID)
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id, "actor_id", principal.ID)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, principal *internal.User, id int64) error {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionDelete, internal.ResourceUser) {
		s.logger.Warn("delete user denied", "user_id", principalID(principal), "target_id", id)
		return internal.ErrUnauthorizedAccess
	}

	deleted, err := s.remove(ctx, principal, []int64{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

// BulkDelete removes the rows first, then their stored files. Unknown ids are ignored.
func (s *Service) BulkDelete(ctx context.Context, principal *internal.User, dto BulkDeleteDTO) (int, error) {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionBulkDelete, internal.ResourceUser) {
		s.logger.Warn("bulk delete users denied", "user_id", principalID(principal))
		return 0, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return 0, err
	}
	return s.remove(ctx, principal, dto.IDs)
}

func (s *Service) remove(ctx context.Context, principal *internal.User, ids []int64) (int, error) {
	for _, id := range ids {
		if id == principal.ID {
			return 0, internal.NewValidationFieldError("ids", "you cannot delete your own account", internal.ErrCodeValidationFailed)
		}
	}

	removal, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("failed to delete users", "error", err, "count", len(ids))
		return 0, err
	}

	purged := storage.Purge(ctx, s.files, s.logger, removal.Files, "reason", "user deleted")
	s.logger.Info("users deleted", "count", removal.Count, "files_removed", purged, "actor_id", principal.ID)
	return removal.Count, nil
}

func (s *Service) create(ctx context.Context, u *User, password string, permissions []string, files Files) (*User, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}
	u.PasswordHash = hash

	photo, certificate, err := s.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	if photo != "" {
		u.Photo = ref(photo)
	}
	if certificate != "" {
		u.ScanCertificate = ref(certificate)
	}

	model := ToDataModel(u)
	if err := s.repo.Create(ctx, model, permissions); err != nil {
		storage.Discard(ctx, s.files, s.logger, photo, certificate)
		return nil, err
	}

	created := FromDataModel(model)
	created.Permissions = append([]string(nil), permissions...)
	return created, nil
}

func (s *Service) update(ctx context.Context, existing *userDatamodel.User, password string, permissions *[]string, files Files) (*User, error) {
	if password != "" {
		hash, err := auth.HashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		existing.PasswordHash = hash
	}

	photo, certificate, err := s.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	prevPhoto, prevCertificate := deref(existing.Photo), deref(existing.ScanCertificate)
	if photo != "" {
		existing.Photo = ref(photo)
	}
	if certificate != "" {
		existing.ScanCertificate = ref(certificate)
	}

	if err := s.repo.Update(ctx, existing, permissions); err != nil {
		storage.Discard(ctx, s.files, s.logger, photo, certificate)
		return nil, err
	}

	storage.CleanupReplaced(ctx, s.files, s.logger, prevPhoto, photo, "user_id", existing.ID, "field", "photo")
	storage.CleanupReplaced(ctx, s.files, s.logger, prevCertificate, certificate, "user_id", existing.ID, "field", "scan_certificate")

	return s.load(ctx, existing.ID)
}

func (s *Service) storeFiles(ctx context.Context, files Files) (photo, certificate string, err error) {
	if files.Photo != nil {
		photo, err = s.files.Store(ctx, files.Photo.Reader(), storage.DirUserPhotos, files.Photo.Filename)
		if err != nil {
			s.logger.Error("failed to store photo", "error", err)
			return "", "", internal.NewInternalError("failed to store photo", err)
		}
	}
	if files.ScanCertificate != nil {
		certificate, err = s.files.Store(ctx, files.ScanCertificate.Reader(), storage.DirUserCertificates, files.ScanCertificate.Filename)
		if err != nil {
			storage.Discard(ctx, s.files, s.logger, photo)
			s.logger.Error("failed to store certificate", "error", err)
			return "", "", internal.NewInternalError("failed to store scan certificate", err)
		}
	}
	return photo, certificate, nil
}

func (s *Service) load(ctx context.Context, id int64) (*User, error) {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	permissions, err := s.repo.GetPermissions(ctx, id)
	if err != nil {
		return nil, err
	}

	u := FromDataModel(model)
	u.Permissions = permissions
	return u, nil
}

func validatePermissions(names []string) error {
	for _, name := range names {
		if _, ok := auth.AllPermissions[name]; !ok {
			return internal.NewValidationFieldError("permissions", "unknown permission "+name, internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

func principalID(u *internal.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
