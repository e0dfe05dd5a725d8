package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/payflow/internal"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (string, int64, error) {
	var passwordHash string
	var userID int64
	query := `SELECT id, password_hash FROM users WHERE email = ?`

	row := r.db.WithContext(ctx).Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return "", 0, internal.ErrUserNotFound
		}
		return "", 0, err
	}
	return passwordHash, userID, nil
}

func (r *Repository) GetUserWithPermissions(ctx context.Context, userID int64) (*internal.User, error) {
	var user internal.User

	query := `SELECT id, email, name FROM users WHERE id = ?`
	row := r.db.WithContext(ctx).Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Email, &user.Name); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	permissions, err := r.GetPermissionNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Permissions = permissions
	return &user, nil
}

func (r *Repository) GetPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	permQuery := `SELECT p.name
	             FROM permissions p
	             JOIN user_permissions up ON p.id = up.permission_id
	             WHERE up.user_id = ?
	             ORDER BY p.name`

	var permissions []string
	if err := r.db.WithContext(ctx).Raw(permQuery, userID).Scan(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

// EnsurePermissions inserts any missing permission rows.
func (r *Repository) EnsurePermissions(ctx context.Context, catalogue map[string]string) error {
	for name, description := range catalogue {
		p := userDatamodel.Permission{Name: name, Description: description}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&p).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// GrantPermissions links the named permissions to a user; already granted ones are skipped.
func (r *Repository) GrantPermissions(ctx context.Context, userID int64, grantedBy *int64, names ...string) error {
	if len(names) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var permissions []userDatamodel.Permission
		if err := tx.Where("name IN ?", names).Find(&permissions).Error; err != nil {
			return err
		}

		for _, p := range permissions {
			up := userDatamodel.UserPermission{UserID: userID, PermissionID: p.ID, GrantedBy: grantedBy}
			err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "permission_id"}}, DoNothing: true}).
				Create(&up).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplacePermissions makes names the complete set of grants for the user.
func (r *Repository) ReplacePermissions(ctx context.Context, userID int64, grantedBy *int64, names ...string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.UserPermission{}).Error; err != nil {
			return err
		}
		txRepo := &Repository{db: tx}
		return txRepo.GrantPermissions(ctx, userID, grantedBy, names...)
	})
}
