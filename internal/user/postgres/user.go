package postgres

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/common/dberr"
	transactionDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
	"github.com/frahmantamala/payflow/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetPermissions(ctx context.Context, userID int64) ([]string, error) {
	var permissions []string
	err := r.db.WithContext(ctx).
		Table("permissions").
		Select("permissions.name").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.name").
		Scan(&permissions).Error
	return permissions, err
}

func (r *UserRepository) List(ctx context.Context, filter user.ListFilter) ([]*userDatamodel.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&userDatamodel.User{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var users []*userDatamodel.User
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(filter.Offset).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Create inserts the user and its grants in one transaction.
func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User, permissions []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return dberr.Translate(err)
		}
		return grant(tx, u.ID, permissions)
	})
}

// Update writes the profile columns. A nil permissions slice leaves grants untouched.
func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User, permissions *[]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(u).
			Select("name", "email", "password_hash", "phone", "photo", "scan_certificate", "updated_at").
			Updates(u)
		if result.Error != nil {
			return dberr.Translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.ErrUserNotFound
		}

		if permissions == nil {
			return nil
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&userDatamodel.UserPermission{}).Error; err != nil {
			return err
		}
		return grant(tx, u.ID, *permissions)
	})
}

// DeleteByIDs removes the users and returns every stored file that now belongs to nobody:
// their photos and certificates plus the proofs of transactions dropped by the cascade.
func (r *UserRepository) DeleteByIDs(ctx context.Context, ids []int64) (*user.Removal, error) {
	removal := &user.Removal{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []*userDatamodel.User
		if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}

		found := make([]int64, 0, len(users))
		for _, u := range users {
			found = append(found, u.ID)
			removal.Files = append(removal.Files, user.FromDataModel(u).StoredFiles()...)
		}

		var proofs []string
		err := tx.Model(&transactionDatamodel.Transaction{}).
			Where("user_id IN ? AND payment_proof IS NOT NULL", found).
			Pluck("payment_proof", &proofs).Error
		if err != nil {
			return err
		}
		removal.Files = append(removal.Files, proofs...)

		result := tx.Delete(&userDatamodel.User{}, found)
		if result.Error != nil {
			return result.Error
		}
		removal.Count = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removal, nil
}

func grant(tx *gorm.DB, userID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}

	var permissions []userDatamodel.Permission
	if err := tx.Where("name IN ?", names).Find(&permissions).Error; err != nil {
		return err
	}

	for _, p := range permissions {
		up := userDatamodel.UserPermission{UserID: userID, PermissionID: p.ID}
		err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "permission_id"}}, DoNothing: true}).
			Create(&up).Error
		if err != nil {
			return err
		}
	}
	return nil
}
