package postgres

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	errors "github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/common/dberr"
	departmentDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/department"
	transactionDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/transaction"
	"github.com/frahmantamala/payflow/internal/department"
)

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.RepositoryAPI {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) GetAll(ctx context.Context) ([]*departmentDatamodel.Department, error) {
	var departments []*departmentDatamodel.Department
	err := r.db.WithContext(ctx).Order("semester ASC").Find(&departments).Error
	return departments, err
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*departmentDatamodel.Department, error) {
	var d departmentDatamodel.Department
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, d *departmentDatamodel.Department) error {
	return dberr.Translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r *DepartmentRepository) Update(ctx context.Context, d *departmentDatamodel.Department) error {
	result := r.db.WithContext(ctx).Model(d).Select("name", "semester", "cost", "updated_at").Updates(d)
	if result.Error != nil {
		return dberr.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrDepartmentNotFound
	}
	return nil
}

// Delete removes the department and, through the foreign key cascade, its transactions. The
// proofs of those transactions are collected first so the caller can purge them.
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) (*department.Removal, error) {
	removal := &department.Removal{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&transactionDatamodel.Transaction{}).
			Where("department_id = ? AND payment_proof IS NOT NULL", id).
			Pluck("payment_proof", &removal.Proofs).Error
		if err != nil {
			return err
		}

		result := tx.Delete(&departmentDatamodel.Department{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.ErrDepartmentNotFound
		}
		removal.Count = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removal, nil
}
