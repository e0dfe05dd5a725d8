package postgres

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/common/dberr"
	transactionDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/transaction"
	"github.com/frahmantamala/payflow/internal/transaction"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) transaction.RepositoryAPI {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*transactionDatamodel.Transaction, error) {
	var t transactionDatamodel.Transaction
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Department").
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter transaction.ListFilter) ([]*transactionDatamodel.Transaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&transactionDatamodel.Transaction{}).
		Joins("JOIN users ON users.id = transactions.user_id")

	if filter.Status != "" {
		query = query.Where("transactions.payment_status = ?", filter.Status)
	}
	if filter.UserID > 0 {
		query = query.Where("transactions.user_id = ?", filter.UserID)
	}
	if filter.DepartmentID > 0 {
		query = query.Where("transactions.department_id = ?", filter.DepartmentID)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(transactions.code) LIKE ? OR LOWER(users.name) LIKE ? OR users.phone LIKE ?", like, like, like)
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

	var transactions []*transactionDatamodel.Transaction
	err := query.
		Select("transactions.*").
		Preload("User").
		Preload("Department").
		Order("transactions.created_at DESC, transactions.id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *TransactionRepository) Create(ctx context.Context, t *transactionDatamodel.Transaction) error {
	return dberr.Translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error)
}

func (r *TransactionRepository) Update(ctx context.Context, t *transactionDatamodel.Transaction) error {
	result := r.db.WithContext(ctx).
		Model(&transactionDatamodel.Transaction{ID: t.ID}).
		Omit(clause.Associations).
		Select("user_id", "department_id", "payment_method", "updated_at").
		Updates(&transactionDatamodel.Transaction{
			UserID:        t.UserID,
			DepartmentID:  t.DepartmentID,
			PaymentMethod: t.PaymentMethod,
			UpdatedAt:     time.Now(),
		})
	if result.Error != nil {
		return dberr.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&transactionDatamodel.Transaction{}).
			Where("id = ? AND payment_status = ?", id, from).
			Updates(map[string]interface{}{"payment_status": to, "updated_at": time.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			return nil
		}

		var current transactionDatamodel.Transaction
		if err := tx.Select("id", "payment_status").Where("id = ?", id).First(&current).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrTransactionNotFound
			}
			return err
		}
		return errors.ErrInvalidTransition
	})
}

func (r *TransactionRepository) UpdatePayment(ctx context.Context, id int64, method, proof string) (string, error) {
	var previous string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current transactionDatamodel.Transaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "payment_proof").
			Where("id = ?", id).
			First(&current).Error
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrTransactionNotFound
			}
			return err
		}
		if current.PaymentProof != nil {
			previous = *current.PaymentProof
		}

		return tx.Model(&transactionDatamodel.Transaction{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"payment_method": method,
				"payment_proof":  proof,
				"updated_at":     time.Now(),
			}).Error
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

func (r *TransactionRepository) DeleteByIDs(ctx context.Context, ids []int64) (*transaction.Removal, error) {
	removal := &transaction.Removal{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var proofs []string
		err := tx.Model(&transactionDatamodel.Transaction{}).
			Where("id IN ? AND payment_proof IS NOT NULL", ids).
			Pluck("payment_proof", &proofs).Error
		if err != nil {
			return err
		}

		result := tx.Where("id IN ?", ids).Delete(&transactionDatamodel.Transaction{})
		if result.Error != nil {
			return result.Error
		}
		removal.Count = int(result.RowsAffected)
		removal.Proofs = proofs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removal, nil
}
