package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/payflow/internal/transaction"
)

const summaryQuery = `
SELECT t.payment_status AS payment_status,
       COUNT(*) AS count,
       COALESCE(SUM(d.cost), 0) AS total_cost
FROM transactions t
JOIN departments d ON d.id = t.department_id`

type SummaryRepository struct {
	db *sqlx.DB
}

func NewSummaryRepository(db *sqlx.DB) transaction.SummaryAPI {
	return &SummaryRepository{db: db}
}

// Summary groups by status; userID 0 covers every user.
func (r *SummaryRepository) Summary(ctx context.Context, userID int64) ([]transaction.StatusSummary, error) {
	query := summaryQuery
	var args []interface{}
	if userID > 0 {
		query += "\nWHERE t.user_id = ?"
		args = append(args, userID)
	}
	query += "\nGROUP BY t.payment_status ORDER BY t.payment_status"

	var rows []transaction.StatusSummary
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}
