package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oficio-app/backend/internal/models"
)

type CreditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *CreditRepo {
	return &CreditRepo{pool: pool}
}

// CreateTx appends a ledger entry inside the given transaction. Rows are
// append-only: there is no update or delete path.
func (r *CreditRepo) CreateTx(ctx context.Context, tx pgx.Tx, c *models.CreditTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (id, professional_id, amount, balance_after, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, c.ID, c.ProfessionalID, c.Amount, c.BalanceAfter, c.Description).Scan(&c.CreatedAt)
}

func (r *CreditRepo) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, professional_id, amount, balance_after, description, created_at
		FROM credit_transactions WHERE professional_id = $1
		ORDER BY created_at DESC
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditTransaction
	for rows.Next() {
		var c models.CreditTransaction
		if err := rows.Scan(&c.ID, &c.ProfessionalID, &c.Amount, &c.BalanceAfter, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// SumByProfessional returns the running sum of all ledger amounts for a
// professional. Used to audit that the stored balance never diverges.
func (r *CreditRepo) SumByProfessional(ctx context.Context, professionalID uuid.UUID) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE professional_id = $1
	`, professionalID).Scan(&total)
	return total, err
}
