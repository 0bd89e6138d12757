package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oficio-app/backend/internal/models"
)

type UnlockRepo struct {
	pool *pgxpool.Pool
}

func NewUnlockRepo(pool *pgxpool.Pool) *UnlockRepo {
	return &UnlockRepo{pool: pool}
}

// CreateTx inserts an unlock record. The (lead_id, professional_id) primary
// key makes a duplicate insert fail with a unique violation; callers
// translate that into the already-unlocked outcome.
func (r *UnlockRepo) CreateTx(ctx context.Context, tx pgx.Tx, u *models.UnlockRecord) error {
	return tx.QueryRow(ctx, `
		INSERT INTO unlocked_leads (lead_id, professional_id, cost_paid)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, u.LeadID, u.ProfessionalID, u.CostPaid).Scan(&u.CreatedAt)
}

func (r *UnlockRepo) Exists(ctx context.Context, leadID, professionalID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM unlocked_leads WHERE lead_id = $1 AND professional_id = $2
		)
	`, leadID, professionalID).Scan(&exists)
	return exists, err
}

// ProfessionalIDs returns the IDs of every professional holding an unlock
// record for the lead.
func (r *UnlockRepo) ProfessionalIDs(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT professional_id FROM unlocked_leads WHERE lead_id = $1
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ExistsForRequest reports whether the professional has unlocked any lead of
// the given request. Proposal submission requires this.
func (r *UnlockRepo) ExistsForRequest(ctx context.Context, requestID, professionalID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM unlocked_leads u
			JOIN leads l ON l.id = u.lead_id
			WHERE l.request_id = $1 AND u.professional_id = $2
		)
	`, requestID, professionalID).Scan(&exists)
	return exists, err
}

// ListUnlockedLeads returns the leads a professional has unlocked, newest
// unlock first.
func (r *UnlockRepo) ListUnlockedLeads(ctx context.Context, professionalID uuid.UUID) ([]*models.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.request_id, l.category, l.cost, l.region, l.summary, l.created_at, 0 AS unlocks
		FROM unlocked_leads u
		JOIN leads l ON l.id = u.lead_id
		WHERE u.professional_id = $1
		ORDER BY u.created_at DESC
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}
