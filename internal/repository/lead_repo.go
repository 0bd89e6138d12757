package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oficio-app/backend/internal/models"
)

type LeadRepo struct {
	pool *pgxpool.Pool
}

func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

func (r *LeadRepo) CreateTx(ctx context.Context, tx pgx.Tx, l *models.Lead) error {
	return tx.QueryRow(ctx, `
		INSERT INTO leads (id, request_id, category, cost, region, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, l.ID, l.RequestID, l.Category, l.Cost, l.Region, l.Summary).Scan(&l.CreatedAt)
}

func (r *LeadRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var l models.Lead
	err := r.pool.QueryRow(ctx, `
		SELECT id, request_id, category, cost, region, summary, created_at
		FROM leads WHERE id = $1
	`, id).Scan(&l.ID, &l.RequestID, &l.Category, &l.Cost, &l.Region, &l.Summary, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByRequestTx returns the request's leads with their unlock counts,
// locking the lead rows so a concurrent edit or unlock serializes.
func (r *LeadRepo) ListByRequestTx(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) ([]*models.Lead, error) {
	rows, err := tx.Query(ctx, `
		SELECT l.id, l.request_id, l.category, l.cost, l.region, l.summary, l.created_at,
			(SELECT COUNT(*) FROM unlocked_leads u WHERE u.lead_id = l.id) AS unlocks
		FROM leads l
		WHERE l.request_id = $1
		ORDER BY l.created_at ASC
		FOR UPDATE OF l
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

func (r *LeadRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.request_id, l.category, l.cost, l.region, l.summary, l.created_at,
			(SELECT COUNT(*) FROM unlocked_leads u WHERE u.lead_id = l.id) AS unlocks
		FROM leads l
		WHERE l.request_id = $1
		ORDER BY l.created_at ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

func (r *LeadRepo) DeleteTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM leads WHERE id = $1`, leadID)
	return err
}

// RefreshTx updates the mutable snapshot fields of a lead. Cost is never
// touched here.
func (r *LeadRepo) RefreshTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, region, summary string) error {
	_, err := tx.Exec(ctx, `
		UPDATE leads SET region = $2, summary = $3 WHERE id = $1
	`, leadID, region, summary)
	return err
}

// ListAvailable returns leads a professional can still unlock: category in
// their set, owning request pending, and no unlock record by them. Region
// matching against the free-text label happens in the service layer.
func (r *LeadRepo) ListAvailable(ctx context.Context, categories []string, professionalID uuid.UUID) ([]*models.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.request_id, l.category, l.cost, l.region, l.summary, l.created_at, 0 AS unlocks
		FROM leads l
		JOIN service_requests sr ON sr.id = l.request_id
		WHERE l.category = ANY($1)
		  AND sr.status = 'pending'
		  AND NOT EXISTS (
			SELECT 1 FROM unlocked_leads u
			WHERE u.lead_id = l.id AND u.professional_id = $2
		  )
		ORDER BY l.created_at DESC
	`, categories, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

func scanLeads(rows pgx.Rows) ([]*models.Lead, error) {
	var list []*models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.RequestID, &l.Category, &l.Cost, &l.Region, &l.Summary, &l.CreatedAt, &l.Unlocks); err != nil {
			return nil, err
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
