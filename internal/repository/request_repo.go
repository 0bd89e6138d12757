package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oficio-app/backend/internal/models"
)

type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

func (r *RequestRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const requestColumns = `id, client_id, categories, title, description, region, budget, photo_refs, status, created_at, updated_at, completed_at`

func scanRequest(row pgx.Row) (*models.ServiceRequest, error) {
	var sr models.ServiceRequest
	err := row.Scan(&sr.ID, &sr.ClientID, &sr.Categories, &sr.Title, &sr.Description,
		&sr.Region, &sr.Budget, &sr.PhotoRefs, &sr.Status, &sr.CreatedAt, &sr.UpdatedAt, &sr.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

func (r *RequestRepo) CreateTx(ctx context.Context, tx pgx.Tx, sr *models.ServiceRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO service_requests (id, client_id, categories, title, description, region, budget, photo_refs, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, sr.ID, sr.ClientID, sr.Categories, sr.Title, sr.Description, sr.Region,
		sr.Budget, sr.PhotoRefs, sr.Status).Scan(&sr.CreatedAt, &sr.UpdatedAt)
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id))
}

// GetByIDForUpdate locks the request row. Call within a transaction; this is
// the serialization point for competing accepts and edits.
func (r *RequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.ServiceRequest, error) {
	return scanRequest(tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE id = $1 FOR UPDATE`, id))
}

// UpdateDetailsTx rewrites the client-editable fields.
func (r *RequestRepo) UpdateDetailsTx(ctx context.Context, tx pgx.Tx, sr *models.ServiceRequest) error {
	_, err := tx.Exec(ctx, `
		UPDATE service_requests
		SET categories = $2, title = $3, description = $4, region = $5, budget = $6, photo_refs = $7, updated_at = now()
		WHERE id = $1
	`, sr.ID, sr.Categories, sr.Title, sr.Description, sr.Region, sr.Budget, sr.PhotoRefs)
	return err
}

func (r *RequestRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE service_requests SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// MarkCompletedTx sets status completed and stamps completed_at.
func (r *RequestRepo) MarkCompletedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE service_requests SET status = 'completed', completed_at = now(), updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (r *RequestRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.ServiceRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ServiceRequest
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, sr)
	}
	return list, rows.Err()
}
