package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oficio-app/backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Upsert(ctx context.Context, p *models.ProfessionalProfile) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO professional_profiles (account_id, categories, regions, notify_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
			SET categories = $2, regions = $3, notify_url = $4, updated_at = now()
		RETURNING created_at, updated_at
	`, p.AccountID, p.Categories, p.Regions, p.NotifyURL).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProfileRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.ProfessionalProfile, error) {
	var p models.ProfessionalProfile
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, categories, regions, notify_url, created_at, updated_at
		FROM professional_profiles WHERE account_id = $1
	`, accountID).Scan(&p.AccountID, &p.Categories, &p.Regions, &p.NotifyURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByCategory returns every profile offering the given category.
// Region filtering happens in Go against the lead's free-text label.
func (r *ProfileRepo) FindByCategory(ctx context.Context, category string) ([]*models.ProfessionalProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT account_id, categories, regions, notify_url, created_at, updated_at
		FROM professional_profiles WHERE $1 = ANY(categories)
		ORDER BY created_at ASC
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ProfessionalProfile
	for rows.Next() {
		var p models.ProfessionalProfile
		if err := rows.Scan(&p.AccountID, &p.Categories, &p.Regions, &p.NotifyURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
