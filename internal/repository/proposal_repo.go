package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oficio-app/backend/internal/models"
)

type ProposalRepo struct {
	pool *pgxpool.Pool
}

func NewProposalRepo(pool *pgxpool.Pool) *ProposalRepo {
	return &ProposalRepo{pool: pool}
}

const proposalColumns = `id, request_id, professional_id, price, description, estimated_days, status, created_at, updated_at`

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(&p.ID, &p.RequestID, &p.ProfessionalID, &p.Price, &p.Description,
		&p.EstimatedDays, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a pending proposal. The partial unique index on
// (request_id, professional_id) WHERE status <> 'rejected' raises a unique
// violation when the professional already has a live proposal.
func (r *ProposalRepo) Create(ctx context.Context, p *models.Proposal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO proposals (id, request_id, professional_id, price, description, estimated_days, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.RequestID, p.ProfessionalID, p.Price, p.Description, p.EstimatedDays, p.Status).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return scanProposal(r.pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
}

func (r *ProposalRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Proposal, error) {
	return scanProposal(tx.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, id))
}

func (r *ProposalRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE proposals SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// RejectPendingSiblingsTx rejects every other pending proposal on the same
// request. Part of the accept transaction.
func (r *ProposalRepo) RejectPendingSiblingsTx(ctx context.Context, tx pgx.Tx, requestID, acceptedID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE proposals SET status = 'rejected', updated_at = now()
		WHERE request_id = $1 AND id <> $2 AND status = 'pending'
	`, requestID, acceptedID)
	return err
}

// HasAccepted reports whether the request already has an accepted proposal.
func (r *ProposalRepo) HasAccepted(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM proposals WHERE request_id = $1 AND status = 'accepted')
	`, requestID).Scan(&exists)
	return exists, err
}

// HasLive reports whether the professional has a non-rejected proposal on
// the request. Rejected proposals do not block resubmission.
func (r *ProposalRepo) HasLive(ctx context.Context, requestID, professionalID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM proposals
			WHERE request_id = $1 AND professional_id = $2 AND status <> 'rejected'
		)
	`, requestID, professionalID).Scan(&exists)
	return exists, err
}

func (r *ProposalRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Proposal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE request_id = $1 ORDER BY created_at ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProposals(rows)
}

func (r *ProposalRepo) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.Proposal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE professional_id = $1 ORDER BY created_at DESC`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProposals(rows)
}

func collectProposals(rows pgx.Rows) ([]*models.Proposal, error) {
	var list []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
