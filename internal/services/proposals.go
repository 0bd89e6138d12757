package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oficio-app/backend/internal/models"
)

// ProposalRepo is the proposal store seen by the state machine.
type ProposalRepo interface {
	Create(ctx context.Context, p *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Proposal, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	RejectPendingSiblingsTx(ctx context.Context, tx pgx.Tx, requestID, acceptedID uuid.UUID) error
	HasAccepted(ctx context.Context, requestID uuid.UUID) (bool, error)
	HasLive(ctx context.Context, requestID, professionalID uuid.UUID) (bool, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Proposal, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.Proposal, error)
}

// ProposalRequestRepo is the request store seen by the state machine.
type ProposalRequestRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.ServiceRequest, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	MarkCompletedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// ProposalUnlockRepo checks the unlock gate for submission.
type ProposalUnlockRepo interface {
	ExistsForRequest(ctx context.Context, requestID, professionalID uuid.UUID) (bool, error)
}

// ProposalInput carries the professional-supplied fields of a proposal.
type ProposalInput struct {
	Price         int    `json:"price"`
	Description   string `json:"description"`
	EstimatedDays *int   `json:"estimated_days,omitempty"`
}

// ProposalService runs the proposal lifecycle and the request transitions it
// drives. Accepting a proposal serializes on the request row so at most one
// proposal per request ever reaches accepted.
type ProposalService struct {
	Pool      TxBeginner
	Proposals ProposalRepo
	Requests  ProposalRequestRepo
	Unlocks   ProposalUnlockRepo
	Log       *slog.Logger
}

func NewProposalService(pool TxBeginner, proposals ProposalRepo, requests ProposalRequestRepo, unlocks ProposalUnlockRepo, log *slog.Logger) *ProposalService {
	if log == nil {
		log = slog.Default()
	}
	return &ProposalService{Pool: pool, Proposals: proposals, Requests: requests, Unlocks: unlocks, Log: log}
}

// Submit files a proposal on a request the professional has unlocked a lead
// for. A professional may hold at most one live (pending or accepted)
// proposal per request; a rejected proposal does not block resubmission.
func (s *ProposalService) Submit(ctx context.Context, professionalID, requestID uuid.UUID, in ProposalInput) (*models.Proposal, error) {
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if in.EstimatedDays != nil && *in.EstimatedDays <= 0 {
		return nil, fmt.Errorf("%w: estimated_days must be positive", ErrValidation)
	}

	sr, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if sr.Status != models.RequestStatusPending {
		return nil, ErrRequestNotAccepting
	}

	unlocked, err := s.Unlocks.ExistsForRequest(ctx, requestID, professionalID)
	if err != nil {
		return nil, fmt.Errorf("check unlock: %w", err)
	}
	if !unlocked {
		return nil, ErrNotUnlocked
	}

	live, err := s.Proposals.HasLive(ctx, requestID, professionalID)
	if err != nil {
		return nil, fmt.Errorf("check live proposal: %w", err)
	}
	if live {
		return nil, ErrDuplicateProposal
	}

	p := &models.Proposal{
		ID:             uuid.New(),
		RequestID:      requestID,
		ProfessionalID: professionalID,
		Price:          in.Price,
		Description:    in.Description,
		EstimatedDays:  in.EstimatedDays,
		Status:         models.ProposalStatusPending,
	}
	if err := s.Proposals.Create(ctx, p); err != nil {
		// Concurrent submit lost the race to the partial unique index.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateProposal
		}
		return nil, fmt.Errorf("create proposal: %w", err)
	}

	s.Log.Info("proposal submitted",
		"proposal_id", p.ID, "request_id", requestID, "professional_id", professionalID, "price", in.Price)
	return p, nil
}

// Accept marks one proposal accepted, rejects its pending siblings and moves
// the request to active, atomically. Concurrent accepts queue on the request
// row lock; the loser re-reads its proposal as rejected and fails with
// ErrAlreadyDecided.
func (s *ProposalService) Accept(ctx context.Context, clientID, proposalID uuid.UUID) (*models.Proposal, error) {
	p, err := s.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	sr, err := s.Requests.GetByIDForUpdate(ctx, tx, p.RequestID)
	if err != nil {
		return nil, fmt.Errorf("lock request: %w", err)
	}
	if sr.ClientID != clientID {
		return nil, ErrForbidden
	}
	switch sr.Status {
	case models.RequestStatusPending:
	case models.RequestStatusActive:
		return nil, ErrAlreadyDecided
	default:
		return nil, ErrRequestNotAccepting
	}

	// Re-read under the lock: a concurrent accept of a sibling may have
	// rejected this proposal between the first read and the row lock.
	p, err = s.Proposals.GetByIDTx(ctx, tx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("reread proposal: %w", err)
	}
	if p.Status != models.ProposalStatusPending {
		return nil, ErrAlreadyDecided
	}

	if err := s.Proposals.UpdateStatusTx(ctx, tx, proposalID, models.ProposalStatusAccepted); err != nil {
		return nil, fmt.Errorf("accept proposal: %w", err)
	}
	if err := s.Proposals.RejectPendingSiblingsTx(ctx, tx, p.RequestID, proposalID); err != nil {
		return nil, fmt.Errorf("reject siblings: %w", err)
	}
	if err := s.Requests.UpdateStatusTx(ctx, tx, p.RequestID, models.RequestStatusActive); err != nil {
		return nil, fmt.Errorf("activate request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit accept tx: %w", err)
	}

	p.Status = models.ProposalStatusAccepted
	s.Log.Info("proposal accepted",
		"proposal_id", proposalID, "request_id", p.RequestID, "professional_id", p.ProfessionalID)
	return p, nil
}

// Reject marks a pending proposal rejected. Terminal proposals cannot be
// rejected again.
func (s *ProposalService) Reject(ctx context.Context, clientID, proposalID uuid.UUID) (*models.Proposal, error) {
	p, err := s.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reject tx: %w", err)
	}
	defer tx.Rollback(ctx)

	sr, err := s.Requests.GetByIDForUpdate(ctx, tx, p.RequestID)
	if err != nil {
		return nil, fmt.Errorf("lock request: %w", err)
	}
	if sr.ClientID != clientID {
		return nil, ErrForbidden
	}

	p, err = s.Proposals.GetByIDTx(ctx, tx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("reread proposal: %w", err)
	}
	if p.Status != models.ProposalStatusPending {
		return nil, ErrAlreadyDecided
	}

	if err := s.Proposals.UpdateStatusTx(ctx, tx, proposalID, models.ProposalStatusRejected); err != nil {
		return nil, fmt.Errorf("reject proposal: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reject tx: %w", err)
	}

	p.Status = models.ProposalStatusRejected
	s.Log.Info("proposal rejected", "proposal_id", proposalID, "request_id", p.RequestID)
	return p, nil
}

// Complete moves an active request to completed and stamps completed_at.
// Only the owning client may complete, and only once a proposal is accepted.
func (s *ProposalService) Complete(ctx context.Context, clientID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	sr, err := s.Requests.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	if sr.ClientID != clientID {
		return nil, ErrForbidden
	}
	if sr.Status != models.RequestStatusActive {
		return nil, fmt.Errorf("%w: request is %s", ErrRequestNotAccepting, sr.Status)
	}
	accepted, err := s.Proposals.HasAccepted(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("check accepted proposal: %w", err)
	}
	if !accepted {
		return nil, fmt.Errorf("%w: no accepted proposal", ErrRequestNotAccepting)
	}

	if err := s.Requests.MarkCompletedTx(ctx, tx, requestID); err != nil {
		return nil, fmt.Errorf("complete request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit complete tx: %w", err)
	}

	sr.Status = models.RequestStatusCompleted
	s.Log.Info("request completed", "request_id", requestID)
	return sr, nil
}

// Cancel withdraws a pending request. Active and terminal requests cannot
// be cancelled.
func (s *ProposalService) Cancel(ctx context.Context, clientID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback(ctx)

	sr, err := s.Requests.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	if sr.ClientID != clientID {
		return nil, ErrForbidden
	}
	if sr.Status != models.RequestStatusPending {
		return nil, fmt.Errorf("%w: request is %s", ErrRequestNotAccepting, sr.Status)
	}

	if err := s.Requests.UpdateStatusTx(ctx, tx, requestID, models.RequestStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel tx: %w", err)
	}

	sr.Status = models.RequestStatusCancelled
	s.Log.Info("request cancelled", "request_id", requestID)
	return sr, nil
}

// ListForRequest returns a request's proposals to its owning client.
func (s *ProposalService) ListForRequest(ctx context.Context, clientID, requestID uuid.UUID) ([]*models.Proposal, error) {
	sr, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if sr.ClientID != clientID {
		return nil, ErrForbidden
	}
	return s.Proposals.ListByRequest(ctx, requestID)
}

// ListForProfessional returns the caller's own proposals.
func (s *ProposalService) ListForProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.Proposal, error) {
	return s.Proposals.ListByProfessional(ctx, professionalID)
}
