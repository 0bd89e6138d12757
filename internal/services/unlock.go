package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oficio-app/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UnlockLeadRepo is the minimal lead lookup for the unlock gateway.
type UnlockLeadRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
}

// UnlockRecordRepo persists unlock records.
type UnlockRecordRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, u *models.UnlockRecord) error
	ListUnlockedLeads(ctx context.Context, professionalID uuid.UUID) ([]*models.Lead, error)
}

// UnlockAccountRepo is the balance side of the gateway.
type UnlockAccountRepo interface {
	DeductCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
}

// UnlockCreditRepo appends ledger entries.
type UnlockCreditRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, c *models.CreditTransaction) error
}

// UnlockService converts a locked lead into an unlocked lead for exactly one
// professional, debiting credits exactly once. The credit balance is never
// written outside this service and the purchase path below.
type UnlockService struct {
	Pool     TxBeginner
	Leads    UnlockLeadRepo
	Unlocks  UnlockRecordRepo
	Accounts UnlockAccountRepo
	Credits  UnlockCreditRepo
	Log      *slog.Logger
}

func NewUnlockService(pool TxBeginner, leads UnlockLeadRepo, unlocks UnlockRecordRepo, accounts UnlockAccountRepo, credits UnlockCreditRepo, log *slog.Logger) *UnlockService {
	if log == nil {
		log = slog.Default()
	}
	return &UnlockService{Pool: pool, Leads: leads, Unlocks: unlocks, Accounts: accounts, Credits: credits, Log: log}
}

// Unlock performs the atomic debit-and-unlock. In one transaction it
// (1) inserts the unlock record, where the (lead, professional) primary key makes
// a concurrent or repeated attempt fail with ErrAlreadyUnlocked before any
// charge, (2) conditionally debits the balance, failing with
// ErrInsufficientCredits when it cannot cover the cost, and (3) appends the
// ledger entry carrying the resulting balance. All three apply or none do.
func (s *UnlockService) Unlock(ctx context.Context, professionalID, leadID uuid.UUID) (*models.UnlockRecord, error) {
	lead, err := s.Leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unlock tx: %w", err)
	}
	defer tx.Rollback(ctx)

	record := &models.UnlockRecord{
		LeadID:         leadID,
		ProfessionalID: professionalID,
		CostPaid:       lead.Cost,
	}
	if err := s.Unlocks.CreateTx(ctx, tx, record); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyUnlocked
		}
		return nil, fmt.Errorf("insert unlock record: %w", err)
	}

	newBalance, err := s.Accounts.DeductCredits(ctx, tx, professionalID, lead.Cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientCredits
		}
		return nil, fmt.Errorf("debit credits: %w", err)
	}

	if err := s.Credits.CreateTx(ctx, tx, &models.CreditTransaction{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		Amount:         -lead.Cost,
		BalanceAfter:   newBalance,
		Description:    fmt.Sprintf("unlock lead %s (%s)", leadID, lead.Category),
	}); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit unlock tx: %w", err)
	}

	s.Log.Info("lead unlocked",
		"lead_id", leadID, "professional_id", professionalID, "cost", lead.Cost, "balance", newBalance)
	return record, nil
}

// Purchase confirms a credit purchase: appends a positive ledger entry and
// bumps the balance in one transaction. This is the only ledger writer
// besides Unlock.
func (s *UnlockService) Purchase(ctx context.Context, professionalID uuid.UUID, amount int, description string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: purchase amount must be positive", ErrValidation)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin purchase tx: %w", err)
	}
	defer tx.Rollback(ctx)

	newBalance, err := s.Accounts.AddCredits(ctx, tx, professionalID, amount)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}

	entry := &models.CreditTransaction{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		Amount:         amount,
		BalanceAfter:   newBalance,
		Description:    description,
	}
	if err := s.Credits.CreateTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase tx: %w", err)
	}
	return entry, nil
}

// UnlockedLeads lists the leads the professional has paid to reveal.
func (s *UnlockService) UnlockedLeads(ctx context.Context, professionalID uuid.UUID) ([]*models.Lead, error) {
	return s.Unlocks.ListUnlockedLeads(ctx, professionalID)
}
