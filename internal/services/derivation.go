package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oficio-app/backend/internal/models"
)

// DerivationRequestRepo is the request store side of lead derivation.
type DerivationRequestRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, sr *models.ServiceRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.ServiceRequest, error)
	UpdateDetailsTx(ctx context.Context, tx pgx.Tx, sr *models.ServiceRequest) error
}

// DerivationLeadRepo is the lead store side of lead derivation.
type DerivationLeadRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, l *models.Lead) error
	ListByRequestTx(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) ([]*models.Lead, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) error
	RefreshTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, region, summary string) error
}

// DerivationProposalRepo checks the accepted-proposal guard for edits.
type DerivationProposalRepo interface {
	HasAccepted(ctx context.Context, requestID uuid.UUID) (bool, error)
}

// LeadFanout is the notification side of derivation.
type LeadFanout interface {
	FanOutTx(ctx context.Context, tx pgx.Tx, lead *models.Lead) (int, error)
}

// RequestInput carries the client-supplied fields of a service request.
type RequestInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Region      string   `json:"region"`
	Categories  []string `json:"categories"`
	Budget      *int     `json:"budget,omitempty"`
	PhotoRefs   []string `json:"photo_refs,omitempty"`
}

// DerivationResult enumerates what an edit did per category, so callers see
// exactly which leads changed. The whole derivation is one transaction:
// either every entry here applied, or none did.
type DerivationResult struct {
	Request   *models.ServiceRequest `json:"request"`
	Added     []string               `json:"added,omitempty"`
	Removed   []string               `json:"removed,omitempty"`
	Refreshed []string               `json:"refreshed,omitempty"`
	// Frozen lists retained or deselected categories whose lead has unlock
	// records and was therefore left untouched.
	Frozen   []string `json:"frozen,omitempty"`
	Notified int      `json:"notified"`
}

// DerivationService fans a service request out into one lead per selected
// category, prices each lead at creation time, and keeps leads in sync with
// request edits.
type DerivationService struct {
	Pool      TxBeginner
	Requests  DerivationRequestRepo
	Leads     DerivationLeadRepo
	Proposals DerivationProposalRepo
	Fanout    LeadFanout
	Cost      func(category string) int

	// RefreshUnlocked applies request edits to the region/summary of leads
	// that already have unlocks. Off by default: unlocked leads are
	// snapshots, like their cost.
	RefreshUnlocked bool

	Log *slog.Logger
}

func NewDerivationService(pool TxBeginner, requests DerivationRequestRepo, leads DerivationLeadRepo, proposals DerivationProposalRepo, fanout LeadFanout, cost func(string) int, refreshUnlocked bool, log *slog.Logger) *DerivationService {
	if log == nil {
		log = slog.Default()
	}
	return &DerivationService{
		Pool:            pool,
		Requests:        requests,
		Leads:           leads,
		Proposals:       proposals,
		Fanout:          fanout,
		Cost:            cost,
		RefreshUnlocked: refreshUnlocked,
		Log:             log,
	}
}

// CreateRequest persists the request and derives one lead per category, all
// in one transaction. Every new lead fans out exactly once.
func (s *DerivationService) CreateRequest(ctx context.Context, clientID uuid.UUID, in RequestInput) (*DerivationResult, error) {
	categories, err := validateInput(&in)
	if err != nil {
		return nil, err
	}

	sr := &models.ServiceRequest{
		ID:          uuid.New(),
		ClientID:    clientID,
		Categories:  categories,
		Title:       in.Title,
		Description: in.Description,
		Region:      in.Region,
		Budget:      in.Budget,
		PhotoRefs:   in.PhotoRefs,
		Status:      models.RequestStatusPending,
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin derivation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.Requests.CreateTx(ctx, tx, sr); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	result := &DerivationResult{Request: sr}
	for _, category := range categories {
		notified, err := s.deriveLead(ctx, tx, sr, category)
		if err != nil {
			return nil, err
		}
		result.Added = append(result.Added, category)
		result.Notified += notified
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit derivation tx: %w", err)
	}

	s.Log.Info("service request created",
		"request_id", sr.ID, "client_id", clientID, "leads", len(categories), "notified", result.Notified)
	return result, nil
}

// EditRequest recomputes the lead set from the new category selection:
// leads for removed categories are deleted, leads for added categories are
// created (and fanned out), and retained leads get their region and summary
// refreshed. Cost is never recomputed. Leads with unlock records are frozen
// unless RefreshUnlocked is set; a deselected category whose lead has
// unlocks keeps the lead rather than orphaning its unlock records.
func (s *DerivationService) EditRequest(ctx context.Context, clientID, requestID uuid.UUID, in RequestInput) (*DerivationResult, error) {
	categories, err := validateInput(&in)
	if err != nil {
		return nil, err
	}

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
	if sr.Status != models.RequestStatusPending {
		return nil, ErrEditNotAllowed
	}
	accepted, err := s.Proposals.HasAccepted(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("check accepted proposal: %w", err)
	}
	if accepted {
		return nil, ErrEditNotAllowed
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin derivation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Re-check status under the row lock: a concurrent accept may have
	// advanced the request since the read above.
	sr, err = s.Requests.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, fmt.Errorf("lock request: %w", err)
	}
	if sr.Status != models.RequestStatusPending {
		return nil, ErrEditNotAllowed
	}

	existing, err := s.Leads.ListByRequestTx(ctx, tx, requestID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	byCategory := make(map[string]*models.Lead, len(existing))
	for _, l := range existing {
		byCategory[l.Category] = l
	}
	selected := make(map[string]bool, len(categories))
	for _, c := range categories {
		selected[c] = true
	}

	sr.Title = in.Title
	sr.Description = in.Description
	sr.Region = in.Region
	sr.Budget = in.Budget
	sr.PhotoRefs = in.PhotoRefs
	sr.Categories = categories

	result := &DerivationResult{Request: sr}
	summary := leadSummary(sr.Title, sr.Description)

	for _, lead := range existing {
		switch {
		case selected[lead.Category]:
			if lead.Unlocks > 0 && !s.RefreshUnlocked {
				result.Frozen = append(result.Frozen, lead.Category)
				continue
			}
			if err := s.Leads.RefreshTx(ctx, tx, lead.ID, sr.Region, summary); err != nil {
				return nil, fmt.Errorf("refresh lead %q: %w", lead.Category, err)
			}
			result.Refreshed = append(result.Refreshed, lead.Category)
		case lead.Unlocks > 0:
			// Deselected but already paid for by someone: keep the lead so
			// unlock records stay consistent.
			result.Frozen = append(result.Frozen, lead.Category)
		default:
			if err := s.Leads.DeleteTx(ctx, tx, lead.ID); err != nil {
				return nil, fmt.Errorf("delete lead %q: %w", lead.Category, err)
			}
			result.Removed = append(result.Removed, lead.Category)
		}
	}

	for _, category := range categories {
		if _, ok := byCategory[category]; ok {
			continue
		}
		notified, err := s.deriveLead(ctx, tx, sr, category)
		if err != nil {
			return nil, err
		}
		result.Added = append(result.Added, category)
		result.Notified += notified
	}

	if err := s.Requests.UpdateDetailsTx(ctx, tx, sr); err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit derivation tx: %w", err)
	}

	s.Log.Info("service request edited",
		"request_id", requestID,
		"added", len(result.Added), "removed", len(result.Removed),
		"refreshed", len(result.Refreshed), "frozen", len(result.Frozen))
	return result, nil
}

// deriveLead creates a single priced lead and fans it out.
func (s *DerivationService) deriveLead(ctx context.Context, tx pgx.Tx, sr *models.ServiceRequest, category string) (int, error) {
	lead := &models.Lead{
		ID:        uuid.New(),
		RequestID: sr.ID,
		Category:  category,
		Cost:      s.Cost(category),
		Region:    sr.Region,
		Summary:   leadSummary(sr.Title, sr.Description),
	}
	if err := s.Leads.CreateTx(ctx, tx, lead); err != nil {
		return 0, fmt.Errorf("create lead %q: %w", category, err)
	}
	notified, err := s.Fanout.FanOutTx(ctx, tx, lead)
	if err != nil {
		return 0, fmt.Errorf("fan out lead %q: %w", category, err)
	}
	return notified, nil
}

func validateInput(in *RequestInput) ([]string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if strings.TrimSpace(in.Region) == "" {
		return nil, fmt.Errorf("%w: region is required", ErrValidation)
	}
	if in.Budget != nil && *in.Budget < 0 {
		return nil, fmt.Errorf("%w: budget cannot be negative", ErrValidation)
	}
	categories := normalizeCategories(in.Categories)
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", ErrValidation)
	}
	return categories, nil
}

// normalizeCategories lowercases, trims and de-duplicates the selection so
// the one-lead-per-category invariant holds regardless of input casing.
func normalizeCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

const summaryLimit = 160

// leadSummary builds the descriptive line professionals see before
// unlocking: the title plus a truncated description. Truncation backs up to
// a rune boundary so multibyte text never yields an invalid UTF-8 summary.
func leadSummary(title, description string) string {
	description = strings.TrimSpace(description)
	if len(description) > summaryLimit {
		cut := summaryLimit
		for cut > 0 && !utf8.RuneStart(description[cut]) {
			cut--
		}
		description = description[:cut] + "..."
	}
	if description == "" {
		return title
	}
	return title + ": " + description
}
