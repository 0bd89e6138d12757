package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oficio-app/backend/internal/middleware"
	"github.com/oficio-app/backend/internal/models"
	"github.com/oficio-app/backend/internal/services"
)

// LeadReader is the lead store side of the handler.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	ListAvailable(ctx context.Context, categories []string, professionalID uuid.UUID) ([]*models.Lead, error)
}

// Unlocker is the unlock gateway the handler drives.
type Unlocker interface {
	Unlock(ctx context.Context, professionalID, leadID uuid.UUID) (*models.UnlockRecord, error)
	UnlockedLeads(ctx context.Context, professionalID uuid.UUID) ([]*models.Lead, error)
}

// UnlockChecker gates access to the full request behind a paid unlock.
type UnlockChecker interface {
	Exists(ctx context.Context, leadID, professionalID uuid.UUID) (bool, error)
}

// ProfileReader resolves the caller's matching profile for the feed.
type ProfileReader interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.ProfessionalProfile, error)
}

// LeadRequestReader reveals the request behind an unlocked lead.
type LeadRequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
}

// LeadHandler serves the professional side of /v1/leads.
type LeadHandler struct {
	Leads    LeadReader
	Unlock   Unlocker
	Unlocks  UnlockChecker
	Profiles ProfileReader
	Requests LeadRequestReader
	Logger   *slog.Logger
}

// leadDetail is a lead plus, once unlocked, the full request behind it.
type leadDetail struct {
	Lead     *models.Lead           `json:"lead"`
	Unlocked bool                   `json:"unlocked"`
	Request  *models.ServiceRequest `json:"request,omitempty"`
}

// ListAvailable handles GET /v1/leads: the caller's feed of unlockable
// leads, filtered by their profile categories and regions.
func (h *LeadHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	profile, err := h.Profiles.GetByAccountID(r.Context(), p.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No profile yet means no matching categories, so an empty feed.
			writeJSON(w, http.StatusOK, []*models.Lead{})
			return
		}
		writeServiceError(w, h.Logger, err)
		return
	}
	if len(profile.Categories) == 0 {
		writeJSON(w, http.StatusOK, []*models.Lead{})
		return
	}

	leads, err := h.Leads.ListAvailable(r.Context(), profile.Categories, p.AccountID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}

	feed := make([]*models.Lead, 0, len(leads))
	for _, l := range leads {
		if services.MatchesAnyRegion(profile.Regions, l.Region) {
			feed = append(feed, l)
		}
	}
	writeJSON(w, http.StatusOK, feed)
}

// GetLead handles GET /v1/leads/{id}. Everyone authenticated sees the
// teaser; the request behind it is included only after the caller unlocked.
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	leadID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid lead id"})
		return
	}

	lead, err := h.Leads.GetByID(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
			return
		}
		writeServiceError(w, h.Logger, err)
		return
	}

	detail := leadDetail{Lead: lead}
	unlocked, err := h.Unlocks.Exists(r.Context(), leadID, p.AccountID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if unlocked {
		sr, err := h.Requests.GetByID(r.Context(), lead.RequestID)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}
		detail.Unlocked = true
		detail.Request = sr
	}
	writeJSON(w, http.StatusOK, detail)
}

// UnlockLead handles POST /v1/leads/{id}/unlock. On success the response
// carries the unlock record and the revealed request.
func (h *LeadHandler) UnlockLead(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	leadID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid lead id"})
		return
	}

	record, err := h.Unlock.Unlock(r.Context(), p.AccountID, leadID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}

	lead, err := h.Leads.GetByID(r.Context(), leadID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	sr, err := h.Requests.GetByID(r.Context(), lead.RequestID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Unlock  *models.UnlockRecord   `json:"unlock"`
		Lead    *models.Lead           `json:"lead"`
		Request *models.ServiceRequest `json:"request"`
	}{record, lead, sr})
}

// ListUnlocked handles GET /v1/leads/unlocked.
func (h *LeadHandler) ListUnlocked(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	leads, err := h.Unlock.UnlockedLeads(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}
