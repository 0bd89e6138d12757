package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oficio-app/backend/internal/middleware"
	"github.com/oficio-app/backend/internal/models"
)

// ProfileStore persists professional matching profiles.
type ProfileStore interface {
	Upsert(ctx context.Context, p *models.ProfessionalProfile) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.ProfessionalProfile, error)
}

// ProfileHandler serves /v1/profile for professionals.
type ProfileHandler struct {
	Profiles ProfileStore
	Logger   *slog.Logger
}

type profileRequest struct {
	Categories []string `json:"categories"`
	Regions    []string `json:"regions"`
	NotifyURL  string   `json:"notify_url"`
}

// Put handles PUT /v1/profile: create or replace the caller's profile.
func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if req.NotifyURL != "" {
		u, err := url.Parse(req.NotifyURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "notify_url must be an http(s) URL"})
			return
		}
	}

	profile := &models.ProfessionalProfile{
		AccountID:  p.AccountID,
		Categories: normalize(req.Categories),
		Regions:    trimAll(req.Regions),
		NotifyURL:  req.NotifyURL,
	}
	if err := h.Profiles.Upsert(r.Context(), profile); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Get handles GET /v1/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	profile, err := h.Profiles.GetByAccountID(r.Context(), p.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no profile yet"})
			return
		}
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// normalize lowercases, trims and drops empty entries, matching how lead
// categories are stored.
func normalize(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
