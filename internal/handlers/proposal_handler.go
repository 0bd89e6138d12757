package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/oficio-app/backend/internal/middleware"
	"github.com/oficio-app/backend/internal/models"
	"github.com/oficio-app/backend/internal/services"
)

// Proposals is the proposal lifecycle the handler drives.
type Proposals interface {
	Submit(ctx context.Context, professionalID, requestID uuid.UUID, in services.ProposalInput) (*models.Proposal, error)
	Accept(ctx context.Context, clientID, proposalID uuid.UUID) (*models.Proposal, error)
	Reject(ctx context.Context, clientID, proposalID uuid.UUID) (*models.Proposal, error)
	ListForRequest(ctx context.Context, clientID, requestID uuid.UUID) ([]*models.Proposal, error)
	ListForProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.Proposal, error)
}

// ProposalHandler serves /v1/requests/{id}/proposals and /v1/proposals.
type ProposalHandler struct {
	Proposals Proposals
	Validator *services.Validator
	Logger    *slog.Logger
}

// Submit handles POST /v1/requests/{id}/proposals.
func (h *ProposalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request id"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cannot read body"})
		return
	}
	if err := h.Validator.ValidateProposal(body); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	var in services.ProposalInput
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	proposal, err := h.Proposals.Submit(r.Context(), p.AccountID, requestID, in)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, proposal)
}

// Accept handles POST /v1/proposals/{id}/accept.
func (h *ProposalHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Proposals.Accept)
}

// Reject handles POST /v1/proposals/{id}/reject.
func (h *ProposalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Proposals.Reject)
}

func (h *ProposalHandler) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) (*models.Proposal, error)) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	proposalID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid proposal id"})
		return
	}
	proposal, err := fn(r.Context(), p.AccountID, proposalID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// ListForRequest handles GET /v1/requests/{id}/proposals. Owner only.
func (h *ProposalHandler) ListForRequest(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request id"})
		return
	}
	list, err := h.Proposals.ListForRequest(r.Context(), p.AccountID, requestID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Proposal{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListMine handles GET /v1/proposals, listing the professional's own proposals.
func (h *ProposalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	list, err := h.Proposals.ListForProfessional(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.Proposal{}
	}
	writeJSON(w, http.StatusOK, list)
}
