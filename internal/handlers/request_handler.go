package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oficio-app/backend/internal/middleware"
	"github.com/oficio-app/backend/internal/models"
	"github.com/oficio-app/backend/internal/services"
)

// Derivation is the request lifecycle the handler drives.
type Derivation interface {
	CreateRequest(ctx context.Context, clientID uuid.UUID, in services.RequestInput) (*services.DerivationResult, error)
	EditRequest(ctx context.Context, clientID, requestID uuid.UUID, in services.RequestInput) (*services.DerivationResult, error)
}

// RequestLifecycle drives the completion and cancellation transitions.
type RequestLifecycle interface {
	Complete(ctx context.Context, clientID, requestID uuid.UUID) (*models.ServiceRequest, error)
	Cancel(ctx context.Context, clientID, requestID uuid.UUID) (*models.ServiceRequest, error)
}

// RequestReader lists and fetches a client's own requests.
type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.ServiceRequest, error)
}

// RequestLeadLister fetches the leads derived from a request.
type RequestLeadLister interface {
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Lead, error)
}

// RequestHandler serves the client side of /v1/requests.
type RequestHandler struct {
	Derivation Derivation
	Lifecycle  RequestLifecycle
	Requests   RequestReader
	Leads      RequestLeadLister
	Validator  *services.Validator
	Logger     *slog.Logger
}

// requestDetail is the owner's view of a request together with the leads
// derived from it.
type requestDetail struct {
	*models.ServiceRequest
	Leads []*models.Lead `json:"leads"`
}

// decodeRequestInput runs the schema check against the raw body before
// unmarshalling into the typed input.
func (h *RequestHandler) decodeRequestInput(w http.ResponseWriter, r *http.Request) (services.RequestInput, bool) {
	var in services.RequestInput
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cannot read body"})
		return in, false
	}
	if err := h.Validator.ValidateRequest(body); err != nil {
		writeServiceError(w, h.Logger, err)
		return in, false
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return in, false
	}
	return in, true
}

// CreateRequest handles POST /v1/requests.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	in, ok := h.decodeRequestInput(w, r)
	if !ok {
		return
	}
	result, err := h.Derivation.CreateRequest(r.Context(), p.AccountID, in)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// EditRequest handles PUT /v1/requests/{id}.
func (h *RequestHandler) EditRequest(w http.ResponseWriter, r *http.Request) {
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
	in, ok := h.decodeRequestInput(w, r)
	if !ok {
		return
	}
	result, err := h.Derivation.EditRequest(r.Context(), p.AccountID, requestID, in)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetRequest handles GET /v1/requests/{id}. Owner only.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
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
	sr, err := h.Requests.GetByID(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
			return
		}
		writeServiceError(w, h.Logger, err)
		return
	}
	if sr.ClientID != p.AccountID {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}
	leads, err := h.Leads.ListByRequest(r.Context(), requestID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	writeJSON(w, http.StatusOK, requestDetail{ServiceRequest: sr, Leads: leads})
}

// ListRequests handles GET /v1/requests, listing the caller's own requests.
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	list, err := h.Requests.ListByClient(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.ServiceRequest{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CompleteRequest handles POST /v1/requests/{id}/complete.
func (h *RequestHandler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Complete)
}

// CancelRequest handles POST /v1/requests/{id}/cancel.
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Cancel)
}

func (h *RequestHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) (*models.ServiceRequest, error)) {
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
	sr, err := fn(r.Context(), p.AccountID, requestID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sr)
}
