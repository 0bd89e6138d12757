package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/oficio-app/backend/internal/middleware"
	"github.com/oficio-app/backend/internal/models"
)

// CreditPurchaser confirms credit purchases.
type CreditPurchaser interface {
	Purchase(ctx context.Context, professionalID uuid.UUID, amount int, description string) (*models.CreditTransaction, error)
}

// LedgerReader lists a professional's credit history.
type LedgerReader interface {
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.CreditTransaction, error)
}

// BalanceReader resolves current account state.
type BalanceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// CreditHandler serves /v1/credits for professionals.
type CreditHandler struct {
	Purchaser CreditPurchaser
	Ledger    LedgerReader
	Accounts  BalanceReader
	Logger    *slog.Logger
}

type purchaseRequest struct {
	Amount int `json:"amount"`
}

// Purchase handles POST /v1/credits/purchase. Payment capture itself lives
// outside this service; this endpoint records a confirmed purchase.
func (h *CreditHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	entry, err := h.Purchaser.Purchase(r.Context(), p.AccountID, req.Amount,
		fmt.Sprintf("purchase of %d credits", req.Amount))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// History handles GET /v1/credits: balance plus the full ledger.
func (h *CreditHandler) History(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	acc, err := h.Accounts.GetByID(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	entries, err := h.Ledger.ListByProfessional(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if entries == nil {
		entries = []*models.CreditTransaction{}
	}
	writeJSON(w, http.StatusOK, struct {
		Balance      int                         `json:"balance"`
		Transactions []*models.CreditTransaction `json:"transactions"`
	}{acc.CreditBalance, entries})
}
