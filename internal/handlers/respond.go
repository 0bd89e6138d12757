package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oficio-app/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps service sentinels to HTTP statuses. Anything
// unmapped is logged and reported as a 500 without leaking the cause.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInsufficientCredits):
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: "insufficient credits"})
	case errors.Is(err, services.ErrAlreadyUnlocked):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "lead already unlocked"})
	case errors.Is(err, services.ErrDuplicateProposal):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a live proposal already exists for this request"})
	case errors.Is(err, services.ErrAlreadyDecided):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "proposal already decided"})
	case errors.Is(err, services.ErrRequestNotAccepting):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrEditNotAllowed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "request can no longer be edited"})
	case errors.Is(err, services.ErrNotUnlocked):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "unlock a lead for this request first"})
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		if log != nil {
			log.Error("request failed", "error", err)
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
