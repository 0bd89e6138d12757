package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditTransaction is a single row in the append-only credit ledger.
// Amount is signed: positive for purchases, negative for lead unlocks.
// The professional's authoritative balance must always equal the running
// sum of their transactions.
type CreditTransaction struct {
	ID             uuid.UUID `json:"id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Amount         int       `json:"amount"`
	BalanceAfter   int       `json:"balance_after"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
