package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead is the per-category, priced view of a ServiceRequest offered to
// matching professionals. Cost is snapshotted from the pricing table at
// creation and never recomputed.
type Lead struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"request_id"`
	Category  string    `json:"category"`
	Cost      int       `json:"cost"`
	Region    string    `json:"region"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`

	// Unlocks is the number of unlock records held against this lead.
	// Populated only by listings that join unlocked_leads.
	Unlocks int `json:"unlocks,omitempty"`
}

// UnlockRecord marks that a professional paid to reveal a lead.
// Unique per (lead, professional); never mutated or deleted.
type UnlockRecord struct {
	LeadID         uuid.UUID `json:"lead_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	CostPaid       int       `json:"cost_paid"`
	CreatedAt      time.Time `json:"created_at"`
}
