package models

import (
	"time"

	"github.com/google/uuid"
)

// Proposal status enums. Accepted and rejected are terminal.
const (
	ProposalStatusPending  = "pending"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
)

type Proposal struct {
	ID             uuid.UUID `json:"id"`
	RequestID      uuid.UUID `json:"request_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Price          int       `json:"price"`
	Description    string    `json:"description"`
	EstimatedDays  *int      `json:"estimated_days,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
