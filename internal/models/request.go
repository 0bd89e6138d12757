package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceRequest status enums. Transitions are monotonic along
// pending → active → completed; cancelled is reachable from pending only.
const (
	RequestStatusPending   = "pending"
	RequestStatusActive    = "active"
	RequestStatusCompleted = "completed"
	RequestStatusCancelled = "cancelled"
)

type ServiceRequest struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"client_id"`
	Categories  []string   `json:"categories"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Region      string     `json:"region"`
	Budget      *int       `json:"budget,omitempty"`
	PhotoRefs   []string   `json:"photo_refs,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
