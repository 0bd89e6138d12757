package models

import (
	"time"

	"github.com/google/uuid"
)

// ProfessionalProfile holds the matching configuration for a professional:
// the categories they work in and the regions they cover. An empty region
// list means the professional covers all regions.
type ProfessionalProfile struct {
	AccountID  uuid.UUID `json:"account_id"`
	Categories []string  `json:"categories"`
	Regions    []string  `json:"regions"`
	NotifyURL  string    `json:"notify_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
