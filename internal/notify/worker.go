// Package notify delivers lead-availability notifications to professionals.
// Jobs are enqueued transactionally with the lead that triggered them and
// delivered best-effort by a River worker; a delivery failure never reaches
// the operation that created the lead.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

type LeadNotificationArgs struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	LeadID         uuid.UUID `json:"lead_id"`
	Category       string    `json:"category"`
	Region         string    `json:"region"`
	Cost           int       `json:"cost"`
	NotifyURL      string    `json:"notify_url"`
}

func (LeadNotificationArgs) Kind() string { return "lead_notification" }

type LeadNotificationWorker struct {
	river.WorkerDefaults[LeadNotificationArgs]
	httpClient *http.Client
	log        *slog.Logger
}

func NewLeadNotificationWorker(log *slog.Logger) *LeadNotificationWorker {
	if log == nil {
		log = slog.Default()
	}
	return &LeadNotificationWorker{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// notificationPayload is the JSON body POSTed to the professional's
// notification endpoint.
type notificationPayload struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	LeadID         uuid.UUID `json:"lead_id"`
	Category       string    `json:"category"`
	Region         string    `json:"region"`
	Cost           int       `json:"cost"`
}

func (w *LeadNotificationWorker) Work(ctx context.Context, job *river.Job[LeadNotificationArgs]) error {
	args := job.Args

	if args.NotifyURL == "" {
		w.log.Info("no notify URL configured, skipping",
			"professional_id", args.ProfessionalID, "lead_id", args.LeadID)
		return nil
	}

	body, err := json.Marshal(notificationPayload{
		ProfessionalID: args.ProfessionalID,
		LeadID:         args.LeadID,
		Category:       args.Category,
		Region:         args.Region,
		Cost:           args.Cost,
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, args.NotifyURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.log.Warn("notification delivery failed",
			"professional_id", args.ProfessionalID, "lead_id", args.LeadID, "error", err)
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.log.Warn("notification endpoint returned non-2xx",
			"professional_id", args.ProfessionalID, "lead_id", args.LeadID, "status", resp.StatusCode)
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
