package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oficio-app/backend/internal/models"
	"github.com/oficio-app/backend/internal/notify"
)

// FanoutProfileRepo is the minimal profile lookup for fan-out.
type FanoutProfileRepo interface {
	FindByCategory(ctx context.Context, category string) ([]*models.ProfessionalProfile, error)
}

// FanoutUnlockRepo reports which professionals already unlocked a lead.
type FanoutUnlockRepo interface {
	ProfessionalIDs(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error)
}

// EnqueueNotifyTxFunc inserts a lead-notification job within the given
// transaction. Provided by main as a closure over river.Client.InsertTx.
type EnqueueNotifyTxFunc func(ctx context.Context, tx pgx.Tx, args notify.LeadNotificationArgs) error

// FanoutService determines which professionals should hear about a new lead
// and enqueues one notification job per match. It is a set-membership
// filter, not a ranking: category match, region match, nothing more.
type FanoutService struct {
	Profiles FanoutProfileRepo
	Unlocks  FanoutUnlockRepo
	Enqueue  EnqueueNotifyTxFunc
	Cap      int
	Log      *slog.Logger
}

func NewFanoutService(profiles FanoutProfileRepo, unlocks FanoutUnlockRepo, enqueue EnqueueNotifyTxFunc, cap int, log *slog.Logger) *FanoutService {
	if log == nil {
		log = slog.Default()
	}
	return &FanoutService{Profiles: profiles, Unlocks: unlocks, Enqueue: enqueue, Cap: cap, Log: log}
}

// FanOutTx enqueues notifications for every eligible professional and
// returns how many were notified. Runs inside the lead's own transaction so
// a rolled-back lead never notifies anyone. Individual enqueue failures are
// logged and skipped: delivery is best-effort and must not fail the
// derivation that triggered it.
func (s *FanoutService) FanOutTx(ctx context.Context, tx pgx.Tx, lead *models.Lead) (int, error) {
	profiles, err := s.Profiles.FindByCategory(ctx, lead.Category)
	if err != nil {
		return 0, fmt.Errorf("find professionals for category %q: %w", lead.Category, err)
	}

	unlockedIDs, err := s.Unlocks.ProfessionalIDs(ctx, lead.ID)
	if err != nil {
		return 0, fmt.Errorf("list unlocks for lead %s: %w", lead.ID, err)
	}
	unlocked := make(map[uuid.UUID]bool, len(unlockedIDs))
	for _, id := range unlockedIDs {
		unlocked[id] = true
	}

	eligible := profiles[:0:0]
	for _, p := range profiles {
		if unlocked[p.AccountID] {
			continue
		}
		if MatchesAnyRegion(p.Regions, lead.Region) {
			eligible = append(eligible, p)
		}
	}

	if s.Cap > 0 && len(eligible) > s.Cap {
		s.Log.Warn("fan-out truncated at cap",
			"lead_id", lead.ID, "eligible", len(eligible), "cap", s.Cap)
		eligible = eligible[:s.Cap]
	}

	notified := 0
	for _, p := range eligible {
		err := s.Enqueue(ctx, tx, notify.LeadNotificationArgs{
			ProfessionalID: p.AccountID,
			LeadID:         lead.ID,
			Category:       lead.Category,
			Region:         lead.Region,
			Cost:           lead.Cost,
			NotifyURL:      p.NotifyURL,
		})
		if err != nil {
			s.Log.Error("enqueue lead notification failed",
				"lead_id", lead.ID, "professional_id", p.AccountID, "error", err)
			continue
		}
		notified++
	}
	return notified, nil
}
