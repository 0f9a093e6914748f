package services

import (
	"context"
	"fmt"
	"time"

	"github.com/intentionbank/backend/internal/config"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
)

const PremiumTierName = "Signature"

// TierService gates premium features and free-tier quotas.
type TierService struct {
	store store.Store
	cfg   config.TierConfig
	now   func() time.Time
}

func NewTierService(s store.Store, cfg config.TierConfig) *TierService {
	return &TierService{store: s, cfg: cfg, now: time.Now}
}

// RequirePremium fails with ErrPaymentRequired unless the actor is premium or
// an admin.
func (t *TierService) RequirePremium(actor *models.User, feature string) error {
	if actor.HasPremium() {
		return nil
	}
	return fmt.Errorf("%s are available on the %s tier: %w", feature, PremiumTierName, ErrPaymentRequired)
}

// CheckScheduledQuota limits how many scheduled entries a free user may create
// within the rolling window.
func (t *TierService) CheckScheduledQuota(ctx context.Context, actor *models.User) error {
	if actor.HasPremium() || t.cfg.FreeScheduledLimit <= 0 {
		return nil
	}
	since := t.now().Add(-t.cfg.FreeWindow)
	n, err := t.store.Scheduled().CountCreatedSince(ctx, actor.ID, since)
	if err != nil {
		return fmt.Errorf("failed to count scheduled entries: %w", err)
	}
	if n >= int64(t.cfg.FreeScheduledLimit) {
		return fmt.Errorf("free tier allows %d scheduled entries every %d days, upgrade to %s: %w",
			t.cfg.FreeScheduledLimit, int(t.cfg.FreeWindow.Hours()/24), PremiumTierName, ErrPaymentRequired)
	}
	return nil
}
