package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/fiffu/seatwatch/lib/urls"
	"go.uber.org/zap"
)

type refresh struct {
	log     *zap.Logger
	store   *store.Store
	fetcher Fetcher
}

// RefreshTarget re-reads one class page on demand. It fills in any class
// details it finds and overwrites the remaining count, but never raises an
// event; that is left to the sweep.
func (svc *refresh) RefreshTarget(ctx context.Context, userID, targetID uint) (*models.WatchTarget, error) {
	target, err := svc.store.FindTarget(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}

	if normalized := urls.Normalize(target.ClassURL); normalized != target.ClassURL {
		if err := svc.store.UpdateTargetURL(ctx, target.ID, normalized); err != nil {
			svc.log.Sugar().Warnw("Failed to update class url",
				"target_id", target.ID, "url", normalized, "err", err)
		}
		target.ClassURL = normalized
	}

	res := svc.fetcher.Fetch(ctx, target.ClassURL)
	if !res.OK() {
		return nil, fmt.Errorf("%w: %s", ErrRefreshFailed, res.Diagnostic)
	}

	if err := svc.store.PatchTarget(ctx, target.ID, models.DescriptivePatch(res)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = svc.store.PatchState(ctx, target.ID, models.StatePatch{
		Remaining:  res.Remaining,
		CheckedAt:  &now,
		ClearError: true,
	})
	if err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Refreshed watch target", "target_id", target.ID, "remaining", *res.Remaining)
	return svc.store.FindTarget(ctx, userID, targetID)
}
