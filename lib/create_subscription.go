package lib

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fiffu/seatwatch/config"
	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/fiffu/seatwatch/lib/urls"
	"go.uber.org/zap"
)

type subscribe struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *store.Store
	fetcher Fetcher
}

// Subscribe starts watching a class page for a user. The page is fetched once to
// fill in the class details and seed the remaining count; if that fetch fails
// the target is still created, starting from zero.
func (svc *subscribe) Subscribe(ctx context.Context, userID uint, classURL string, notifyTelegram, notifyEmail bool) (*models.WatchTarget, error) {
	if err := urls.Validate(classURL); err != nil {
		return nil, err
	}
	if _, err := svc.store.FindUser(ctx, userID); err != nil {
		return nil, err
	}

	count, err := svc.store.CountTargets(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= int64(svc.cfg.MaxWatchItems) {
		return nil, ErrWatchLimitReached
	}

	canonical := urls.Normalize(classURL)
	if exists, err := svc.store.TargetExists(ctx, userID, canonical); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateWatch
	}

	res := svc.fetcher.Fetch(ctx, canonical)
	if !res.OK() {
		svc.log.Sugar().Warnw("Initial fetch failed", "url", canonical, "diagnostic", res.Diagnostic)
	}

	params := urls.ParseParams(canonical)
	target := &models.WatchTarget{
		UserID:           userID,
		ClassURL:         canonical,
		ClassID:          nullString(params.ClassID),
		SemesterID:       nullString(params.SemesterID),
		Timespan:         nullString(params.Timespan),
		ClassName:        nullString(res.ClassName),
		ClassCode:        nullString(res.ClassCode),
		RegistrationCode: nullString(res.RegistrationCode),
		Schedule:         nullString(res.Schedule),
		IsActive:         true,
		NotifyTelegram:   notifyTelegram,
		NotifyEmail:      notifyEmail,
	}

	remaining := 0
	if res.Remaining != nil {
		remaining = *res.Remaining
	}
	err = svc.store.CreateTarget(ctx, target, remaining, time.Now().UTC())
	if errors.Is(err, store.ErrDuplicateTarget) {
		return nil, ErrDuplicateWatch
	} else if err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Created watch target",
		"target_id", target.ID, "user_id", userID, "url", canonical, "remaining", remaining)
	return svc.store.FindTarget(ctx, userID, target.ID)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
