// Package lib holds the operations the HTTP surface exposes on top of the
// store, fetcher and sweeper.
package lib

import (
	"context"
	"errors"

	"github.com/fiffu/seatwatch/config"
	"github.com/fiffu/seatwatch/lib/fetch"
	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/fiffu/seatwatch/lib/sweeper"
	"github.com/fiffu/seatwatch/lib/urls"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrWatchLimitReached = errors.New("watch limit reached")
	ErrDuplicateWatch    = errors.New("class is already watched")
	ErrRefreshFailed     = errors.New("failed to read class page")

	ErrTargetNotFound  = store.ErrTargetNotFound
	ErrUserNotFound    = store.ErrUserNotFound
	ErrUserExists      = store.ErrUserExists
	ErrInvalidClassURL = urls.ErrInvalidClassURL
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) models.ExtractionResult
}

type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *store.Store
	fetcher Fetcher
	sweeper *sweeper.Sweeper

	*onboardUser
	*subscribe
	*refresh
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, st *store.Store, fetcher *fetch.Fetcher, sw *sweeper.Sweeper) *Service {
	return New(cfg, log, st, fetcher, sw)
}

func New(cfg *config.Config, log *zap.Logger, st *store.Store, fetcher Fetcher, sw *sweeper.Sweeper) *Service {
	return &Service{
		cfg, log, st, fetcher, sw,
		&onboardUser{log, st},
		&subscribe{cfg, log, st, fetcher},
		&refresh{log, st, fetcher},
	}
}

func (svc *Service) ListTargets(ctx context.Context, userID uint) (models.WatchTargets, error) {
	return svc.store.ListTargets(ctx, userID)
}

func (svc *Service) GetTarget(ctx context.Context, userID, targetID uint) (*models.WatchTarget, error) {
	return svc.store.FindTarget(ctx, userID, targetID)
}

// UpdateTarget toggles polling and channels. Descriptive fields in the patch
// are ignored; they only come from the class page.
func (svc *Service) UpdateTarget(ctx context.Context, userID, targetID uint, patch models.TargetPatch) (*models.WatchTarget, error) {
	if _, err := svc.store.FindTarget(ctx, userID, targetID); err != nil {
		return nil, err
	}
	settings := models.TargetPatch{
		IsActive:       patch.IsActive,
		NotifyTelegram: patch.NotifyTelegram,
		NotifyEmail:    patch.NotifyEmail,
	}
	if err := svc.store.PatchTarget(ctx, targetID, settings); err != nil {
		return nil, err
	}
	svc.log.Sugar().Infow("Updated watch target", "target_id", targetID, "user_id", userID)
	return svc.store.FindTarget(ctx, userID, targetID)
}

func (svc *Service) DeleteTarget(ctx context.Context, userID, targetID uint) error {
	if err := svc.store.DeleteTarget(ctx, userID, targetID); err != nil {
		return err
	}
	svc.log.Sugar().Infow("Deleted watch target", "target_id", targetID, "user_id", userID)
	return nil
}

func (svc *Service) ListNotifications(ctx context.Context, userID, targetID uint, limit int) (models.NotificationRecords, error) {
	if _, err := svc.store.FindTarget(ctx, userID, targetID); err != nil {
		return nil, err
	}
	return svc.store.ListNotifications(ctx, targetID, limit)
}

// InspectURL runs the fetcher against a class page, for debugging extraction.
// Only class links on the upstream host are fetched.
func (svc *Service) InspectURL(ctx context.Context, url string) (models.ExtractionResult, error) {
	if err := urls.Validate(url); err != nil {
		return models.ExtractionResult{}, err
	}
	return svc.fetcher.Fetch(ctx, urls.Normalize(url)), nil
}

func (svc *Service) TriggerSweep(ctx context.Context) (*sweeper.Summary, error) {
	return svc.sweeper.TrySweep(ctx)
}
