// Package sweeper polls every active watch target, detects seat events and
// hands them to the notifier.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fiffu/seatwatch/config"
	"github.com/fiffu/seatwatch/lib/fetch"
	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/notify"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrSweepInProgress = errors.New("a sweep is already running")

type Fetcher interface {
	Fetch(ctx context.Context, url string) models.ExtractionResult
}

type Dispatcher interface {
	Dispatch(ctx context.Context, target *models.WatchTarget, event models.EventType, remaining int) notify.Outcome
}

type Sweeper struct {
	log        *zap.Logger
	store      *store.Store
	fetcher    Fetcher
	dispatcher Dispatcher

	mu          sync.Mutex
	interval    time.Duration
	timeout     time.Duration
	concurrency int
	scheduler   *gocron.Scheduler
}

func NewSweeper(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, st *store.Store, fetcher *fetch.Fetcher, dispatcher *notify.Dispatcher) *Sweeper {
	s := New(log, st, fetcher, dispatcher, cfg.Sweep.Timeout, cfg.Sweep.Concurrency)
	s.interval = cfg.Sweep.Interval

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop sweeper")
			s.Stop()
			return nil
		},
	})
	return s
}

func New(log *zap.Logger, st *store.Store, fetcher Fetcher, dispatcher Dispatcher, timeout time.Duration, concurrency int) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		log:         log,
		store:       st,
		fetcher:     fetcher,
		dispatcher:  dispatcher,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// Start schedules a sweep every interval, the first one immediately. A zero
// interval disables the schedule; sweeps can still be triggered on demand.
func (s *Sweeper) Start() error {
	if s.interval <= 0 {
		s.log.Sugar().Info("Sweep interval is 0, scheduled sweeps are disabled")
		return nil
	}

	s.scheduler = gocron.NewScheduler(time.UTC)
	s.scheduler.SingletonModeAll()

	_, err := s.scheduler.Every(s.interval).Do(func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.log.Sugar().Errorw("Scheduled sweep failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.log.Sugar().Infow("Starting sweep scheduler", "interval", s.interval.String())
	s.scheduler.StartAsync()
	return nil
}

func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	// Wait for an in-flight sweep to finish.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Sugar().Info("Sweeper stopped")
}

// Sweep checks every active target once. Only a failure to enumerate targets is
// returned as an error; everything that goes wrong with a single target is
// recorded on that target and counted in the summary.
func (s *Sweeper) Sweep(ctx context.Context) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(ctx)
}

// TrySweep is Sweep for on-demand callers that should not queue behind a
// running sweep.
func (s *Sweeper) TrySweep(ctx context.Context) (*Summary, error) {
	if !s.mu.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.mu.Unlock()
	return s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) (*Summary, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startedAt := time.Now().UTC()
	summary := &Summary{RunID: uuid.NewString()}
	log := s.log.Sugar().With("run_id", summary.RunID)

	err := s.store.ActiveTargetsInBatches(ctx, s.concurrency, func(batch models.WatchTargets) error {
		summary.selected(len(batch))
		s.checkBatch(ctx, batch, summary)
		return nil
	})
	summary.Elapsed = time.Since(startedAt)
	switch {
	case err != nil && summary.Selected == 0:
		log.Errorw("Failed to enumerate watch targets", "err", err)
		return summary, fmt.Errorf("failed to enumerate watch targets: %w", err)
	case err != nil:
		// Targets already checked keep their results; the rest wait for the next sweep.
		log.Warnw(fmt.Sprintf("Sweep stopped early after %d targets", summary.Selected),
			append(summary.logArgs(), "err", err)...)
		return summary, fmt.Errorf("sweep stopped early after %d targets: %w", summary.Selected, err)
	}

	log.Infow(fmt.Sprintf("Swept %d targets", summary.Selected), summary.logArgs()...)
	return summary, nil
}
