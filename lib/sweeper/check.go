package sweeper

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/notify"
	"github.com/fiffu/seatwatch/lib/urls"
	"golang.org/x/sync/errgroup"
)

func (s *Sweeper) checkBatch(ctx context.Context, batch models.WatchTargets, summary *Summary) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range batch {
		target := &batch[i]
		g.Go(func() error {
			summary.add(s.checkTargetSafely(ctx, target))
			return nil
		})
	}
	g.Wait()
}

// checkTargetSafely turns any error or panic from one target into that
// target's error state.
func (s *Sweeper) checkTargetSafely(ctx context.Context, target *models.WatchTarget) (m targetMetrics) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Sugar().Errorw("Panic while checking target",
				"target_id", target.ID, "panic", r, "stack", string(debug.Stack()))
			m = s.recordFailure(ctx, target, fmt.Sprintf("panic: %v", r))
		}
	}()

	m, err := s.checkTarget(ctx, target)
	if err != nil {
		s.log.Sugar().Errorw("Error checking target", "target_id", target.ID, "err", err)
		return s.recordFailure(ctx, target, err.Error())
	}
	return m
}

func (s *Sweeper) checkTarget(ctx context.Context, target *models.WatchTarget) (targetMetrics, error) {
	// The canonical URL is fetched even when saving it fails, e.g. when the
	// same user already watches the canonical form.
	if normalized := urls.Normalize(target.ClassURL); normalized != target.ClassURL {
		if err := s.store.UpdateTargetURL(ctx, target.ID, normalized); err != nil {
			s.log.Sugar().Warnw("Failed to update class url",
				"target_id", target.ID, "url", normalized, "err", err)
		}
		target.ClassURL = normalized
	}

	res := s.fetcher.Fetch(ctx, target.ClassURL)
	if !res.OK() {
		diagnostic := res.Diagnostic
		if diagnostic == "" {
			diagnostic = "remaining seats not extracted"
		}
		s.log.Sugar().Warnw("Fetch failed", "target_id", target.ID, "diagnostic", diagnostic)
		return s.recordFailure(ctx, target, diagnostic), nil
	}

	now := time.Now().UTC()
	remaining := *res.Remaining
	event := DetectEvent(target.State.LastRemaining, remaining)

	patch := models.StatePatch{
		Remaining:   &remaining,
		CheckedAt:   &now,
		ClearError:  true,
		ResetErrors: true,
	}
	if event != models.EventNone {
		patch.Event, patch.EventAt = event, &now
	}
	if err := s.store.PatchState(ctx, target.ID, patch); err != nil {
		return targetMetrics{}, fmt.Errorf("failed to save state: %w", err)
	}

	m := targetMetrics{checked: 1}
	if event == models.EventNone {
		m.unchanged = 1
		return m, nil
	}

	s.log.Sugar().Infow("Seat event detected",
		"target_id", target.ID, "event", event,
		"prev", target.State.LastRemaining, "curr", remaining)
	m.events = 1

	outcome := s.dispatchSafely(ctx, target, event, remaining)
	m.sent, m.failed = outcome.Sent, outcome.Failed
	return m, nil
}

// dispatchSafely keeps a notifier panic from being recorded as a failed check;
// the state for this target is already saved by the time we get here.
func (s *Sweeper) dispatchSafely(ctx context.Context, target *models.WatchTarget, event models.EventType, remaining int) (outcome notify.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Sugar().Errorw("Panic while dispatching notifications",
				"target_id", target.ID, "event", event, "panic", r, "stack", string(debug.Stack()))
			outcome = notify.Outcome{Failed: 1}
		}
	}()
	return s.dispatcher.Dispatch(ctx, target, event, remaining)
}

func (s *Sweeper) recordFailure(ctx context.Context, target *models.WatchTarget, diagnostic string) targetMetrics {
	if err := s.store.RecordError(ctx, target.ID, diagnostic, time.Now().UTC()); err != nil {
		s.log.Sugar().Errorw("Failed to record target error", "target_id", target.ID, "err", err)
	}
	return targetMetrics{errored: 1}
}
