package sweeper

import (
	"sync"
	"time"
)

// Summary counts what happened to each target during one sweep.
type Summary struct {
	mu sync.Mutex

	RunID             string
	Selected          int
	Checked           int
	Unchanged         int
	Events            int
	Errored           int
	NotificationsSent int
	NotificationsFail int
	Elapsed           time.Duration
}

type targetMetrics struct {
	checked   int
	unchanged int
	events    int
	errored   int
	sent      int
	failed    int
}

func (s *Summary) add(m targetMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Checked += m.checked
	s.Unchanged += m.unchanged
	s.Events += m.events
	s.Errored += m.errored
	s.NotificationsSent += m.sent
	s.NotificationsFail += m.failed
}

func (s *Summary) selected(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Selected += n
}

// logArgs lists only the non-zero counters, so quiet sweeps log quietly.
func (s *Summary) logArgs() []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := []any{"elapsed_msecs", int(s.Elapsed.Milliseconds())}
	for _, kv := range []struct {
		key string
		val int
	}{
		{"checked", s.Checked},
		{"unchanged", s.Unchanged},
		{"events", s.Events},
		{"errored", s.Errored},
		{"notifications_sent", s.NotificationsSent},
		{"notifications_failed", s.NotificationsFail},
	} {
		if kv.val != 0 {
			args = append(args, kv.key, kv.val)
		}
	}
	return args
}
