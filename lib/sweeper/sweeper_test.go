package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/notify"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/fiffu/seatwatch/lib/store/storetest"
	"github.com/fiffu/seatwatch/senders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	urlA = "https://courses.duytan.edu.vn/Sites/Home_ChuongTrinhDaoTao.aspx?p=home_listclassdetail&classid=1"
	urlB = "https://courses.duytan.edu.vn/Sites/Home_ChuongTrinhDaoTao.aspx?p=home_listclassdetail&classid=2"
	urlC = "https://courses.duytan.edu.vn/Sites/Home_ChuongTrinhDaoTao.aspx?p=home_listclassdetail&classid=3"
)

// fakeFetcher returns canned results per URL and panics for URLs listed in panics.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]models.ExtractionResult
	panics  map[string]bool
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: map[string]models.ExtractionResult{},
		panics:  map[string]bool{},
		calls:   map[string]int{},
	}
}

func (f *fakeFetcher) seats(url string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[url] = models.ExtractionResult{Remaining: &n}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) models.ExtractionResult {
	f.mu.Lock()
	f.calls[url]++
	res, ok := f.results[url]
	panics := f.panics[url]
	f.mu.Unlock()

	if panics {
		panic("boom")
	}
	if !ok {
		return models.FailedExtraction("HTTP error: 404")
	}
	return res
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events map[uint]models.EventType
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, target *models.WatchTarget, event models.EventType, remaining int) notify.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[target.ID] = event
	return notify.Outcome{Sent: 1}
}

type okSender struct{}

func (okSender) Available() bool { return true }
func (okSender) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	return "ok", nil
}

type fixture struct {
	st      *store.Store
	user    *models.User
	fetcher *fakeFetcher
}

func newFixture(t *testing.T) *fixture {
	st := store.New(storetest.Open(t))
	user, err := st.CreateUser(context.Background(), "sv@dtu.edu.vn")
	require.NoError(t, err)
	return &fixture{st, user, newFakeFetcher()}
}

func (f *fixture) state(t *testing.T, target *models.WatchTarget) *models.WatchState {
	state, err := f.st.FindState(context.Background(), target.ID)
	require.NoError(t, err)
	return state
}

func TestSweepIsolatesPanickingTarget(t *testing.T) {
	f := newFixture(t)
	a := storetest.SeedTarget(t, f.st, f.user, urlA, 0)
	b := storetest.SeedTarget(t, f.st, f.user, urlB, 0)
	c := storetest.SeedTarget(t, f.st, f.user, urlC, 0)

	f.fetcher.seats(urlA, 2)
	f.fetcher.panics[urlB] = true
	f.fetcher.seats(urlC, 1)

	dispatcher := &recordingDispatcher{events: map[uint]models.EventType{}}
	s := New(zap.NewNop(), f.st, f.fetcher, dispatcher, 0, 2)

	summary, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Selected)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 2, summary.Events)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 2, summary.NotificationsSent)
	assert.NotEmpty(t, summary.RunID)

	assert.Equal(t, models.EventOpen, dispatcher.events[a.ID])
	assert.Equal(t, models.EventOpen, dispatcher.events[c.ID])
	assert.NotContains(t, dispatcher.events, b.ID)

	stateB := f.state(t, b)
	assert.Equal(t, 1, stateB.ConsecutiveErrors)
	assert.Contains(t, stateB.LastError.String, "boom")
	assert.Equal(t, 0, stateB.LastRemaining)

	stateA := f.state(t, a)
	assert.Equal(t, 2, stateA.LastRemaining)
	assert.Equal(t, "OPEN", stateA.LastEventType.String)
	assert.False(t, stateA.LastError.Valid)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	target := storetest.SeedTarget(t, f.st, f.user, urlA, 1)
	f.fetcher.seats(urlA, 4)

	dispatcher := &recordingDispatcher{events: map[uint]models.EventType{}}
	s := New(zap.NewNop(), f.st, f.fetcher, dispatcher, 0, 1)

	first, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Events)
	assert.Equal(t, models.EventIncrease, dispatcher.events[target.ID])

	second, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Events)
	assert.Equal(t, 1, second.Unchanged)

	state := f.state(t, target)
	assert.Equal(t, 4, state.LastRemaining)
	assert.Equal(t, "INCREASE", state.LastEventType.String)
}

func TestSweepFailureKeepsLastRemaining(t *testing.T) {
	f := newFixture(t)
	target := storetest.SeedTarget(t, f.st, f.user, urlA, 3)

	dispatcher := &recordingDispatcher{events: map[uint]models.EventType{}}
	s := New(zap.NewNop(), f.st, f.fetcher, dispatcher, 0, 1)

	for i := 0; i < 2; i++ {
		summary, err := s.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Errored)
	}

	state := f.state(t, target)
	assert.Equal(t, 3, state.LastRemaining)
	assert.Equal(t, 2, state.ConsecutiveErrors)
	assert.Equal(t, "HTTP error: 404", state.LastError.String)

	// Recovery clears the error streak without an event for a decrease.
	f.fetcher.seats(urlA, 2)
	summary, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)

	state = f.state(t, target)
	assert.Equal(t, 2, state.LastRemaining)
	assert.Zero(t, state.ConsecutiveErrors)
	assert.False(t, state.LastError.Valid)
	assert.Empty(t, dispatcher.events)
}

func TestSweepHealsStoredURL(t *testing.T) {
	f := newFixture(t)
	raw := "https://courses.duytan.edu.vn/Sites/Home_ChuongTrinhDaoTao.aspx?classid=9"
	target := storetest.SeedTarget(t, f.st, f.user, raw, 0)
	f.fetcher.seats(raw+"&p=home_listclassdetail", 0)

	s := New(zap.NewNop(), f.st, f.fetcher, &recordingDispatcher{events: map[uint]models.EventType{}}, 0, 1)
	summary, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)

	found, err := f.st.FindTarget(context.Background(), f.user.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, raw+"&p=home_listclassdetail", found.ClassURL)
}

func TestSweepFetchesCanonicalURLWhenSaveCollides(t *testing.T) {
	f := newFixture(t)
	raw := "https://courses.duytan.edu.vn/Sites/Home_ChuongTrinhDaoTao.aspx?classid=9"
	canonical := raw + "&p=home_listclassdetail"
	legacy := storetest.SeedTarget(t, f.st, f.user, raw, 0)
	storetest.SeedTarget(t, f.st, f.user, canonical, 0)
	f.fetcher.seats(canonical, 3)

	s := New(zap.NewNop(), f.st, f.fetcher, &recordingDispatcher{events: map[uint]models.EventType{}}, 0, 1)
	for i := 0; i < 3; i++ {
		summary, err := s.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Checked)
		assert.Zero(t, summary.Errored)
	}

	state := f.state(t, legacy)
	assert.Equal(t, 3, state.LastRemaining)
	assert.Zero(t, state.ConsecutiveErrors)
	assert.False(t, state.LastError.Valid)
	assert.Equal(t, 6, f.fetcher.calls[canonical])
	assert.Zero(t, f.fetcher.calls[raw])

	found, err := f.st.FindTarget(context.Background(), f.user.ID, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, raw, found.ClassURL)
}

type panickingDispatcher struct{}

func (panickingDispatcher) Dispatch(ctx context.Context, target *models.WatchTarget, event models.EventType, remaining int) notify.Outcome {
	panic("notifier down")
}

func TestSweepDispatchPanicKeepsCheckedState(t *testing.T) {
	f := newFixture(t)
	target := storetest.SeedTarget(t, f.st, f.user, urlA, 0)
	f.fetcher.seats(urlA, 2)

	s := New(zap.NewNop(), f.st, f.fetcher, panickingDispatcher{}, 0, 1)
	summary, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Events)
	assert.Zero(t, summary.Errored)
	assert.Equal(t, 1, summary.NotificationsFail)

	state := f.state(t, target)
	assert.Equal(t, 2, state.LastRemaining)
	assert.Equal(t, "OPEN", state.LastEventType.String)
	assert.Zero(t, state.ConsecutiveErrors)
	assert.False(t, state.LastError.Valid)
}

// slowFetcher holds every fetch until the sweep deadline passes.
type slowFetcher struct{}

func (slowFetcher) Fetch(ctx context.Context, url string) models.ExtractionResult {
	<-ctx.Done()
	return models.FailedExtraction(ctx.Err().Error())
}

func TestSweepDeadlineAfterFirstBatch(t *testing.T) {
	f := newFixture(t)
	storetest.SeedTarget(t, f.st, f.user, urlA, 0)
	storetest.SeedTarget(t, f.st, f.user, urlB, 0)

	s := New(zap.NewNop(), f.st, slowFetcher{}, &recordingDispatcher{events: map[uint]models.EventType{}}, 50*time.Millisecond, 1)
	summary, err := s.Sweep(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "enumerate")
	assert.Contains(t, err.Error(), "stopped early after 1 targets")
	assert.Equal(t, 1, summary.Selected)
}

func TestSweepSkipsInactive(t *testing.T) {
	f := newFixture(t)
	target := storetest.SeedTarget(t, f.st, f.user, urlA, 0)
	off := false
	require.NoError(t, f.st.PatchTarget(context.Background(), target.ID, models.TargetPatch{IsActive: &off}))

	s := New(zap.NewNop(), f.st, f.fetcher, &recordingDispatcher{events: map[uint]models.EventType{}}, 0, 1)
	summary, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Selected)
	assert.Empty(t, f.fetcher.calls)
}

func TestSweepEndToEndOpenRecordsBothChannels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.st.LinkTelegram(ctx, f.user.ID, "123456"))
	target := storetest.SeedTarget(t, f.st, f.user, urlA, 0)
	f.fetcher.seats(urlA, 3)

	dispatcher := notify.New(zap.NewNop(), f.st, senders.Registry{
		models.ChannelTelegram: okSender{},
		models.ChannelEmail:    okSender{},
	})
	s := New(zap.NewNop(), f.st, f.fetcher, dispatcher, 0, 1)

	summary, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Events)
	assert.Equal(t, 2, summary.NotificationsSent)

	records, err := f.st.ListNotifications(ctx, target.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	channels := []models.Channel{records[0].Channel, records[1].Channel}
	assert.ElementsMatch(t, []models.Channel{models.ChannelTelegram, models.ChannelEmail}, channels)
	for _, r := range records {
		assert.Equal(t, models.EventOpen, r.EventType)
		assert.Equal(t, 3, r.Remaining)
		assert.Equal(t, models.DeliverySuccess, r.Status)
	}
}

func TestTrySweepRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	s := New(zap.NewNop(), f.st, f.fetcher, &recordingDispatcher{events: map[uint]models.EventType{}}, 0, 1)

	s.mu.Lock()
	_, err := s.TrySweep(context.Background())
	s.mu.Unlock()
	assert.ErrorIs(t, err, ErrSweepInProgress)

	_, err = s.TrySweep(context.Background())
	assert.NoError(t, err)
}
