package scraper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/itsatony/flightwatch/internal/activity"
	"github.com/itsatony/flightwatch/internal/browser"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	mu       sync.Mutex
	status   models.Status
	readings []*models.Reading
}

func (f *fakeDetector) Process(ctx context.Context, r *models.Reading, th activity.Thresholds) models.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, r)
	return f.status
}

func (f *fakeDetector) State(hex string) *models.VehicleState {
	return &models.VehicleState{Status: f.status}
}

func (f *fakeDetector) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.readings)
}

type memoryLog struct {
	mu       sync.Mutex
	latest   *models.Reading
	appended []*models.Reading
}

func (m *memoryLog) SaveLatest(r *models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = r
	return nil
}

func (m *memoryLog) Append(r *models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, r)
	return nil
}

func (m *memoryLog) snapshot() (*models.Reading, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, len(m.appended)
}

type counters struct {
	mu                             sync.Mutex
	ok, failed, timeouts, rebuilds int
	restarts                       int
}

func (c *counters) CycleCompleted(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}
func (c *counters) CycleTimedOut()    { c.mu.Lock(); c.timeouts++; c.mu.Unlock() }
func (c *counters) PageRebuilt()      { c.mu.Lock(); c.rebuilds++; c.mu.Unlock() }
func (c *counters) SessionRestarted() { c.mu.Lock(); c.restarts++; c.mu.Unlock() }

func testSettings() Settings {
	return Settings{
		TargetURLTemplate:   "https://tracker.test/?icao=%s",
		ScrapeInterval:      10 * time.Millisecond,
		ReadTimeout:         200 * time.Millisecond,
		NavigateTimeout:     200 * time.Millisecond,
		TimeoutThreshold:    3,
		SessionCloseTimeout: 50 * time.Millisecond,
		RestartRetryDelay:   50 * time.Millisecond,
		PageTimeout:         time.Second,
		Thresholds:          activity.Thresholds{Altitude: 100, OfflineTimeout: time.Minute},
	}
}

func selected(hex string) browser.ReadFunc {
	return func(ctx context.Context) (*models.RawReading, error) {
		return &models.RawReading{
			Time:     time.Now().UTC(),
			Hex:      hex,
			Speed:    "120 kt",
			Altitude: "3000 ft",
			Position: "47.3769, 8.5417",
			LastSeen: "1s",
		}, nil
	}
}

func newTestDriver(t *testing.T, launcher *browser.FakeLauncher, status models.Status) (*Driver, *fakeDetector, *memoryLog, *counters) {
	t.Helper()
	det := &fakeDetector{status: status}
	store := &memoryLog{}
	rec := &counters{}
	d := NewDriver(Options{
		Launcher: launcher,
		Detector: det,
		Latest:   store,
		Log:      store,
		Settings: testSettings,
		Recorder: rec,
		Target:   "3e0fe9",
	})
	return d, det, store, rec
}

func TestQueueRunsTasksInOrder(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	release := make(chan struct{})
	var mu sync.Mutex
	var order []string
	task := func(name string) TaskFunc {
		return func(ctx context.Context) error {
			if name == "first" {
				<-release
			}
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	first := q.Enqueue(ctx, "first", task("first"))
	second := q.Enqueue(ctx, "second", task("second"))
	third := q.Enqueue(ctx, "third", task("third"))

	require.Eventually(t, func() bool { return q.Active() == "first" }, time.Second, time.Millisecond)
	assert.Equal(t, 2, q.Pending())

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	require.NoError(t, <-third)
	assert.Equal(t, []string{"first", "second", "third"}, order)
	require.Eventually(t, func() bool { return q.Active() == "" }, time.Second, time.Millisecond)
}

func TestQueueSkipsCancelledTasks(t *testing.T) {
	q := NewQueue()
	release := make(chan struct{})
	blocker := q.Enqueue(context.Background(), "blocker", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	skipped := q.Enqueue(ctx, "skipped", func(ctx context.Context) error {
		ran = true
		return nil
	})
	cancel()
	close(release)

	require.NoError(t, <-blocker)
	assert.ErrorIs(t, <-skipped, context.Canceled)
	assert.False(t, ran)
}

func TestQueueRecoversPanics(t *testing.T) {
	q := NewQueue()
	err := q.Do(context.Background(), "boom", func(ctx context.Context) error {
		panic("boom")
	})
	assert.Error(t, err)
	assert.NoError(t, q.Do(context.Background(), "after", func(ctx context.Context) error { return nil }))
}

func TestRunWithTimeout(t *testing.T) {
	ctx := context.Background()

	v, err := RunWithTimeout(ctx, 100*time.Millisecond, "quick", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	hang := make(chan struct{})
	defer close(hang)
	_, err = RunWithTimeout(ctx, 20*time.Millisecond, "stuck", func(ctx context.Context) (int, error) {
		<-hang
		return 0, nil
	})
	assert.ErrorIs(t, err, errors.ErrTimeout)

	_, err = RunWithTimeout(ctx, 20*time.Millisecond, "cooperative", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, errors.ErrTimeout)

	parent, cancel := context.WithCancel(ctx)
	cancel()
	_, err = RunWithTimeout(parent, time.Second, "cancelled", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errors.ErrTimeout)
}

func TestRunWithTimeoutReleasesLateValues(t *testing.T) {
	release := make(chan struct{})
	cleaned := make(chan int, 1)
	_, err := runWithTimeout(context.Background(), 10*time.Millisecond, "late", func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	}, func(v int) { cleaned <- v })
	require.ErrorIs(t, err, errors.ErrTimeout)

	close(release)
	select {
	case v := <-cleaned:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("late value was not released")
	}
}

func TestCycleLogsOnlineReadings(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3E0FE9"))
	d, det, store, _ := newTestDriver(t, launcher, models.StatusOnline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	require.NoError(t, d.queue.Do(ctx, "scrape", d.cycle))

	latest, logged := store.snapshot()
	require.NotNil(t, latest)
	assert.Equal(t, "3e0fe9", latest.Hex)
	require.NotNil(t, latest.Altitude)
	assert.Equal(t, 3000.0, *latest.Altitude)
	assert.Equal(t, 1, logged)
	assert.Equal(t, 1, det.count())

	pages := launcher.Sessions()[0].Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, []string{"https://tracker.test/?icao=3e0fe9"}, pages[0].Navigations())
	assert.Equal(t, time.Second, pages[0].Timeout())
}

func TestCycleSkipsLogWhenOffline(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, store, _ := newTestDriver(t, launcher, models.StatusOffline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	require.NoError(t, d.queue.Do(ctx, "scrape", d.cycle))

	latest, logged := store.snapshot()
	assert.NotNil(t, latest)
	assert.Equal(t, 0, logged)
}

func TestCycleWithoutSelectionSucceedsWithoutRecord(t *testing.T) {
	launcher := browser.NewFakeLauncher(nil)
	d, det, store, _ := newTestDriver(t, launcher, models.StatusOnline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	require.NoError(t, d.queue.Do(ctx, "scrape", d.cycle))

	latest, logged := store.snapshot()
	assert.Nil(t, latest)
	assert.Equal(t, 0, logged)
	assert.Equal(t, 0, det.count())
}

func TestTimeoutCounterClimbsTheLadder(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, rec := newTestDriver(t, launcher, models.StatusOnline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	timeout := fmt.Errorf("%w: read reading", errors.ErrTimeout)

	d.handleCycleResult(ctx, timeout)
	assert.Equal(t, 1, d.Status().ConsecutiveTimeouts)
	require.Len(t, launcher.Sessions(), 1)
	assert.Len(t, launcher.Sessions()[0].Pages(), 2)
	assert.True(t, launcher.Sessions()[0].Pages()[0].Closed())

	d.handleCycleResult(ctx, timeout)
	assert.Equal(t, 2, d.Status().ConsecutiveTimeouts)
	assert.Len(t, launcher.Sessions(), 1)

	d.handleCycleResult(ctx, timeout)
	assert.Equal(t, 0, d.Status().ConsecutiveTimeouts)
	require.Len(t, launcher.Sessions(), 2)
	assert.True(t, launcher.Sessions()[0].Closed())

	rec.mu.Lock()
	assert.Equal(t, 3, rec.timeouts)
	assert.Equal(t, 2, rec.rebuilds)
	assert.Equal(t, 2, rec.restarts)
	rec.mu.Unlock()
}

func TestTimeoutCounterResetsWhenRestartFails(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, rec := newTestDriver(t, launcher, models.StatusOnline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	timeout := fmt.Errorf("%w: read reading", errors.ErrTimeout)
	d.handleCycleResult(ctx, timeout)
	d.handleCycleResult(ctx, timeout)
	assert.Equal(t, 2, d.Status().ConsecutiveTimeouts)

	launcher.Configure(func(l *browser.FakeLauncher) { l.LaunchErr = fmt.Errorf("no chromium") })
	before := time.Now().UTC()
	assert.False(t, d.handleCycleResult(ctx, timeout))
	assert.Equal(t, 0, d.Status().ConsecutiveTimeouts)

	d.mu.Lock()
	next := d.nextRestartAt
	d.mu.Unlock()
	assert.False(t, next.Before(before.Add(testSettings().RestartRetryDelay)))
	assert.False(t, d.restartDue(before))

	rec.mu.Lock()
	assert.Equal(t, 3, rec.timeouts)
	assert.Equal(t, 1, rec.restarts)
	rec.mu.Unlock()
}

func TestSuccessResetsTimeoutCounter(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, _ := newTestDriver(t, launcher, models.StatusOnline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	d.handleCycleResult(ctx, fmt.Errorf("%w: eval", errors.ErrProtocol))
	d.handleCycleResult(ctx, fmt.Errorf("%w: read", errors.ErrTimeout))
	assert.Equal(t, 2, d.Status().ConsecutiveTimeouts)

	d.handleCycleResult(ctx, nil)
	assert.Equal(t, 0, d.Status().ConsecutiveTimeouts)
	assert.Empty(t, d.Status().LastError)
	assert.Len(t, launcher.Sessions(), 1)
}

func TestOtherErrorsAreOnlyLogged(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, _ := newTestDriver(t, launcher, models.StatusOnline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	d.handleCycleResult(ctx, fmt.Errorf("unexpected"))
	st := d.Status()
	assert.Equal(t, 0, st.ConsecutiveTimeouts)
	assert.Equal(t, "unexpected", st.LastError)
	assert.Len(t, launcher.Sessions(), 1)
	assert.Len(t, launcher.Sessions()[0].Pages(), 1)
}

func TestFailedRebuildEscalatesToRestart(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, _ := newTestDriver(t, launcher, models.StatusOnline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	launcher.Configure(func(l *browser.FakeLauncher) { l.NewPageErr = fmt.Errorf("target crashed") })
	err := d.RebuildPage(ctx)
	assert.Error(t, err)
	assert.Len(t, launcher.Sessions(), 2)
	assert.True(t, launcher.Sessions()[0].Closed())
	assert.False(t, d.Status().HasPage)
}

func TestHangingCloseIsKilled(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, _ := newTestDriver(t, launcher, models.StatusOnline)
	ctx := context.Background()
	require.NoError(t, d.RestartSession(ctx))

	launcher.Configure(func(l *browser.FakeLauncher) { l.CloseHang = true })
	require.NoError(t, d.RestartSession(ctx))

	sessions := launcher.Sessions()
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].Killed())
	assert.False(t, sessions[0].Closed())
}

func TestRecoveryIsExclusive(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, _ := newTestDriver(t, launcher, models.StatusOnline)

	d.recovering.Store(true)
	assert.ErrorIs(t, d.RestartSession(context.Background()), ErrRecoveryInProgress)
	assert.ErrorIs(t, d.RebuildPage(context.Background()), ErrRecoveryInProgress)
	assert.Empty(t, launcher.Sessions())
}

func TestDriverRunsAndStops(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, det, store, _ := newTestDriver(t, launcher, models.StatusOnline)

	require.NoError(t, d.Start(context.Background()))
	assert.ErrorIs(t, d.Start(context.Background()), ErrAlreadyRunning)

	require.Eventually(t, func() bool { return det.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	_, logged := store.snapshot()
	assert.GreaterOrEqual(t, logged, 3)

	st := d.Status()
	assert.True(t, st.Running)
	assert.Equal(t, "fake-1", st.SessionID)
	assert.Equal(t, "3e0fe9", st.Target)
	assert.False(t, st.LastSuccessAt.IsZero())

	d.Stop()
	assert.False(t, d.Status().Running)
	assert.True(t, launcher.Sessions()[0].Closed())

	stopped := det.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, det.count())
}

func TestDisconnectTriggersRestart(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, _ := newTestDriver(t, launcher, models.StatusOnline)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.Eventually(t, func() bool { return len(launcher.Sessions()) == 1 && d.Status().HasPage }, time.Second, 5*time.Millisecond)
	launcher.Sessions()[0].Drop()

	require.Eventually(t, func() bool {
		return len(launcher.Sessions()) == 2 && d.Status().SessionID == "fake-2"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLaunchFailureIsRetried(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	launcher.Configure(func(l *browser.FakeLauncher) { l.LaunchErr = fmt.Errorf("no chromium") })
	d, det, _, _ := newTestDriver(t, launcher, models.StatusOnline)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, launcher.Sessions())
	assert.False(t, d.Status().HasPage)

	launcher.Configure(func(l *browser.FakeLauncher) { l.LaunchErr = nil })
	require.Eventually(t, func() bool { return det.count() > 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, launcher.Sessions(), 1)
}

func TestSetTargetNavigates(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, _ := newTestDriver(t, launcher, models.StatusOnline)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	require.Eventually(t, func() bool { return d.Status().HasPage }, time.Second, 5*time.Millisecond)

	assert.Error(t, d.SetTarget(context.Background(), "nothex"))
	require.NoError(t, d.SetTarget(context.Background(), "ABC123"))
	assert.Equal(t, "abc123", d.Target())

	page := launcher.Sessions()[0].Pages()[0]
	require.Eventually(t, func() bool {
		navs := page.Navigations()
		return len(navs) > 0 && navs[len(navs)-1] == "https://tracker.test/?icao=abc123"
	}, time.Second, 5*time.Millisecond)
}

func TestSetTargetDoesNotWaitForBusyQueue(t *testing.T) {
	launcher := browser.NewFakeLauncher(selected("3e0fe9"))
	d, _, _, _ := newTestDriver(t, launcher, models.StatusOnline)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	require.Eventually(t, func() bool { return d.Status().HasPage }, time.Second, 5*time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	d.queue.Enqueue(context.Background(), "restart-session", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	begin := time.Now()
	require.NoError(t, d.SetTarget(context.Background(), "abc123"))
	assert.Less(t, time.Since(begin), 100*time.Millisecond)
	assert.Equal(t, "abc123", d.Target())

	page := launcher.Sessions()[0].Pages()[0]
	for _, nav := range page.Navigations() {
		assert.NotContains(t, nav, "abc123")
	}

	close(release)
	require.Eventually(t, func() bool {
		navs := page.Navigations()
		return len(navs) > 0 && navs[len(navs)-1] == "https://tracker.test/?icao=abc123"
	}, time.Second, 5*time.Millisecond)
}
