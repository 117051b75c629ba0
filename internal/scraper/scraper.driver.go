// Package scraper drives the browsing session: a periodic read cycle, a
// single-flight task queue in front of the page and the recovery ladder that
// rebuilds pages and restarts sessions.
package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itsatony/flightwatch/internal/activity"
	"github.com/itsatony/flightwatch/internal/browser"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/normalize"
	nuts "github.com/vaudience/go-nuts"
)

var (
	ErrAlreadyRunning     = stderrors.New("driver already running")
	ErrRecoveryInProgress = stderrors.New("recovery already in progress")
	errNoPage             = stderrors.New("no page available")
)

// Settings are the operational values read before every cycle
type Settings struct {
	TargetURLTemplate   string
	ScrapeInterval      time.Duration
	ReadTimeout         time.Duration
	NavigateTimeout     time.Duration
	TimeoutThreshold    int
	SessionCloseTimeout time.Duration
	RestartRetryDelay   time.Duration
	PageTimeout         time.Duration
	Thresholds          activity.Thresholds
}

// SettingsFunc returns the current settings
type SettingsFunc func() Settings

// Detector is the slice of the activity detector the driver needs
type Detector interface {
	Process(ctx context.Context, r *models.Reading, th activity.Thresholds) models.Status
	State(hex string) *models.VehicleState
}

type LatestStore interface {
	SaveLatest(r *models.Reading) error
}

type ReadingLog interface {
	Append(r *models.Reading) error
}

// Recorder receives driver counters
type Recorder interface {
	CycleCompleted(ok bool)
	CycleTimedOut()
	PageRebuilt()
	SessionRestarted()
}

// ReadingHook observes readings after they were persisted
type ReadingHook func(r *models.Reading)

type Options struct {
	Launcher browser.Launcher
	Detector Detector
	Latest   LatestStore
	Log      ReadingLog
	Settings SettingsFunc
	Recorder Recorder
	Target   string
	// OnLatest runs for every reading with a hex
	OnLatest ReadingHook
	// OnLogged runs for every reading appended to the log
	OnLogged ReadingHook
}

type Driver struct {
	opts  Options
	queue *Queue

	mu                  sync.Mutex
	target              string
	session             browser.Session
	page                browser.Page
	generation          int
	consecutiveTimeouts int
	nextRestartAt       time.Time
	lastCycleAt         time.Time
	lastSuccessAt       time.Time
	lastError           string
	loopCtx             context.Context
	cancel              context.CancelFunc

	running    atomic.Bool
	recovering atomic.Bool
	wg         sync.WaitGroup
}

func NewDriver(opts Options) *Driver {
	return &Driver{
		opts:   opts,
		queue:  NewQueue(),
		target: opts.Target,
	}
}

// Start launches the first session and the scrape loop. The loop runs until
// ctx is done or Stop is called.
func (d *Driver) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.loopCtx = loopCtx
	d.cancel = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go d.loop(loopCtx)
	nuts.L.Infof("[Driver] Started for target %s", d.Target())
	return nil
}

// Stop ends the loop, waits for it and closes the session
func (d *Driver) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	cancel()
	d.wg.Wait()

	session, page := d.detach()
	if session != nil {
		s := d.settings()
		ctx, done := context.WithTimeout(context.Background(), s.SessionCloseTimeout+time.Second)
		defer done()
		d.closeSession(ctx, session, page)
	}
	nuts.L.Infof("[Driver] Stopped")
}

func (d *Driver) loop(ctx context.Context) {
	defer d.wg.Done()

	if err := d.RestartSession(ctx); err != nil && ctx.Err() == nil {
		nuts.L.Errorf("[Driver] Initial session failed: %v", err)
	}

	timer := time.NewTimer(d.settings().ScrapeInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := d.queue.Do(ctx, "scrape", d.cycle)
		if ctx.Err() != nil {
			return
		}
		next := d.settings().ScrapeInterval
		if d.handleCycleResult(ctx, err) {
			next = 0
		}
		timer.Reset(next)
	}
}

// cycle reads, classifies and persists one reading
func (d *Driver) cycle(ctx context.Context) error {
	s := d.settings()
	page := d.currentPage()
	if page == nil {
		return errNoPage
	}

	raw, err := RunWithTimeout(ctx, s.ReadTimeout, "read reading", page.ReadCurrentReading)
	if err != nil {
		return err
	}
	reading := normalize.Reading(raw, time.Now().UTC())
	if reading == nil || reading.Hex == "" {
		return nil
	}

	status := d.opts.Detector.Process(ctx, reading, s.Thresholds)

	if d.opts.Latest != nil {
		if err := d.opts.Latest.SaveLatest(reading); err != nil {
			nuts.L.Errorf("[Driver] Failed to save latest reading: %v", err)
		}
	}
	if d.opts.OnLatest != nil {
		d.opts.OnLatest(reading)
	}

	if status != models.StatusOnline {
		return nil
	}
	if d.opts.Log != nil {
		if err := d.opts.Log.Append(reading); err != nil {
			nuts.L.Errorf("[Driver] Failed to append reading for %s: %v", reading.Hex, err)
			return nil
		}
	}
	if d.opts.OnLogged != nil {
		d.opts.OnLogged(reading)
	}
	return nil
}

// handleCycleResult updates the counters and climbs the recovery ladder. It
// reports whether a recovery succeeded so the next cycle can run at once.
func (d *Driver) handleCycleResult(ctx context.Context, err error) bool {
	now := time.Now().UTC()
	d.mu.Lock()
	d.lastCycleAt = now
	if err == nil {
		d.consecutiveTimeouts = 0
		d.lastSuccessAt = now
		d.lastError = ""
	} else {
		d.lastError = err.Error()
	}
	d.mu.Unlock()
	d.record(func(r Recorder) { r.CycleCompleted(err == nil) })

	switch {
	case err == nil:
		return false

	case stderrors.Is(err, errNoPage):
		if !d.restartDue(now) {
			return false
		}
		return d.RestartSession(ctx) == nil

	case errors.IsBrowsingFailure(err):
		d.record(func(r Recorder) { r.CycleTimedOut() })
		threshold := d.settings().TimeoutThreshold
		d.mu.Lock()
		d.consecutiveTimeouts++
		count := d.consecutiveTimeouts
		escalate := count >= threshold
		if escalate {
			d.consecutiveTimeouts = 0
		}
		d.mu.Unlock()

		if escalate {
			nuts.L.Warnf("[Driver] %d consecutive browsing failures, restarting session: %v", count, err)
			return d.RestartSession(ctx) == nil
		}
		nuts.L.Warnf("[Driver] Browsing failure %d/%d, rebuilding page: %v", count, threshold, err)
		return d.RebuildPage(ctx) == nil

	default:
		nuts.L.Errorf("[Driver] Cycle failed: %v", err)
		return false
	}
}

// SetTarget switches the tracked vehicle and queues navigation of the open
// page behind whatever task holds the queue. It returns without waiting for
// the navigation; failures are logged and the next recovery navigates again.
func (d *Driver) SetTarget(_ context.Context, hex string) error {
	hex = normalize.Hex(hex)
	if !models.ValidHex(hex) {
		return fmt.Errorf("invalid hex %q", hex)
	}
	d.mu.Lock()
	previous := d.target
	d.target = hex
	loopCtx := d.loopCtx
	d.mu.Unlock()
	if previous == hex {
		return nil
	}
	nuts.L.Infof("[Driver] Target changed from %s to %s", previous, hex)

	if !d.running.Load() || loopCtx == nil {
		return nil
	}
	done := d.queue.Enqueue(loopCtx, "navigate", func(ctx context.Context) error {
		if d.Target() != hex {
			return nil
		}
		page := d.currentPage()
		if page == nil {
			return nil
		}
		return d.navigate(ctx, page)
	})
	go func() {
		if err := <-done; err != nil && loopCtx.Err() == nil {
			nuts.L.Warnf("[Driver] Navigation to %s failed: %v", hex, err)
		}
	}()
	return nil
}

func (d *Driver) Target() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// Status is a snapshot for the status endpoint
func (d *Driver) Status() models.EngineStatus {
	d.mu.Lock()
	st := models.EngineStatus{
		Target:              d.target,
		HasPage:             d.page != nil,
		ConsecutiveTimeouts: d.consecutiveTimeouts,
		LastCycleAt:         d.lastCycleAt,
		LastSuccessAt:       d.lastSuccessAt,
		LastError:           d.lastError,
	}
	if d.session != nil {
		st.SessionID = d.session.ID()
	}
	d.mu.Unlock()

	st.Running = d.running.Load()
	st.Recovering = d.recovering.Load()
	st.ActiveTask = d.queue.Active()
	st.QueuedTasks = d.queue.Pending()
	if d.opts.Detector != nil {
		st.Vehicle = d.opts.Detector.State(st.Target)
	}
	return st
}

func (d *Driver) targetURL() string {
	return fmt.Sprintf(d.settings().TargetURLTemplate, d.Target())
}

func (d *Driver) navigate(ctx context.Context, page browser.Page) error {
	url := d.targetURL()
	return runErrWithTimeout(ctx, d.settings().NavigateTimeout, "navigate", func(ctx context.Context) error {
		return page.Navigate(ctx, url)
	})
}

func (d *Driver) settings() Settings {
	s := d.opts.Settings()
	if s.TimeoutThreshold < 1 {
		s.TimeoutThreshold = 1
	}
	return s
}

func (d *Driver) record(fn func(r Recorder)) {
	if d.opts.Recorder != nil {
		fn(d.opts.Recorder)
	}
}

func (d *Driver) currentPage() browser.Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

func (d *Driver) restartDue(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !now.Before(d.nextRestartAt)
}
