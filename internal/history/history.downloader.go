package history

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/itsatony/flightwatch/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

var ErrAlreadyRunning = stderrors.New("backfill already running for this vehicle")

const dayLayout = "2006-01-02"

// TraceStore is where fetched days are kept
type TraceStore interface {
	HasDay(hex string, day time.Time) (bool, error)
	SaveDay(hex string, day time.Time, body []byte) error
	ListDays(hex string) ([]time.Time, error)
}

type Settings struct {
	LookbackDays     int
	RateLimitBackoff time.Duration
	RequestDelay     time.Duration
}

// Recorder receives backfill counters
type Recorder interface {
	DayFetched()
	RateLimited()
}

type Options struct {
	Archive  Archive
	Traces   TraceStore
	Settings func() Settings
	Recorder Recorder
	// Now defaults to time.Now
	Now func() time.Time
}

// Result summarizes one backfill run
type Result struct {
	Hex         string `json:"hex"`
	Fetched     int    `json:"fetched"`
	Skipped     int    `json:"skipped"`
	Missing     int    `json:"missing"`
	Failed      int    `json:"failed"`
	RateLimited int    `json:"rateLimited"`
}

type Downloader struct {
	opts   Options
	ctx    context.Context
	mu     sync.Mutex
	days   map[string]map[string]bool
	active map[string]bool
	wg     sync.WaitGroup
}

// NewDownloader creates a downloader. Runs started with Trigger stop when
// ctx is done.
func NewDownloader(ctx context.Context, opts Options) *Downloader {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Downloader{
		opts:   opts,
		ctx:    ctx,
		days:   make(map[string]map[string]bool),
		active: make(map[string]bool),
	}
}

// Trigger starts a background backfill for hex. It reports false when a run
// for hex is already active.
func (d *Downloader) Trigger(hex string) bool {
	if !d.begin(hex) {
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.finish(hex)
		res, err := d.run(d.ctx, hex)
		if err != nil {
			nuts.L.Warnf("[History] Backfill for %s stopped: %v", hex, err)
			return
		}
		nuts.L.Infof("[History] Backfill for %s done: %d fetched, %d already present, %d missing, %d failed",
			hex, res.Fetched, res.Skipped, res.Missing, res.Failed)
	}()
	return true
}

// Backfill runs synchronously
func (d *Downloader) Backfill(ctx context.Context, hex string) (*Result, error) {
	if !d.begin(hex) {
		return nil, ErrAlreadyRunning
	}
	defer d.finish(hex)
	return d.run(ctx, hex)
}

// Running reports whether a backfill for hex is active
func (d *Downloader) Running(hex string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active[hex]
}

// Wait blocks until every triggered run has returned
func (d *Downloader) Wait() {
	d.wg.Wait()
}

// Days lists the days present for hex, oldest first
func (d *Downloader) Days(hex string) ([]time.Time, error) {
	days, err := d.opts.Traces.ListDays(hex)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	set := d.daySet(hex)
	for _, day := range days {
		set[day.UTC().Format(dayLayout)] = true
	}
	d.mu.Unlock()
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// Forget drops the cached day-set of hex
func (d *Downloader) Forget(hex string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.days, hex)
}

func (d *Downloader) begin(hex string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active[hex] {
		return false
	}
	d.active[hex] = true
	return true
}

func (d *Downloader) finish(hex string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, hex)
}

func (d *Downloader) run(ctx context.Context, hex string) (*Result, error) {
	if !models.ValidHex(hex) {
		return nil, fmt.Errorf("invalid hex %q", hex)
	}
	s := d.opts.Settings()
	res := &Result{Hex: hex}
	now := d.opts.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	fetchedBefore := false
	for i := 1; i <= s.LookbackDays; i++ {
		day := today.AddDate(0, 0, -i)
		if d.present(hex, day) {
			res.Skipped++
			continue
		}
		if fetchedBefore {
			if err := sleep(ctx, s.RequestDelay); err != nil {
				return res, err
			}
		}
		fetchedBefore = true
		if err := d.fetchDay(ctx, hex, day, s, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// fetchDay retries rate limited answers until ctx is done. Other failures
// are counted and leave the day unmarked.
func (d *Downloader) fetchDay(ctx context.Context, hex string, day time.Time, s Settings, res *Result) error {
	label := day.Format(dayLayout)
	for {
		status, body, err := d.opts.Archive.Fetch(ctx, hex, day)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		switch {
		case err != nil:
			nuts.L.Warnf("[History] Fetching %s for %s failed: %v", label, hex, err)
			res.Failed++
			return nil

		case status == http.StatusTooManyRequests:
			res.RateLimited++
			if d.opts.Recorder != nil {
				d.opts.Recorder.RateLimited()
			}
			nuts.L.Warnf("[History] Rate limited on %s for %s, retrying in %s", label, hex, s.RateLimitBackoff)
			if err := sleep(ctx, s.RateLimitBackoff); err != nil {
				return err
			}

		case status == http.StatusOK:
			if err := d.opts.Traces.SaveDay(hex, day, body); err != nil {
				nuts.L.Errorf("[History] Saving %s for %s failed: %v", label, hex, err)
				res.Failed++
				return nil
			}
			d.mark(hex, day)
			res.Fetched++
			if d.opts.Recorder != nil {
				d.opts.Recorder.DayFetched()
			}
			return nil

		default:
			nuts.L.Infof("[History] No trace for %s on %s (status %d)", hex, label, status)
			res.Missing++
			return nil
		}
	}
}

func (d *Downloader) present(hex string, day time.Time) bool {
	key := day.Format(dayLayout)
	d.mu.Lock()
	known := d.daySet(hex)[key]
	d.mu.Unlock()
	if known {
		return true
	}
	ok, err := d.opts.Traces.HasDay(hex, day)
	if err != nil {
		nuts.L.Warnf("[History] Checking %s for %s failed: %v", key, hex, err)
		return false
	}
	if ok {
		d.mark(hex, day)
	}
	return ok
}

func (d *Downloader) mark(hex string, day time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.daySet(hex)[day.Format(dayLayout)] = true
}

// daySet must be called with d.mu held
func (d *Downloader) daySet(hex string) map[string]bool {
	set, ok := d.days[hex]
	if !ok {
		set = make(map[string]bool)
		d.days[hex] = set
	}
	return set
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
