// Package trackerservice wires the engine together and is the single entry
// point used by the HTTP layer and the binaries.
package trackerservice

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itsatony/flightwatch/internal/activity"
	"github.com/itsatony/flightwatch/internal/browser"
	"github.com/itsatony/flightwatch/internal/cleanup"
	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/eventlog"
	"github.com/itsatony/flightwatch/internal/history"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/monitoring"
	"github.com/itsatony/flightwatch/internal/places"
	"github.com/itsatony/flightwatch/internal/repository"
	"github.com/itsatony/flightwatch/internal/scraper"
	nuts "github.com/vaudience/go-nuts"
)

const mirrorTimeout = 5 * time.Second

// Publisher fans events and readings out to other processes
type Publisher interface {
	PublishEvent(ctx context.Context, ev *models.Event) error
	SetLatest(ctx context.Context, r *models.Reading) error
	PublishVehicleDeleted(ctx context.Context, hex string) error
	DeleteVehicle(ctx context.Context, hex string) error
}

// PingFunc checks an optional backend for the health endpoint
type PingFunc func(ctx context.Context) error

// Dependencies are the collaborators built by the caller. Mirrors, the
// publisher and the geocoder are optional.
type Dependencies struct {
	Snapshots     repository.SnapshotStore
	ReadingLog    repository.ReadingLog
	Traces        repository.TraceStore
	Launcher      browser.Launcher
	Geocoder      places.Geocoder
	Archive       history.Archive
	Tx            database.Repository
	EventMirror   repository.EventMirror
	ReadingMirror repository.ReadingMirror
	Publisher     Publisher
	Monitoring    *monitoring.Service
	Pingers       map[string]PingFunc
}

// TrackerService contains the engine components and service-wide dependencies
type TrackerService struct {
	Config     *config.Live
	Snapshots  repository.SnapshotStore
	ReadingLog repository.ReadingLog
	Traces     repository.TraceStore
	Gazetteer  *places.Gazetteer
	Resolver   *places.Resolver
	Events     *eventlog.Log
	Detector   *activity.Detector
	Driver     *scraper.Driver
	Backfill   *history.Downloader
	Cleanup    *cleanup.CleanupService
	Monitoring *monitoring.Service

	deps    Dependencies
	ctx     context.Context
	latest  atomic.Pointer[models.Reading]
	mirrors sync.WaitGroup
	reattr  sync.Mutex
}

// New restores the persisted state and builds the engine. ctx bounds
// background work such as triggered backfills and re-attribution.
func New(ctx context.Context, live *config.Live, deps Dependencies) (*TrackerService, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Monitoring == nil {
		deps.Monitoring = monitoring.NewService()
	}
	cfg := live.Current()

	s := &TrackerService{
		Config:     live,
		Snapshots:  deps.Snapshots,
		ReadingLog: deps.ReadingLog,
		Traces:     deps.Traces,
		Monitoring: deps.Monitoring,
		deps:       deps,
		ctx:        ctx,
	}

	gazetteer, err := places.NewGazetteer(deps.Snapshots)
	if err != nil {
		return nil, err
	}
	s.Gazetteer = gazetteer
	s.Resolver = places.NewResolver(gazetteer, deps.Geocoder, places.Options{
		MatchRadius: func() float64 { return live.Current().Places.MatchRadiusM },
		CacheTTL:    cfg.Geocode.CacheTTL,
		CacheSize:   cfg.Geocode.CacheSize,
		Precision:   cfg.Geocode.Precision,
		Recorder:    deps.Monitoring,
	})

	events, err := eventlog.New(deps.Snapshots)
	if err != nil {
		return nil, err
	}
	s.Events = events
	events.OnAppend(s.onEvent)
	s.Detector = activity.NewDetector(s.Resolver, events)

	latest, err := deps.Snapshots.LoadLatest()
	if err != nil {
		nuts.L.Warnf("[TrackerService] Ignoring unreadable latest reading: %v", err)
	} else if latest != nil {
		s.latest.Store(latest)
	}

	s.Driver = scraper.NewDriver(scraper.Options{
		Launcher: deps.Launcher,
		Detector: s.Detector,
		Latest:   deps.Snapshots,
		Log:      deps.ReadingLog,
		Settings: s.scrapeSettings,
		Recorder: deps.Monitoring,
		Target:   s.initialTarget(cfg),
		OnLatest: s.onLatest,
		OnLogged: s.onLogged,
	})

	s.Backfill = history.NewDownloader(ctx, history.Options{
		Archive:  deps.Archive,
		Traces:   deps.Traces,
		Settings: s.historySettings,
		Recorder: deps.Monitoring,
	})

	s.Cleanup = cleanup.New(cleanup.Options{
		ReadingLog:    deps.ReadingLog,
		Traces:        deps.Traces,
		Events:        events,
		Detector:      s.Detector,
		Backfill:      s.Backfill,
		Tx:            deps.Tx,
		EventMirror:   deps.EventMirror,
		ReadingMirror: deps.ReadingMirror,
	})
	if err := s.Cleanup.OnCleanup(cleanup.EventVehicleDeleted, s.onVehicleDeleted); err != nil {
		return nil, err
	}

	live.OnChange(s.onConfigChange)

	nuts.L.Infof("[TrackerService] Restored %d events and %d places, target %s",
		events.Len(), len(gazetteer.List()), s.Driver.Target())
	return s, nil
}

func (d Dependencies) validate() error {
	if d.Snapshots == nil {
		return ErrMissingRepository("snapshots")
	}
	if d.ReadingLog == nil {
		return ErrMissingRepository("readingLog")
	}
	if d.Traces == nil {
		return ErrMissingRepository("traces")
	}
	if d.Launcher == nil {
		return ErrMissingRepository("launcher")
	}
	if d.Archive == nil {
		return ErrMissingRepository("archive")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}

// Start runs the scrape loop and the backfill of the current target
func (s *TrackerService) Start(ctx context.Context) error {
	if err := s.Driver.Start(ctx); err != nil {
		return err
	}
	s.triggerBackfill(s.Driver.Target())
	return nil
}

// Stop ends the scrape loop and waits for background writes
func (s *TrackerService) Stop() {
	s.Driver.Stop()
	s.Backfill.Wait()
	s.mirrors.Wait()
}

func (s *TrackerService) initialTarget(cfg *config.Config) string {
	target, err := s.Snapshots.LoadTarget()
	if err != nil {
		nuts.L.Warnf("[TrackerService] Ignoring unreadable target: %v", err)
	}
	if target != nil && models.ValidHex(target.Hex) {
		return target.Hex
	}
	return cfg.Tracking.DefaultTarget
}

func (s *TrackerService) scrapeSettings() scraper.Settings {
	cfg := s.Config.Current()
	return scraper.Settings{
		TargetURLTemplate:   cfg.Tracking.TargetURLTemplate,
		ScrapeInterval:      cfg.Tracking.ScrapeInterval,
		ReadTimeout:         cfg.Tracking.ReadTimeout,
		NavigateTimeout:     cfg.Tracking.NavigateTimeout,
		TimeoutThreshold:    cfg.Tracking.TimeoutThreshold,
		SessionCloseTimeout: cfg.Tracking.SessionCloseTimeout,
		RestartRetryDelay:   cfg.Tracking.RestartRetryDelay,
		PageTimeout:         cfg.Browser.DefaultTimeout,
		Thresholds:          Thresholds(cfg.Detection),
	}
}

// Thresholds converts the detection configuration
func Thresholds(c config.DetectionConfig) activity.Thresholds {
	th := activity.Thresholds{Altitude: c.AltitudeThreshold, OfflineTimeout: c.OfflineTimeout}
	if c.SpeedThreshold > 0 {
		th.Speed = models.Float(c.SpeedThreshold)
	}
	return th
}

func (s *TrackerService) historySettings() history.Settings {
	cfg := s.Config.Current().History
	return history.Settings{
		LookbackDays:     cfg.LookbackDays,
		RateLimitBackoff: cfg.RateLimitBackoff,
		RequestDelay:     cfg.RequestDelay,
	}
}

func (s *TrackerService) onConfigChange(old, updated *config.Config) {
	if old.Places.MatchRadiusM == updated.Places.MatchRadiusM {
		return
	}
	nuts.L.Infof("[TrackerService] Match radius changed from %.0fm to %.0fm", old.Places.MatchRadiusM, updated.Places.MatchRadiusM)
	if _, err := s.Reattribute(s.ctx); err != nil {
		nuts.L.Errorf("[TrackerService] Re-attribution after radius change failed: %v", err)
	}
}

// async runs fn on a bounded context without blocking the caller
func (s *TrackerService) async(label string, fn func(ctx context.Context) error) {
	s.mirrors.Add(1)
	go func() {
		defer s.mirrors.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			nuts.L.Warnf("[TrackerService] %s failed: %v", label, err)
		}
	}()
}
