// Package monitoring keeps in-process counters for the metrics endpoint.
package monitoring

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	nuts "github.com/vaudience/go-nuts"
)

// Counter names
const (
	CyclesOK          = "scrape_cycles_ok"
	CyclesFailed      = "scrape_cycles_failed"
	CycleTimeouts     = "scrape_timeouts"
	PageRebuilds      = "page_rebuilds"
	SessionRestarts   = "session_restarts"
	GeocodeHits       = "geocode_cache_hits"
	GeocodeMisses     = "geocode_cache_misses"
	BackfillDays      = "backfill_days_fetched"
	BackfillThrottled = "backfill_rate_limited"
	EventsDetected    = "events_detected"
	VehiclesDeleted   = "vehicles_deleted"
)

// Service provides monitoring functionality
type Service struct {
	started  time.Time
	mu       sync.Mutex
	counters map[string]int64
	lastSeen map[string]time.Time
}

// Metrics is the snapshot served by the metrics endpoint
type Metrics struct {
	StartedAt   time.Time            `json:"startedAt"`
	Uptime      string               `json:"uptime"`
	Counters    map[string]int64     `json:"counters"`
	LastEventAt map[string]time.Time `json:"lastEventAt"`
	Summary     []string             `json:"summary"`
}

// NewService creates a new monitoring service
func NewService() *Service {
	return &Service{
		started:  time.Now().UTC(),
		counters: make(map[string]int64),
		lastSeen: make(map[string]time.Time),
	}
}

// RecordEvent counts a named event and logs it with its labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	s.Add(eventName, 1)
	if len(labels) == 0 {
		return
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	nuts.L.Infof("[Monitoring] %s %s", eventName, strings.Join(pairs, " "))
}

func (s *Service) Add(name string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += delta
	s.lastSeen[name] = time.Now().UTC()
}

func (s *Service) Get(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}

// Snapshot copies the counters
func (s *Service) Snapshot() Metrics {
	s.mu.Lock()
	counters := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		counters[k] = v
	}
	last := make(map[string]time.Time, len(s.lastSeen))
	for k, v := range s.lastSeen {
		last[k] = v
	}
	s.mu.Unlock()

	names := make([]string, 0, len(counters))
	for k := range counters {
		names = append(names, k)
	}
	sort.Strings(names)
	summary := make([]string, 0, len(names))
	for _, name := range names {
		summary = append(summary, name+": "+humanize.Comma(counters[name])+", last "+humanize.Time(last[name]))
	}

	return Metrics{
		StartedAt:   s.started,
		Uptime:      strings.TrimSuffix(humanize.Time(s.started), " ago"),
		Counters:    counters,
		LastEventAt: last,
		Summary:     summary,
	}
}

// scraper.Recorder

func (s *Service) CycleCompleted(ok bool) {
	if ok {
		s.Add(CyclesOK, 1)
		return
	}
	s.Add(CyclesFailed, 1)
}

func (s *Service) CycleTimedOut()    { s.Add(CycleTimeouts, 1) }
func (s *Service) PageRebuilt()      { s.Add(PageRebuilds, 1) }
func (s *Service) SessionRestarted() { s.Add(SessionRestarts, 1) }

// places.CacheRecorder

func (s *Service) GeocodeHit()  { s.Add(GeocodeHits, 1) }
func (s *Service) GeocodeMiss() { s.Add(GeocodeMisses, 1) }

// history.Recorder

func (s *Service) DayFetched()  { s.Add(BackfillDays, 1) }
func (s *Service) RateLimited() { s.Add(BackfillThrottled, 1) }
