// Package activity infers takeoff and landing events from the stream of
// readings of a vehicle.
package activity

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/itsatony/flightwatch/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// EventWindow bounds how long a transition stays eligible to produce an event
const EventWindow = 60 * time.Second

const minOnlineWindow = 5 * time.Second

// Thresholds are the operational limits read from configuration per cycle
type Thresholds struct {
	Altitude       float64
	Speed          *float64 // nil disables the speed predicates
	OfflineTimeout time.Duration
}

// OnlineWindow is the maximum last-seen age that still confirms an online
// vehicle: a third of the offline timeout, at least 5s, at most the timeout.
func (t Thresholds) OnlineWindow() time.Duration {
	w := time.Duration(math.Round(t.OfflineTimeout.Seconds()/3)) * time.Second
	if w < minOnlineWindow {
		w = minOnlineWindow
	}
	if w > t.OfflineTimeout {
		w = t.OfflineTimeout
	}
	return w
}

// PlaceResolver attributes a position to a place
type PlaceResolver interface {
	Resolve(ctx context.Context, lat, lon *float64) *models.Place
}

// EventSink stores emitted events and assigns their ids. A sink may return
// the stored event together with a persistence error.
type EventSink interface {
	Append(ev *models.Event) (*models.Event, error)
}

// Detector owns the per-vehicle activity state
type Detector struct {
	mu     sync.Mutex
	states map[string]*models.VehicleState
	places PlaceResolver
	sink   EventSink
}

func NewDetector(places PlaceResolver, sink EventSink) *Detector {
	return &Detector{
		states: make(map[string]*models.VehicleState),
		places: places,
		sink:   sink,
	}
}

// Process feeds one reading through the state machine and returns the
// resulting status. Readings without last-seen information or with an
// invalid timestamp leave the state untouched.
func (d *Detector) Process(ctx context.Context, r *models.Reading, th Thresholds) models.Status {
	if r == nil || r.Hex == "" {
		return models.StatusOffline
	}

	d.mu.Lock()
	status, ev := d.step(r, th)
	d.mu.Unlock()

	if ev != nil {
		d.emit(ctx, ev)
	}
	return status
}

func (d *Detector) step(r *models.Reading, th Thresholds) (models.Status, *models.Event) {
	state, known := d.states[r.Hex]
	prev := models.StatusOffline
	if known {
		prev = state.Status
	}

	if r.Time.IsZero() {
		nuts.L.Warnf("[Detector] Rejecting reading for %s with invalid timestamp", r.Hex)
		return prev, nil
	}
	if r.LastSeen == nil {
		nuts.L.Warnf("[Detector] lastSeen missing for %s, status stays %s", r.Hex, prev)
		return prev, nil
	}

	if !known {
		state = &models.VehicleState{Status: models.StatusOffline}
		d.states[r.Hex] = state
	}
	first := !state.HasSeenFirstReading
	state.HasSeenFirstReading = true

	p := evaluate(r, th)
	if p.belowAltitude || p.belowSpeed {
		state.LastBelowThreshold = r.Time
	}

	lastSeen := time.Duration(*r.LastSeen) * time.Second
	next := prev
	if lastSeen <= th.OnlineWindow() && p.isMoving() {
		next = models.StatusOnline
	} else if lastSeen >= th.OfflineTimeout && p.isGrounded() {
		next = models.StatusOffline
	}

	var ev *models.Event
	switch {
	case next == models.StatusOnline && prev != models.StatusOnline:
		state.Pending = &models.PendingTakeoff{ChangedAt: r.Time, Suppress: first}
		if first {
			nuts.L.Infof("[Detector] %s already airborne on first reading, takeoff suppressed", r.Hex)
		}

	case next == models.StatusOffline && prev == models.StatusOnline:
		state.Pending = nil
		if !state.LastBelowThreshold.IsZero() && absDuration(r.Time.Sub(state.LastBelowThreshold)) <= EventWindow {
			ev = models.NewEvent(models.EventLanding, r)
		}

	case state.Pending != nil:
		if r.Time.Sub(state.Pending.ChangedAt) > EventWindow {
			state.Pending = nil
		} else if p.exceedsAltitude || p.exceedsSpeed {
			if !state.Pending.Suppress {
				ev = models.NewEvent(models.EventTakeoff, r)
			}
			state.Pending = nil
		}
	}

	if next != prev {
		state.Status = next
		state.LastChange = r.Time
		nuts.L.Infof("[Detector] %s changed %s -> %s (lastSeen %ds)", r.Hex, prev, next, *r.LastSeen)
	}
	return next, ev
}

func (d *Detector) emit(ctx context.Context, ev *models.Event) {
	if d.places != nil {
		ev.Place = d.places.Resolve(ctx, ev.Lat, ev.Lon)
	}
	if d.sink == nil {
		return
	}
	stored, err := d.sink.Append(ev)
	if err != nil {
		nuts.L.Errorf("[Detector] Failed to store %s event for %s: %v", ev.Type, ev.Hex, err)
	}
	if stored == nil {
		return
	}
	placeName := models.UnknownPlaceName
	if stored.Place != nil {
		placeName = stored.Place.Name
	}
	nuts.L.Infof("[Detector] Event #%d %s %s (%s) at %s", stored.ID, stored.Type, stored.Hex, stored.Callsign, placeName)
}

// State returns a copy of the state of hex, or nil when it was never seen
func (d *Detector) State(hex string) *models.VehicleState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[hex].Clone()
}

// Forget drops all state of hex
func (d *Detector) Forget(hex string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, hex)
}

type predicates struct {
	exceedsAltitude   bool
	belowAltitude     bool
	exceedsSpeed      bool
	belowSpeed        bool
	climbing          bool
	descendingOrLevel bool
}

func (p predicates) isMoving() bool {
	return p.exceedsAltitude || p.exceedsSpeed || p.climbing
}

func (p predicates) isGrounded() bool {
	return p.belowAltitude || p.belowSpeed || p.descendingOrLevel
}

// evaluate compares the reading with the thresholds. Unknown values never
// satisfy any predicate.
func evaluate(r *models.Reading, th Thresholds) predicates {
	var p predicates
	if r.Altitude != nil {
		p.exceedsAltitude = *r.Altitude > th.Altitude
		p.belowAltitude = *r.Altitude < th.Altitude
	}
	if th.Speed != nil && r.GroundSpeed != nil {
		p.exceedsSpeed = *r.GroundSpeed > *th.Speed
		p.belowSpeed = *r.GroundSpeed < *th.Speed
	}
	if r.VerticalRate != nil {
		p.climbing = *r.VerticalRate > 0
		p.descendingOrLevel = *r.VerticalRate <= 0
	}
	return p
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
