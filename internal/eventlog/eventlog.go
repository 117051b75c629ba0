// Package eventlog keeps the append-only list of detected events, persists
// it and fans new events out to live subscribers.
package eventlog

import (
	"sync"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// Store persists the whole event list
type Store interface {
	LoadEvents() ([]*models.Event, error)
	SaveEvents(events []*models.Event) error
}

// AppendHook is called synchronously for every appended event
type AppendHook func(ev *models.Event)

type Log struct {
	mu     sync.RWMutex
	events []*models.Event
	nextID int64
	store  Store
	hooks  []AppendHook

	subMu  sync.Mutex
	subs   map[int]chan *models.Event
	nextSb int
}

// New loads the stored events. Ids continue after the highest stored id.
func New(store Store) (*Log, error) {
	events, err := store.LoadEvents()
	if err != nil {
		return nil, errors.NewStorageError("failed to load events", err)
	}
	var maxID int64
	for _, ev := range events {
		if ev.ID > maxID {
			maxID = ev.ID
		}
	}
	nuts.L.Infof("[EventLog] Loaded %d events, next id %d", len(events), maxID+1)
	return &Log{
		events: events,
		nextID: maxID + 1,
		store:  store,
		subs:   make(map[int]chan *models.Event),
	}, nil
}

// OnAppend registers a hook. Hooks must not block.
func (l *Log) OnAppend(hook AppendHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Append assigns the next id, stores the event and notifies hooks and
// subscribers. The event stays in the log even when persisting fails; the
// error is returned alongside.
func (l *Log) Append(ev *models.Event) (*models.Event, error) {
	l.mu.Lock()
	ev.ID = l.nextID
	l.nextID++
	l.events = append(l.events, ev)
	stored := ev.Clone()
	err := l.store.SaveEvents(l.events)
	hooks := make([]AppendHook, len(l.hooks))
	copy(hooks, l.hooks)
	l.mu.Unlock()

	if err != nil {
		err = errors.NewStorageError("failed to save events", err)
	}
	for _, hook := range hooks {
		hook(stored.Clone())
	}
	l.publish(stored)
	return stored.Clone(), err
}

// List returns copies of the events matching q, oldest first. A positive
// limit keeps only the most recent matches.
func (l *Log) List(q models.EventQuery) []*models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Event, 0, len(l.events))
	for _, ev := range l.events {
		if q.Hex != "" && ev.Hex != q.Hex {
			continue
		}
		if q.Type != "" && ev.Type != q.Type {
			continue
		}
		out = append(out, ev.Clone())
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Reattribute recomputes the place of every event with fn, which runs
// without holding the log lock. fn returns nil to keep the current place.
// It returns the number of events whose place changed.
func (l *Log) Reattribute(fn func(ev *models.Event) *models.Place) (int, error) {
	snapshot := l.List(models.EventQuery{})
	updates := make(map[int64]*models.Place)
	for _, ev := range snapshot {
		if place := fn(ev); place != nil && !samePlace(ev.Place, place) {
			updates[ev.ID] = place
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	changed := 0
	for _, ev := range l.events {
		if place, ok := updates[ev.ID]; ok {
			ev.Place = place
			changed++
		}
	}
	if err := l.store.SaveEvents(l.events); err != nil {
		return changed, errors.NewStorageError("failed to save events", err)
	}
	return changed, nil
}

// DeleteVehicle removes all events of hex and returns how many were removed
func (l *Log) DeleteVehicle(hex string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := make([]*models.Event, 0, len(l.events))
	for _, ev := range l.events {
		if ev.Hex != hex {
			kept = append(kept, ev)
		}
	}
	removed := len(l.events) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := l.store.SaveEvents(kept); err != nil {
		return 0, errors.NewStorageError("failed to save events", err)
	}
	l.events = kept
	return removed, nil
}

// Subscribe returns a channel receiving every new event and a function to
// cancel the subscription. Events are dropped for subscribers whose buffer
// is full.
func (l *Log) Subscribe(buffer int) (<-chan *models.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *models.Event, buffer)

	l.subMu.Lock()
	id := l.nextSb
	l.nextSb++
	l.subs[id] = ch
	l.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			l.subMu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscriptions
func (l *Log) Subscribers() int {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	return len(l.subs)
}

func (l *Log) publish(ev *models.Event) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for id, ch := range l.subs {
		select {
		case ch <- ev.Clone():
		default:
			nuts.L.Warnf("[EventLog] Subscriber %d is too slow, dropping event %d", id, ev.ID)
		}
	}
}

func samePlace(a, b *models.Place) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Source == b.Source && a.PlaceID == b.PlaceID && a.Name == b.Name &&
		a.Type == b.Type && floatEq(a.Lat, b.Lat) && floatEq(a.Lon, b.Lon) && floatEq(a.Radius, b.Radius)
}

func floatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
