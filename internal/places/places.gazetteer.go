package places

import (
	"strings"
	"sync"
	"time"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// Store persists the gazetteer as a whole
type Store interface {
	LoadPlaces() ([]*models.GazetteerEntry, error)
	SavePlaces(entries []*models.GazetteerEntry) error
}

// EntryInput is the writable part of a gazetteer entry
type EntryInput struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Radius   *float64 `json:"radius,omitempty"`
}

func (in *EntryInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.NewValidationError("place name is required", nil)
	}
	if in.Lat == nil || in.Lon == nil || !validCoordinates(*in.Lat, *in.Lon) {
		return errors.NewValidationError("valid lat and lon are required", nil)
	}
	if in.Radius != nil && *in.Radius <= 0 {
		return errors.NewValidationError("radius must be positive", nil)
	}
	return nil
}

// Gazetteer is the user-maintained list of named places
type Gazetteer struct {
	mu      sync.RWMutex
	entries []*models.GazetteerEntry
	store   Store
}

// NewGazetteer loads the persisted entries from store
func NewGazetteer(store Store) (*Gazetteer, error) {
	entries, err := store.LoadPlaces()
	if err != nil {
		return nil, errors.NewStorageError("failed to load places", err)
	}
	nuts.L.Infof("[Places] Loaded %d gazetteer entries", len(entries))
	return &Gazetteer{entries: entries, store: store}, nil
}

// List returns copies of all entries in insertion order
func (g *Gazetteer) List() []*models.GazetteerEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*models.GazetteerEntry, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, e.Clone())
	}
	return out
}

func (g *Gazetteer) Get(id string) (*models.GazetteerEntry, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if i := g.indexOf(id); i >= 0 {
		return g.entries[i].Clone(), nil
	}
	return nil, errors.NewNotFoundError("place not found", nil).WithDetails(map[string]string{"id": id})
}

func (g *Gazetteer) Create(in EntryInput) (*models.GazetteerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	entry := &models.GazetteerEntry{
		ID:        nuts.NID("plc", 12),
		Name:      strings.TrimSpace(in.Name),
		Category:  strings.TrimSpace(in.Category),
		Lat:       in.Lat,
		Lon:       in.Lon,
		Radius:    in.Radius,
		CreatedAt: now,
		UpdatedAt: now,
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	next := append(g.snapshot(), entry)
	if err := g.persist(next); err != nil {
		return nil, err
	}
	nuts.L.Infof("[Places] Created place %s (%s)", entry.Name, entry.ID)
	return entry.Clone(), nil
}

func (g *Gazetteer) Update(id string, in EntryInput) (*models.GazetteerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexOf(id)
	if i < 0 {
		return nil, errors.NewNotFoundError("place not found", nil).WithDetails(map[string]string{"id": id})
	}
	updated := g.entries[i].Clone()
	updated.Name = strings.TrimSpace(in.Name)
	updated.Category = strings.TrimSpace(in.Category)
	updated.Lat, updated.Lon, updated.Radius = in.Lat, in.Lon, in.Radius
	updated.UpdatedAt = time.Now().UTC()

	next := g.snapshot()
	next[i] = updated
	if err := g.persist(next); err != nil {
		return nil, err
	}
	nuts.L.Infof("[Places] Updated place %s (%s)", updated.Name, updated.ID)
	return updated.Clone(), nil
}

func (g *Gazetteer) Delete(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexOf(id)
	if i < 0 {
		return errors.NewNotFoundError("place not found", nil).WithDetails(map[string]string{"id": id})
	}
	next := append(g.snapshot()[:i:i], g.entries[i+1:]...)
	if err := g.persist(next); err != nil {
		return err
	}
	nuts.L.Infof("[Places] Deleted place %s", id)
	return nil
}

// match returns the nearest entry whose distance is within its effective
// radius. Entries are scanned in order so the first one wins an exact tie.
func (g *Gazetteer) match(lat, lon, defaultRadius float64) (*models.GazetteerEntry, float64, float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var (
		best       *models.GazetteerEntry
		bestDist   float64
		bestRadius float64
	)
	from := pointOf(lat, lon)
	for _, e := range g.entries {
		if !e.HasCoordinates() || !validCoordinates(*e.Lat, *e.Lon) {
			continue
		}
		radius := defaultRadius
		if e.Radius != nil && *e.Radius > 0 {
			radius = *e.Radius
		}
		d := Distance(from, e.Point())
		if d > radius {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist, bestRadius = e, d, radius
		}
	}
	if best == nil {
		return nil, 0, 0, false
	}
	return best.Clone(), bestDist, bestRadius, true
}

func (g *Gazetteer) indexOf(id string) int {
	for i, e := range g.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (g *Gazetteer) snapshot() []*models.GazetteerEntry {
	out := make([]*models.GazetteerEntry, len(g.entries))
	copy(out, g.entries)
	return out
}

// persist writes next and swaps it in only when the write succeeded
func (g *Gazetteer) persist(next []*models.GazetteerEntry) error {
	if err := g.store.SavePlaces(next); err != nil {
		return errors.NewStorageError("failed to save places", err)
	}
	g.entries = next
	return nil
}
