package files

import (
	"path/filepath"
	"sync"

	"github.com/itsatony/flightwatch/internal/models"
)

// SnapshotRepo keeps the engine state as whole JSON files under BasePath
type SnapshotRepo struct {
	config FileConfig
	mu     sync.Mutex
}

func NewSnapshotRepository(config FileConfig) (*SnapshotRepo, error) {
	if err := createDirectoryIfNotExists(config.BasePath); err != nil {
		return nil, err
	}
	return &SnapshotRepo{config: config}, nil
}

func (r *SnapshotRepo) path(name string) string {
	return filepath.Join(r.config.BasePath, name)
}

func (r *SnapshotRepo) LoadLatest() (*models.Reading, error) {
	var latest models.Reading
	ok, err := readJSON(r.path(latestFile), &latest)
	if err != nil || !ok || latest.Hex == "" {
		return nil, err
	}
	return &latest, nil
}

func (r *SnapshotRepo) SaveLatest(latest *models.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSON(r.path(latestFile), latest)
}

func (r *SnapshotRepo) LoadEvents() ([]*models.Event, error) {
	events := []*models.Event{}
	if _, err := readJSON(r.path(eventsFile), &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *SnapshotRepo) SaveEvents(events []*models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSON(r.path(eventsFile), events)
}

func (r *SnapshotRepo) LoadPlaces() ([]*models.GazetteerEntry, error) {
	places := []*models.GazetteerEntry{}
	if _, err := readJSON(r.path(placesFile), &places); err != nil {
		return nil, err
	}
	return places, nil
}

func (r *SnapshotRepo) SavePlaces(entries []*models.GazetteerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSON(r.path(placesFile), entries)
}

// LoadTarget returns the persisted target or nil when none was saved
func (r *SnapshotRepo) LoadTarget() (*models.Target, error) {
	var target models.Target
	ok, err := readJSON(r.path(targetFile), &target)
	if err != nil || !ok || target.Hex == "" {
		return nil, err
	}
	return &target, nil
}

func (r *SnapshotRepo) SaveTarget(target *models.Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSON(r.path(targetFile), target)
}
