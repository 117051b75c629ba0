package trackerservice

import (
	"context"

	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/places"
	nuts "github.com/vaudience/go-nuts"
)

func (s *TrackerService) ListPlaces() []*models.GazetteerEntry {
	return s.Gazetteer.List()
}

func (s *TrackerService) GetPlace(id string) (*models.GazetteerEntry, error) {
	return s.Gazetteer.Get(id)
}

func (s *TrackerService) CreatePlace(ctx context.Context, in places.EntryInput) (*models.GazetteerEntry, error) {
	entry, err := s.Gazetteer.Create(in)
	if err != nil {
		return nil, err
	}
	nuts.L.Infof("[TrackerService] Created place %s (%s)", entry.Name, entry.ID)
	s.reattributeAfterEdit(ctx)
	return entry, nil
}

func (s *TrackerService) UpdatePlace(ctx context.Context, id string, in places.EntryInput) (*models.GazetteerEntry, error) {
	entry, err := s.Gazetteer.Update(id, in)
	if err != nil {
		return nil, err
	}
	nuts.L.Infof("[TrackerService] Updated place %s (%s)", entry.Name, entry.ID)
	s.reattributeAfterEdit(ctx)
	return entry, nil
}

func (s *TrackerService) DeletePlace(ctx context.Context, id string) error {
	if err := s.Gazetteer.Delete(id); err != nil {
		return err
	}
	nuts.L.Infof("[TrackerService] Deleted place %s", id)
	s.reattributeAfterEdit(ctx)
	return nil
}

func (s *TrackerService) reattributeAfterEdit(ctx context.Context) {
	if _, err := s.Reattribute(ctx); err != nil {
		nuts.L.Errorf("[TrackerService] Re-attribution after place edit failed: %v", err)
	}
}

// Reattribute re-matches every event against the gazetteer. A match
// replaces the place with a user snapshot; an event whose user place no
// longer matches is resolved again. Other places are kept.
func (s *TrackerService) Reattribute(ctx context.Context) (int, error) {
	s.reattr.Lock()
	defer s.reattr.Unlock()

	changed, err := s.Events.Reattribute(func(ev *models.Event) *models.Place {
		if ev.Lat == nil || ev.Lon == nil {
			return nil
		}
		if place, ok := s.Resolver.MatchGazetteer(*ev.Lat, *ev.Lon); ok {
			return place
		}
		if ev.Place != nil && ev.Place.Source == models.PlaceSourceUser {
			return s.Resolver.Resolve(ctx, ev.Lat, ev.Lon)
		}
		return nil
	})
	if changed > 0 {
		nuts.L.Infof("[TrackerService] Re-attributed %d events", changed)
		s.mirrorAllEvents()
	}
	return changed, err
}

func (s *TrackerService) mirrorAllEvents() {
	m := s.deps.EventMirror
	if m == nil {
		return
	}
	events := s.Events.List(models.EventQuery{})
	s.async("mirroring re-attributed events", func(ctx context.Context) error {
		for _, ev := range events {
			if err := m.UpsertEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}
