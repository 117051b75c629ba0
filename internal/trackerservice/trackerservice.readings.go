package trackerservice

import (
	"context"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/monitoring"
)

const defaultLogLimit = 500

// Latest returns the last reading with a hex, or nil before the first one
func (s *TrackerService) Latest() *models.Reading {
	return s.latest.Load()
}

func (s *TrackerService) Status() models.EngineStatus {
	return s.Driver.Status()
}

// QueryLog returns the logged readings of q.Hex, newest last
func (s *TrackerService) QueryLog(q models.LogQuery) ([]*models.Reading, error) {
	if !models.ValidHex(q.Hex) {
		return nil, errors.NewValidationError("invalid vehicle hex", nil).WithDetails(map[string]string{"hex": q.Hex})
	}
	if q.Limit <= 0 {
		q.Limit = defaultLogLimit
	}
	return s.ReadingLog.Read(q.Hex, q.Limit)
}

// LoggedVehicles lists the vehicles with a reading log
func (s *TrackerService) LoggedVehicles() ([]string, error) {
	return s.ReadingLog.Vehicles()
}

func (s *TrackerService) QueryEvents(q models.EventQuery) ([]*models.Event, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, errors.NewValidationError("invalid event type", nil).WithDetails(map[string]string{"type": string(q.Type)})
	}
	if q.Hex != "" && !models.ValidHex(q.Hex) {
		return nil, errors.NewValidationError("invalid vehicle hex", nil).WithDetails(map[string]string{"hex": q.Hex})
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	return s.Events.List(q), nil
}

// SubscribeEvents streams new events until cancel is called
func (s *TrackerService) SubscribeEvents(buffer int) (<-chan *models.Event, func()) {
	return s.Events.Subscribe(buffer)
}

func (s *TrackerService) onLatest(r *models.Reading) {
	s.latest.Store(r)
	if p := s.deps.Publisher; p != nil {
		s.async("publishing latest reading", func(ctx context.Context) error {
			return p.SetLatest(ctx, r)
		})
	}
}

func (s *TrackerService) onLogged(r *models.Reading) {
	if m := s.deps.ReadingMirror; m != nil {
		s.async("mirroring reading", func(ctx context.Context) error {
			return m.InsertReading(ctx, r)
		})
	}
}

func (s *TrackerService) onEvent(ev *models.Event) {
	s.Monitoring.RecordEvent(monitoring.EventsDetected, map[string]string{
		"id":   formatID(ev.ID),
		"type": string(ev.Type),
		"hex":  ev.Hex,
	})
	s.Monitoring.Add("events_"+string(ev.Type), 1)

	if m := s.deps.EventMirror; m != nil {
		s.async("mirroring event", func(ctx context.Context) error {
			return m.UpsertEvent(ctx, ev)
		})
	}
	if p := s.deps.Publisher; p != nil {
		s.async("publishing event", func(ctx context.Context) error {
			return p.PublishEvent(ctx, ev)
		})
	}
}
