package trackerservice

import (
	"context"
	"time"

	"github.com/itsatony/flightwatch/internal/cleanup"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/monitoring"
	nuts "github.com/vaudience/go-nuts"
)

const dayLayout = "2006-01-02"

// HistoryDays lists the archived days of hex as YYYY-MM-DD
func (s *TrackerService) HistoryDays(hex string) ([]string, error) {
	if !models.ValidHex(hex) {
		return nil, errors.NewValidationError("invalid vehicle hex", nil).WithDetails(map[string]string{"hex": hex})
	}
	days, err := s.Backfill.Days(hex)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format(dayLayout))
	}
	return out, nil
}

// HistoryDay returns the raw archived trace of hex for date (YYYY-MM-DD)
func (s *TrackerService) HistoryDay(hex, date string) ([]byte, error) {
	if !models.ValidHex(hex) {
		return nil, errors.NewValidationError("invalid vehicle hex", nil).WithDetails(map[string]string{"hex": hex})
	}
	day, err := time.Parse(dayLayout, date)
	if err != nil {
		return nil, errors.NewValidationError("invalid date, expected YYYY-MM-DD", err)
	}
	return s.Traces.ReadDay(hex, day)
}

// TriggerBackfill starts a backfill for hex. It reports false when one is
// already running.
func (s *TrackerService) TriggerBackfill(hex string) (bool, error) {
	if !models.ValidHex(hex) {
		return false, errors.NewValidationError("invalid vehicle hex", nil).WithDetails(map[string]string{"hex": hex})
	}
	if !s.Config.Current().History.Enabled {
		return false, errors.NewUnavailableError("history backfill is disabled", nil)
	}
	return s.Backfill.Trigger(hex), nil
}

func (s *TrackerService) DeleteVehicle(ctx context.Context, hex string) (*cleanup.Report, error) {
	if s.Backfill.Running(hex) {
		return nil, errors.NewValidationError("backfill for this vehicle is running", nil)
	}
	return s.Cleanup.DeleteVehicle(ctx, hex)
}

func (s *TrackerService) onVehicleDeleted(hex string) {
	s.Monitoring.RecordEvent(monitoring.VehiclesDeleted, map[string]string{"hex": hex})
	if latest := s.latest.Load(); latest != nil && latest.Hex == hex {
		nuts.L.Infof("[TrackerService] Latest reading belongs to deleted vehicle %s", hex)
	}
	if p := s.deps.Publisher; p != nil {
		s.async("publishing vehicle deletion", func(ctx context.Context) error {
			if err := p.DeleteVehicle(ctx, hex); err != nil {
				return err
			}
			return p.PublishVehicleDeleted(ctx, hex)
		})
	}
}
