package trackerservice

import (
	"context"
	"strconv"
	"time"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/normalize"
	nuts "github.com/vaudience/go-nuts"
)

func (s *TrackerService) Target() models.Target {
	return models.Target{Hex: s.Driver.Target()}
}

// SetTarget switches the scraped vehicle, persists the choice and starts
// the backfill of its history.
func (s *TrackerService) SetTarget(ctx context.Context, hex string) (*models.Target, error) {
	hex = normalize.Hex(hex)
	if !models.ValidHex(hex) {
		return nil, errors.NewValidationError("invalid vehicle hex", nil).WithDetails(map[string]string{"hex": hex})
	}
	if err := s.Driver.SetTarget(ctx, hex); err != nil {
		return nil, errors.NewValidationError(err.Error(), err)
	}
	target := &models.Target{Hex: hex, UpdatedAt: time.Now().UTC()}
	if err := s.Snapshots.SaveTarget(target); err != nil {
		return nil, err
	}
	s.triggerBackfill(hex)
	nuts.L.Infof("[TrackerService] Target set to %s", hex)
	return target, nil
}

func (s *TrackerService) triggerBackfill(hex string) {
	if !s.Config.Current().History.Enabled || !models.ValidHex(hex) {
		return
	}
	if !s.Backfill.Trigger(hex) {
		nuts.L.Infof("[TrackerService] Backfill for %s already running", hex)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
