// Package cleanup removes every record of a vehicle across the stores.
package cleanup

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/itsatony/flightwatch/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const EventVehicleDeleted = "vehicle.deleted"

// EventStore is the in-memory event log
type EventStore interface {
	DeleteVehicle(hex string) (int, error)
}

// Forgetter drops in-memory state of a vehicle
type Forgetter interface {
	Forget(hex string)
}

// Options wires the stores. The SQL mirrors are optional.
type Options struct {
	ReadingLog    repository.ReadingLog
	Traces        repository.TraceStore
	Events        EventStore
	Detector      Forgetter
	Backfill      Forgetter
	Tx            database.Repository
	EventMirror   repository.EventMirror
	ReadingMirror repository.ReadingMirror
}

// Report lists what a deletion removed
type Report struct {
	Hex           string `json:"hex"`
	EventsRemoved int    `json:"eventsRemoved"`
	SQLMirrored   bool   `json:"sqlMirrored"`
}

// CleanupService coordinates deletion of per-vehicle data
type CleanupService struct {
	opts     Options
	events   *nuts.EventEmitter
	handlers atomic.Int64
}

func New(opts Options) *CleanupService {
	return &CleanupService{
		opts:   opts,
		events: nuts.NewEventEmitter(),
	}
}

// DeleteVehicle deletes a vehicle and all its associated data
func (s *CleanupService) DeleteVehicle(ctx context.Context, hex string) (*Report, error) {
	if !models.ValidHex(hex) {
		return nil, errors.NewValidationError("invalid vehicle hex", nil).WithDetails(map[string]string{"hex": hex})
	}
	report := &Report{Hex: hex}

	if err := s.deleteMirrored(ctx, hex); err != nil {
		return nil, err
	}
	report.SQLMirrored = s.opts.Tx != nil

	removed, err := s.opts.Events.DeleteVehicle(hex)
	if err != nil {
		return nil, fmt.Errorf("failed to delete events: %w", err)
	}
	report.EventsRemoved = removed

	if err := s.opts.ReadingLog.Delete(hex); err != nil {
		return nil, fmt.Errorf("failed to delete reading log: %w", err)
	}
	if err := s.opts.Traces.DeleteVehicle(hex); err != nil {
		return nil, fmt.Errorf("failed to delete history: %w", err)
	}
	if s.opts.Backfill != nil {
		s.opts.Backfill.Forget(hex)
	}
	if s.opts.Detector != nil {
		s.opts.Detector.Forget(hex)
	}

	nuts.L.Infof("[Cleanup] Deleted vehicle %s (%d events)", hex, removed)
	if err := s.events.Emit(EventVehicleDeleted, hex); err != nil {
		nuts.L.Errorf("[Cleanup] Failed to notify %s listeners for %s: %v", EventVehicleDeleted, hex, err)
	}
	return report, nil
}

func (s *CleanupService) deleteMirrored(ctx context.Context, hex string) error {
	if s.opts.Tx == nil {
		return nil
	}
	tx, err := s.opts.Tx.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if transaction is committed

	if s.opts.EventMirror != nil {
		if err := s.opts.EventMirror.DeleteEventsByHex(ctx, hex, tx); err != nil {
			return fmt.Errorf("failed to delete mirrored events: %w", err)
		}
	}
	if s.opts.ReadingMirror != nil {
		if err := s.opts.ReadingMirror.DeleteByHex(ctx, hex, tx); err != nil {
			return fmt.Errorf("failed to delete mirrored readings: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("failed to commit transaction", err)
	}
	return nil
}

// OnCleanup registers a callback for cleanup events. Handlers run
// synchronously after the stores have been cleared.
func (s *CleanupService) OnCleanup(event string, handler func(hex string)) error {
	id := fmt.Sprintf("cleanup_handler_%d", s.handlers.Add(1))
	if _, err := s.events.On(event, id, handler); err != nil {
		return fmt.Errorf("failed to register %s handler: %w", event, err)
	}
	return nil
}
