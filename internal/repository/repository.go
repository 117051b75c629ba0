// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// SnapshotStore keeps whole-file JSON snapshots of the engine state
type SnapshotStore interface {
	LoadLatest() (*models.Reading, error)
	SaveLatest(r *models.Reading) error
	LoadEvents() ([]*models.Event, error)
	SaveEvents(events []*models.Event) error
	LoadPlaces() ([]*models.GazetteerEntry, error)
	SavePlaces(entries []*models.GazetteerEntry) error
	LoadTarget() (*models.Target, error)
	SaveTarget(t *models.Target) error
}

// ReadingLog is the capped append-only log of online readings per vehicle
type ReadingLog interface {
	Append(r *models.Reading) error
	Read(hex string, limit int) ([]*models.Reading, error)
	Vehicles() ([]string, error)
	Delete(hex string) error
}

// TraceStore holds one raw archive file per vehicle and UTC day
type TraceStore interface {
	HasDay(hex string, day time.Time) (bool, error)
	SaveDay(hex string, day time.Time, body []byte) error
	ListDays(hex string) ([]time.Time, error)
	ReadDay(hex string, day time.Time) ([]byte, error)
	DeleteVehicle(hex string) error
}

// ReadingMirror receives a copy of every logged reading
type ReadingMirror interface {
	InsertReading(ctx context.Context, r *models.Reading) error
	DeleteByHex(ctx context.Context, hex string, tx database.Transaction) error
}

// EventMirror receives a copy of every event
type EventMirror interface {
	UpsertEvent(ctx context.Context, ev *models.Event) error
	DeleteEventsByHex(ctx context.Context, hex string, tx database.Transaction) error
}
