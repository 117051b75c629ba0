package postgres

import (
	"context"

	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
)

// ReadingRepo mirrors online readings into flight_readings
type ReadingRepo struct {
	PostgresBaseRepo
}

func NewReadingRepository(db database.DB) *ReadingRepo {
	return &ReadingRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
}

func (r *ReadingRepo) InsertReading(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO flight_readings (
			time, hex, callsign, registration, aircraft_type, ground_speed,
			altitude, vertical_rate, heading, lat, lon, last_seen
		) VALUES (
			:time, :hex, :callsign, :registration, :aircraft_type, :ground_speed,
			:altitude, :vertical_rate, :heading, :lat, :lon, :last_seen
		)
		ON CONFLICT (hex, time) DO NOTHING`

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, reading); err != nil {
		return errors.NewStorageError("failed to insert reading", err)
	}
	return nil
}

// Recent returns the newest readings of hex, oldest first
func (r *ReadingRepo) Recent(ctx context.Context, hex string, limit int) ([]*models.Reading, error) {
	var readings []*models.Reading
	query := `
		SELECT * FROM (
			SELECT * FROM flight_readings WHERE hex = $1 ORDER BY time DESC LIMIT $2
		) recent ORDER BY time`
	if err := r.db.GetDB().SelectContext(ctx, &readings, query, hex, limit); err != nil {
		return nil, errors.NewStorageError("failed to list readings", err)
	}
	return readings, nil
}

// DeleteByHex removes the readings of hex, inside tx when one is given
func (r *ReadingRepo) DeleteByHex(ctx context.Context, hex string, tx database.Transaction) error {
	if _, err := r.exec(ctx, tx, `DELETE FROM flight_readings WHERE hex = $1`, hex); err != nil {
		return errors.NewStorageError("failed to delete readings", err)
	}
	return nil
}
