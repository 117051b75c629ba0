package postgres

import (
	"context"

	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS flight_events (
		id            BIGINT PRIMARY KEY,
		type          TEXT NOT NULL,
		time          TIMESTAMPTZ NOT NULL,
		hex           TEXT NOT NULL,
		callsign      TEXT NOT NULL DEFAULT '',
		lat           DOUBLE PRECISION,
		lon           DOUBLE PRECISION,
		altitude      DOUBLE PRECISION,
		ground_speed  DOUBLE PRECISION,
		last_seen     INTEGER,
		place_name    TEXT NOT NULL DEFAULT '',
		place_type    TEXT NOT NULL DEFAULT '',
		place_source  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS flight_events_hex_time_idx ON flight_events (hex, time)`,
	`CREATE TABLE IF NOT EXISTS flight_readings (
		time           TIMESTAMPTZ NOT NULL,
		hex            TEXT NOT NULL,
		callsign       TEXT NOT NULL DEFAULT '',
		registration   TEXT NOT NULL DEFAULT '',
		aircraft_type  TEXT NOT NULL DEFAULT '',
		ground_speed   DOUBLE PRECISION,
		altitude       DOUBLE PRECISION,
		vertical_rate  DOUBLE PRECISION,
		heading        DOUBLE PRECISION,
		lat            DOUBLE PRECISION,
		lon            DOUBLE PRECISION,
		last_seen      INTEGER,
		PRIMARY KEY (hex, time)
	)`,
}

// Migrate creates the mirror tables when they do not exist
func Migrate(ctx context.Context, db database.DB) error {
	for _, stmt := range schema {
		if _, err := db.GetDB().ExecContext(ctx, stmt); err != nil {
			return errors.NewStorageError("failed to apply schema", err)
		}
	}
	nuts.L.Infof("[PostgresDB] Schema ready")
	return nil
}
