package postgres

import (
	"context"

	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
)

// EventRepo mirrors the event log into flight_events
type EventRepo struct {
	PostgresBaseRepo
}

func NewEventRepository(db database.DB) *EventRepo {
	return &EventRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
}

type eventRow struct {
	models.Event
	PlaceName   string `db:"place_name"`
	PlaceType   string `db:"place_type"`
	PlaceSource string `db:"place_source"`
}

func toEventRow(ev *models.Event) eventRow {
	row := eventRow{Event: *ev}
	if ev.Place != nil {
		row.PlaceName = ev.Place.Name
		row.PlaceType = ev.Place.Type
		row.PlaceSource = string(ev.Place.Source)
	}
	return row
}

// UpsertEvent inserts ev or refreshes its place attribution
func (r *EventRepo) UpsertEvent(ctx context.Context, ev *models.Event) error {
	query := `
		INSERT INTO flight_events (
			id, type, time, hex, callsign, lat, lon, altitude,
			ground_speed, last_seen, place_name, place_type, place_source
		) VALUES (
			:id, :type, :time, :hex, :callsign, :lat, :lon, :altitude,
			:ground_speed, :last_seen, :place_name, :place_type, :place_source
		)
		ON CONFLICT (id) DO UPDATE SET
			place_name = EXCLUDED.place_name,
			place_type = EXCLUDED.place_type,
			place_source = EXCLUDED.place_source`

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, toEventRow(ev)); err != nil {
		return errors.NewStorageError("failed to upsert event", err)
	}
	return nil
}

// ListByHex returns the mirrored events of hex in time order
func (r *EventRepo) ListByHex(ctx context.Context, hex string) ([]*models.Event, error) {
	var rows []eventRow
	query := `SELECT * FROM flight_events WHERE hex = $1 ORDER BY time, id`
	if err := r.db.GetDB().SelectContext(ctx, &rows, query, hex); err != nil {
		return nil, errors.NewStorageError("failed to list events", err)
	}
	events := make([]*models.Event, 0, len(rows))
	for i := range rows {
		ev := rows[i].Event
		if rows[i].PlaceName != "" {
			ev.Place = &models.Place{
				Name:   rows[i].PlaceName,
				Type:   rows[i].PlaceType,
				Source: models.PlaceSource(rows[i].PlaceSource),
			}
		}
		events = append(events, &ev)
	}
	return events, nil
}

// DeleteEventsByHex removes the events of hex, inside tx when one is given
func (r *EventRepo) DeleteEventsByHex(ctx context.Context, hex string, tx database.Transaction) error {
	if _, err := r.exec(ctx, tx, `DELETE FROM flight_events WHERE hex = $1`, hex); err != nil {
		return errors.NewStorageError("failed to delete events", err)
	}
	return nil
}
