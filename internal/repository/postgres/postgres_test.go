package postgres

import (
	"testing"
	"time"

	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEventRowCarriesPlace(t *testing.T) {
	ev := &models.Event{
		ID:   7,
		Type: models.EventTakeoff,
		Time: time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC),
		Hex:  "3e0fe9",
		Lat:  models.Float(47.1),
		Lon:  models.Float(8.2),
		Place: &models.Place{
			Name:   "Home field",
			Type:   "airfield",
			Source: models.PlaceSourceUser,
		},
	}
	row := toEventRow(ev)
	assert.Equal(t, int64(7), row.ID)
	assert.Equal(t, "Home field", row.PlaceName)
	assert.Equal(t, "airfield", row.PlaceType)
	assert.Equal(t, "user", row.PlaceSource)

	ev.Place = nil
	row = toEventRow(ev)
	assert.Empty(t, row.PlaceName)
	assert.Empty(t, row.PlaceSource)
}

func TestDSN(t *testing.T) {
	dsn := database.DSN(config.PostgresConfig{
		Host: "db", Port: 5432, User: "fw", Password: "secret", DBName: "flights", SSLMode: "disable",
	})
	assert.Equal(t, "host=db port=5432 user=fw password=secret dbname=flights sslmode=disable", dsn)
}

func TestSchemaCoversMirrorTables(t *testing.T) {
	joined := ""
	for _, stmt := range schema {
		joined += stmt
	}
	assert.Contains(t, joined, "flight_events")
	assert.Contains(t, joined, "flight_readings")
	assert.Contains(t, joined, "place_name")
}
