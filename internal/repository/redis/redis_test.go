package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEvent(t *testing.T) {
	ev := &models.Event{ID: 3, Type: models.EventLanding, Hex: "3e0fe9", Time: time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)}
	body, err := encode(&Message{Kind: KindEvent, Event: ev, Hex: ev.Hex})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "event", decoded["kind"])
	assert.Equal(t, "3e0fe9", decoded["hex"])
	assert.NotEmpty(t, decoded["sentAt"])
	assert.Equal(t, "landing", decoded["event"].(map[string]any)["type"])
	assert.NotContains(t, decoded, "reading")
}

func TestVehicleKey(t *testing.T) {
	assert.Equal(t, "flightwatch:latest:3e0fe9", VehicleKey("flightwatch:latest", "3e0fe9"))
}

func TestUnreachableServer(t *testing.T) {
	p := NewPublisher(config.RedisConfig{Host: "127.0.0.1", Port: 1, Channel: "events", LatestKey: "latest"})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.Ping(ctx)
	require.Error(t, err)
	apiErr := errors.AsAPIError(err, "unexpected")
	require.NotNil(t, apiErr)
	assert.Equal(t, errors.ErrorTypeUnavailable, apiErr.Type)

	assert.Error(t, p.PublishEvent(ctx, &models.Event{Hex: "3e0fe9"}))
}
