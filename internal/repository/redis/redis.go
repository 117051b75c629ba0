// Package redis publishes events and the latest reading to Redis for other
// consumers on the same host.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	goredis "github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Message is what subscribers of the event channel receive
type Message struct {
	Kind    string          `json:"kind"`
	Event   *models.Event   `json:"event,omitempty"`
	Reading *models.Reading `json:"reading,omitempty"`
	Hex     string          `json:"hex,omitempty"`
	SentAt  time.Time       `json:"sentAt"`
}

const (
	KindEvent          = "event"
	KindVehicleDeleted = "vehicle.deleted"
)

type Publisher struct {
	client    *goredis.Client
	channel   string
	latestKey string
}

func NewPublisher(cfg config.RedisConfig) *Publisher {
	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	nuts.L.Infof("[Redis] Publishing to %s on %s:%d", cfg.Channel, cfg.Host, cfg.Port)
	return &Publisher{client: client, channel: cfg.Channel, latestKey: cfg.LatestKey}
}

func (p *Publisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return errors.NewUnavailableError("redis is not reachable", err)
	}
	return nil
}

func (p *Publisher) PublishEvent(ctx context.Context, ev *models.Event) error {
	return p.publish(ctx, &Message{Kind: KindEvent, Event: ev, Hex: ev.Hex})
}

// PublishVehicleDeleted tells subscribers that every record of hex is gone
func (p *Publisher) PublishVehicleDeleted(ctx context.Context, hex string) error {
	return p.publish(ctx, &Message{Kind: KindVehicleDeleted, Hex: hex})
}

// SetLatest stores the latest reading under the latest key and per vehicle
func (p *Publisher) SetLatest(ctx context.Context, r *models.Reading) error {
	body, err := json.Marshal(r)
	if err != nil {
		return errors.NewInternalError("failed to encode reading", err)
	}
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.latestKey, body, 0)
	pipe.Set(ctx, VehicleKey(p.latestKey, r.Hex), body, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.NewStorageError("failed to store latest reading", err)
	}
	return nil
}

func (p *Publisher) DeleteVehicle(ctx context.Context, hex string) error {
	if err := p.client.Del(ctx, VehicleKey(p.latestKey, hex)).Err(); err != nil {
		return errors.NewStorageError("failed to delete latest reading", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

func (p *Publisher) publish(ctx context.Context, msg *Message) error {
	body, err := encode(msg)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return errors.NewStorageError("failed to publish to "+p.channel, err)
	}
	return nil
}

func encode(msg *Message) ([]byte, error) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.NewInternalError("failed to encode message", err)
	}
	return body, nil
}

// VehicleKey is the per vehicle variant of the latest key
func VehicleKey(latestKey, hex string) string {
	return latestKey + ":" + hex
}
