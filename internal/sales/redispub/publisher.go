// Package redispub publishes sale lifecycle events on a Redis pub/sub channel.
package redispub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"sales_engine/internal/sales"
)

// Client is the subset of the go-redis client used by Publisher.
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// Envelope is the JSON message sent for every event.
type Envelope struct {
	Kind       sales.EventKind `json:"kind"`
	SaleID     string          `json:"sale_id"`
	ItemID     string          `json:"item_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher implements sales.Publisher over Redis PUBLISH.
type Publisher struct {
	rdb     Client
	channel string
}

// New creates a publisher sending to channel.
func New(rdb Client, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

// Dial connects to addr and checks the connection with a PING.
func Dial(ctx context.Context, addr, channel string) (*Publisher, *goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, channel), rdb, nil
}

// Encode builds the wire envelope for e.
func Encode(e sales.Event) ([]byte, error) {
	env := Envelope{
		Kind:       e.Kind(),
		SaleID:     e.SaleID().String(),
		OccurredAt: e.OccurredAt().UTC(),
	}
	if itemID := sales.ItemIDOf(e); itemID != uuid.Nil {
		env.ItemID = itemID.String()
	}
	return json.Marshal(env)
}

func (p *Publisher) Publish(ctx context.Context, e sales.Event) error {
	raw, err := Encode(e)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", e.Kind(), err)
	}
	return nil
}
