package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	Channel          = "analyst:iplists:events"
	publishTimeout   = 5 * time.Second
	TypeListCreated  = "list.created"
	TypeListUpdated  = "list.updated"
	TypeListDeleted  = "list.deleted"
	TypeItemsAdded   = "list.items_added"
	TypeItemsRemoved = "list.items_removed"
)

// Event describes one change to an IP list.
type Event struct {
	Type  string    `json:"type"`
	List  string    `json:"list"`
	IPs   []string  `json:"ips,omitempty"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events. It is used when no redis URL is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: Channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", event.Type, err)
	}

	opCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.client.Publish(opCtx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.Events = append(r.Events, event)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
