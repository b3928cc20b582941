// Package events publishes engine events to Redis for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/matka-platform/result-engine/pkg/logger"
)

// Event channel names.
const (
	OpenDeclared  = "result.open.declared"
	CloseDeclared = "result.close.declared"
	BetsSettled   = "bets.settled"
)

// Publisher fans engine events out over a Redis channel. A nil Publisher is
// valid and drops every event, so callers never need to guard.
type Publisher struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

// NewPublisher connects to Redis at addr. An empty addr disables publishing.
func NewPublisher(addr, channel string, log *logger.Logger) *Publisher {
	if addr == "" {
		return nil
	}
	if log == nil {
		log = logger.NewDefault("events")
	}
	if channel == "" {
		channel = "result-engine.events"
	}
	return &Publisher{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
		log:     log,
	}
}

// Publish emits one event. Failures are logged and never propagate; event
// delivery is best effort.
func (p *Publisher) Publish(ctx context.Context, event string, payload map[string]any) {
	if p == nil {
		return
	}

	body := map[string]any{
		"event":   event,
		"payload": payload,
		"at":      time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(body)
	if err != nil {
		p.log.WithError(err).WithField("event", event).Warn("encode event failed")
		return
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.log.WithError(err).WithField("event", event).Warn("publish event failed")
	}
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
