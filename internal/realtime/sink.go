package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
)

// CostPush is the payload written to the sync boundary after a debounced
// period-cost computation.
type CostPush struct {
	Module      string            `json:"module"`
	Costs       aggregate.Buckets `json:"costs"`
	RecordCount int               `json:"recordCount"`
}

// ChangeEvent is the payload published for a module data change.
type ChangeEvent struct {
	Module    string    `json:"module"`
	Action    string    `json:"action"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink is the external write boundary. Pushes are fire-and-forget from the
// scheduler's perspective: failures are logged, never propagated.
type Sink interface {
	PushPeriodCosts(ctx context.Context, push CostPush) error
	PublishChange(ctx context.Context, event ChangeEvent) error
}

// Redis channels carrying sync payloads to other processes.
const (
	ChannelPeriodCosts = "pnl.period_costs"
	ChannelChanges     = "pnl.changes"
	ChannelUpdates     = "pnl.updates"
)

// UpdatePublisher returns a hub publisher that mirrors update triggers onto
// the Redis updates channel. Publish failures are logged and dropped.
func UpdatePublisher(client *redis.Client, logger *slog.Logger) func(Update) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(u Update) {
		payload, err := json.Marshal(u)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Publish(ctx, ChannelUpdates, payload).Err(); err != nil {
			logger.Warn("update publish failed",
				slog.String("source", u.Source),
				slog.Any("error", err))
		}
	}
}

// RedisSink publishes sync payloads on Redis channels so sibling processes
// can follow updates without polling.
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink wraps a Redis client as a Sink.
func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

// PushPeriodCosts publishes the cost snapshot.
func (s *RedisSink) PushPeriodCosts(ctx context.Context, push CostPush) error {
	if s == nil || s.client == nil {
		return nil
	}
	payload, err := json.Marshal(push)
	if err != nil {
		return fmt.Errorf("realtime: marshal cost push: %w", err)
	}
	return s.client.Publish(ctx, ChannelPeriodCosts, payload).Err()
}

// PublishChange publishes the change event.
func (s *RedisSink) PublishChange(ctx context.Context, event ChangeEvent) error {
	if s == nil || s.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime: marshal change event: %w", err)
	}
	return s.client.Publish(ctx, ChannelChanges, payload).Err()
}

// MultiSink fans writes out to several sinks, returning the first error
// after attempting all of them.
type MultiSink []Sink

// PushPeriodCosts writes the snapshot to every sink.
func (m MultiSink) PushPeriodCosts(ctx context.Context, push CostPush) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.PushPeriodCosts(ctx, push); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishChange writes the event to every sink.
func (m MultiSink) PublishChange(ctx context.Context, event ChangeEvent) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.PublishChange(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
