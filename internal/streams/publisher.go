// Package streams publishes generation lifecycle events to a Redis stream so
// downstream consumers (notification senders, analytics) can react without
// coupling to the generation pipeline.
package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream name constants
const (
	StreamGenerationEvents = "generation:events"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// GenerationEvent is the payload published when a pipeline run finishes.
type GenerationEvent struct {
	UserID             uint   `json:"user_id"`
	PostID             string `json:"post_id"`
	Type               string `json:"type"`
	Period             string `json:"period"`
	Version            int    `json:"version"`
	GenerationType     string `json:"generation_type"`
	PlatformsGenerated int    `json:"platforms_generated"`
	PlatformsFailed    int    `json:"platforms_failed"`
}

// Publisher publishes generation events to Redis Streams. Publishing is
// fire-and-forget: a failed XAdd is logged, never surfaced to the pipeline.
type Publisher struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewPublisher creates a Publisher from a Redis URL.
func NewPublisher(redisURL string, log *slog.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &Publisher{rdb: redis.NewClient(opts), log: log.With("component", "streams")}, nil
}

// GenerationCompleted publishes the event. Best effort with a short internal
// timeout; callers do not wait on Redis.
func (p *Publisher) GenerationCompleted(event GenerationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("Failed to marshal generation event", "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamGenerationEvents,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})
	if result.Err() != nil {
		p.log.Warn("Failed to publish generation event",
			"post_id", event.PostID, "error", result.Err().Error())
	}
}

// Close closes the Redis client connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
