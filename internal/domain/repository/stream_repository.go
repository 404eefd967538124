package repository

import (
	"context"
	"time"

	"github.com/earthwork-discovery/internal/domain"
)

// StreamRepository publishes and consumes run events on Redis Streams.
type StreamRepository interface {
	// PublishToStream marshals data to JSON under the "data" field.
	PublishToStream(ctx context.Context, stream string, data interface{}) error

	// CreateConsumerGroup is idempotent; the stream is created when missing.
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// ConsumeBatch reads up to count new messages without blocking for long.
	ConsumeBatch(ctx context.Context, stream, group, consumer string, count int) ([]domain.StreamMessage, error)

	// ClaimPending takes over up to count delivered but unacknowledged
	// messages that have been idle for at least minIdle.
	ClaimPending(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int) ([]domain.StreamMessage, error)

	AckMessage(ctx context.Context, stream, group, messageID string) error
}
