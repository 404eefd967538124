package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/domain/repository"
	"github.com/earthwork-discovery/internal/repository/filesystem"
	"github.com/earthwork-discovery/internal/worker"
	"go.uber.org/zap"
)

const (
	maxBatchSize    = 20
	emptyQueueSleep = 500 * time.Millisecond
	errorSleep      = time.Second

	// A pending message is retried once it has been idle this long.
	pendingMinIdle = 30 * time.Second
	claimInterval  = 30 * time.Second
)

var errPermanent = errors.New("unprocessable run event")

// Worker loads finished runs announced on the completion stream into the
// results store. Events only carry paths; the checkpoint and hotspot files
// are read from the run directory.
type Worker struct {
	*worker.BaseWorker
	stream       repository.StreamRepository
	results      repository.ResultsRepository
	streamName   string
	consumerName string
	lastClaim    time.Time
}

func NewWorker(
	stream repository.StreamRepository,
	results repository.ResultsRepository,
	streamName, consumerGroup string,
	logger *zap.Logger,
) *Worker {
	hostname, _ := os.Hostname()
	return &Worker{
		BaseWorker:   worker.NewBaseWorker("run-ingest", consumerGroup, logger),
		stream:       stream,
		results:      results,
		streamName:   streamName,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting run ingest worker",
		zap.String("stream", w.streamName),
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
	)

	if err := w.stream.CreateConsumerGroup(ctx, w.streamName, w.ConsumerGroup()); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Since(w.lastClaim) >= claimInterval {
			w.lastClaim = time.Now()
			if _, err := w.RetryPending(ctx); err != nil {
				logger.Error("Failed to retry pending runs", zap.Error(err))
			}
		}

		processed, err := w.ProcessBatch(ctx)
		wait := time.Duration(0)
		switch {
		case err != nil:
			logger.Error("Failed to process batch", zap.Error(err))
			wait = errorSleep
		case processed == 0:
			wait = emptyQueueSleep
		}
		if wait > 0 && !w.Pause(ctx, wait) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Info("Worker stopped")
			return nil
		}
	}
}

// ProcessBatch handles up to one batch of events and returns how many
// messages were read. Messages that can never succeed are acknowledged and
// dropped; a store failure leaves the message pending.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := w.stream.ConsumeBatch(ctx, w.streamName, w.ConsumerGroup(), w.consumerName, maxBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}
	w.handle(ctx, messages)
	return len(messages), nil
}

// RetryPending claims messages whose earlier delivery was never
// acknowledged, on this or a departed consumer, and handles them again.
func (w *Worker) RetryPending(ctx context.Context) (int, error) {
	messages, err := w.stream.ClaimPending(ctx, w.streamName, w.ConsumerGroup(), w.consumerName, pendingMinIdle, maxBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending messages: %w", err)
	}
	w.handle(ctx, messages)
	return len(messages), nil
}

func (w *Worker) handle(ctx context.Context, messages []domain.StreamMessage) {
	if len(messages) == 0 {
		return
	}

	stored := 0
	for _, msg := range messages {
		err := w.ingest(ctx, msg)
		switch {
		case err == nil:
			stored++
		case errors.Is(err, errPermanent):
			w.Logger().Warn("Dropping run event", zap.String("message_id", msg.ID), zap.Error(err))
		default:
			w.Logger().Error("Failed to store run", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		if err := w.stream.AckMessage(ctx, w.streamName, w.ConsumerGroup(), msg.ID); err != nil {
			w.Logger().Error("Failed to ack message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	w.Logger().Info("Batch processed",
		zap.Int("messages", len(messages)),
		zap.Int("stored", stored),
	)
}

func (w *Worker) ingest(ctx context.Context, msg domain.StreamMessage) error {
	var ev domain.RunCompletedEvent
	if err := json.Unmarshal([]byte(msg.Data), &ev); err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	if ev.CheckpointPath == "" {
		return fmt.Errorf("%w: run %s has no checkpoint path", errPermanent, ev.RunID)
	}

	cp, err := filesystem.ReadCheckpoint(ev.CheckpointPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	var hotspots []domain.Hotspot
	if path, ok := cp.Outputs[domain.OutputHotspots]; ok {
		hotspots, err = filesystem.ReadHotspots(path)
		if err != nil {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}
	}

	if err := w.results.SaveRun(ctx, cp, hotspots); err != nil {
		return err
	}
	w.Logger().Info("Run stored",
		zap.Stringer("run_id", cp.RunID),
		zap.Int("hotspots", len(hotspots)),
	)
	return nil
}
