package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

type OutboxWorkerConfig struct {
	Interval   time.Duration
	BatchSize  int
	ClaimTTL   time.Duration
	MaxRetries int
}

// OutboxWorker drains pending vendor notifications to the broker.
type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	cfg       OutboxWorkerConfig
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, cfg OutboxWorkerConfig) *OutboxWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &OutboxWorker{
		logger:    logger,
		outbox:    outbox,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Run polls until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "outbox_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type BatchResult struct {
	Published    int
	Failed       int
	DeadLettered int
}

// ProcessOnce leases one batch and publishes it.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (BatchResult, error) {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.cfg.BatchSize, claimToken, time.Now().UTC().Add(w.cfg.ClaimTTL))
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, rec := range records {
		now := time.Now().UTC()
		if rec.RetryCount >= w.cfg.MaxRetries {
			result.DeadLettered++
			_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, "retry threshold reached before publish", now)
			continue
		}

		err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey)
		if err == nil {
			result.Published++
			_ = w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now)
			continue
		}

		result.Failed++
		attempts := rec.RetryCount + 1
		attrs := []any{
			"module", "events.outbox_worker",
			"layer", "adapter",
			"operation", "publish_event",
			"outcome", "failure",
			"outbox_id", rec.OutboxID,
			"event_type", rec.EventType,
			"retry_count", attempts,
			"error", err,
		}
		if attempts >= w.cfg.MaxRetries {
			result.DeadLettered++
			w.logger.ErrorContext(ctx, "vendor notification moved to dead letter", attrs...)
			_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, err.Error(), now)
			continue
		}
		w.logger.WarnContext(ctx, "vendor notification publish failed; retry scheduled", attrs...)
		_ = w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, err.Error(), now)
	}

	if len(records) > 0 {
		w.logger.InfoContext(ctx, "outbox batch processed",
			"module", "events.outbox_worker",
			"layer", "adapter",
			"operation", "outbox_process_once",
			"outcome", "success",
			"batch_size", len(records),
			"published_count", result.Published,
			"failed_count", result.Failed,
			"dead_lettered_count", result.DeadLettered,
		)
	}
	return result, nil
}
