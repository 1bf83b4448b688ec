package producer

import (
	"context"
	"errors"
	"time"

	"github.com/jesser-selmi/idos-front/internal/messaging/kafka"
	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	batchSize = 50

	purgeInterval = time.Hour
	sentRetention = 7 * 24 * time.Hour
)

// ProcessOutboxEvents polls the outbox until ctx is cancelled.
func ProcessOutboxEvents(
	ctx context.Context,
	repo kafka.OutboxRepository,
	publisher *Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	pollInterval time.Duration,
) {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	log := logger.Named("kafka.producer.worker")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	purge := time.NewTicker(purgeInterval)
	defer purge.Stop()

	log.Info("outbox worker started", zap.Duration("poll_interval", pollInterval))

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := ProcessPendingEvents(ctx, repo, publisher, m, log); err != nil {
				log.Error("process outbox events failed", zap.Error(err))
			}
		case <-purge.C:
			PurgeSentEvents(ctx, repo, log, time.Now().Add(-sentRetention))
		}
	}
}

// ProcessPendingEvents publishes one batch and returns how many were sent.
// An open circuit ends the batch early and leaves the remaining events
// untouched.
func ProcessPendingEvents(
	ctx context.Context,
	repo kafka.OutboxRepository,
	publisher *Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) (int, error) {
	events, err := repo.ListPending(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	logger.Debug("processing pending outbox events", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		if err := publisher.Publish(ctx, event); err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				logger.Warn("kafka circuit open, deferring remaining outbox events",
					zap.Int("remaining", len(events)-sent),
				)
				m.ObserveOutbox(event.EventType, "deferred")
				return sent, nil
			}

			logger.Error("publish outbox event failed",
				zap.String("outbox_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.String("topic", event.Topic),
				zap.Error(err),
			)
			m.ObserveOutbox(event.EventType, "failed")
			if markErr := repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				logger.Error("mark outbox failed failed", zap.String("outbox_id", event.ID), zap.Error(markErr))
			}
			continue
		}

		if err := repo.MarkSent(ctx, event.ID); err != nil {
			logger.Error("mark outbox sent failed",
				zap.String("outbox_id", event.ID),
				zap.Error(err),
			)
			continue
		}

		sent++
		m.ObserveOutbox(event.EventType, "sent")
		logger.Info("outbox event sent",
			zap.String("outbox_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.String("request_id", event.RequestID),
			zap.String("topic", event.Topic),
		)
	}

	return sent, nil
}

// PurgeSentEvents removes delivered events older than cutoff.
func PurgeSentEvents(ctx context.Context, repo kafka.OutboxRepository, logger *zap.Logger, cutoff time.Time) int64 {
	n, err := repo.PurgeSent(ctx, cutoff)
	if err != nil {
		logger.Error("purge sent outbox events failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		logger.Info("purged sent outbox events", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n
}
