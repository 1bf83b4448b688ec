package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jesser-selmi/idos-front/internal/events"
	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/jesser-selmi/idos-front/internal/request"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/jesser-selmi/idos-front/internal/user"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	retryBackoff    = 200 * time.Millisecond
	maxRetryBackoff = 30 * time.Second
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type BalanceDebiter interface {
	ApplyBalanceDebit(ctx context.Context, in user.BalanceDebitInput) (bool, error)
}

// ConsumeRequestLifecycle debits user balances for every request that
// reaches ACCEPTED. It returns when ctx is cancelled.
func ConsumeRequestLifecycle(
	ctx context.Context,
	reader MessageReader,
	debiter BalanceDebiter,
	m *metrics.Metrics,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.request_lifecycle")
	log.Info("request lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("request lifecycle consumer stopped")
				return
			}
			log.Error("fetch request lifecycle message failed", zap.Error(err))
			continue
		}

		// Committing a later offset would also commit this one, so a
		// transient failure blocks the partition until it succeeds.
		backoff := retryBackoff
		for !HandleRequestLifecycleMessage(ctx, msg, debiter, m, log) {
			log.Warn("retrying request lifecycle message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				log.Info("request lifecycle consumer stopped")
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxRetryBackoff)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit request lifecycle message failed", zap.Error(err))
		}
	}
}

// HandleRequestLifecycleMessage reports whether msg is done with and may be
// committed. Transient failures return false and the caller retries msg.
func HandleRequestLifecycleMessage(
	ctx context.Context,
	msg kafkago.Message,
	debiter BalanceDebiter,
	m *metrics.Metrics,
	log *zap.Logger,
) bool {
	var event events.RequestStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode request lifecycle event failed",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return true
	}

	if event.EventType != events.EventRequestStatusChanged || event.To != string(request.StatusAccepted) {
		return true
	}

	applied, err := debiter.ApplyBalanceDebit(ctx, user.BalanceDebitInput{
		RequestID: event.RequestID,
		UserID:    event.UserID,
		Type:      request.Type(event.Type),
		Days:      event.Duration,
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
			log.Warn("balance debit rejected, skipping",
				zap.String("request_id", event.RequestID),
				zap.String("user_id", event.UserID),
				zap.Error(err),
			)
			m.ObserveBalanceDebit(event.Type, "rejected")
			return true
		}

		log.Error("balance debit failed",
			zap.String("request_id", event.RequestID),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		m.ObserveBalanceDebit(event.Type, "failed")
		return false
	}

	if !applied {
		log.Warn("balance already debited for request, skipping",
			zap.String("request_id", event.RequestID),
		)
		m.ObserveBalanceDebit(event.Type, "duplicate")
		return true
	}

	m.ObserveBalanceDebit(event.Type, "applied")
	log.Info("balance debited from request_status_changed event",
		zap.String("request_id", event.RequestID),
		zap.String("user_id", event.UserID),
		zap.String("type", event.Type),
		zap.Int("days", event.Duration),
	)
	return true
}
