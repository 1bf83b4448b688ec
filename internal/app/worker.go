package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jesser-selmi/idos-front/internal/config"
	"github.com/jesser-selmi/idos-front/internal/messaging/kafka"
	"github.com/jesser-selmi/idos-front/internal/messaging/kafka/producer"
	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/jesser-selmi/idos-front/internal/shared/connection"
	"go.uber.org/zap"
)

// RunWorker relays outbox rows to kafka until SIGINT or SIGTERM.
func RunWorker(cfg *config.Config) error {
	logger := zap.L().Named("app.worker")

	_, sqlDB, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaWriter, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Brokers, cfg.Kafka.MaxRetries)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)
	publisher := producer.NewPublisher(kafkaWriter, config.NewCircuitBreaker("kafka-producer", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		publisher,
		metrics.New(),
		logger,
		cfg.Kafka.PollInterval,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}
