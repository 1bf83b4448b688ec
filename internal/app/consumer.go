package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jesser-selmi/idos-front/internal/config"
	"github.com/jesser-selmi/idos-front/internal/events"
	"github.com/jesser-selmi/idos-front/internal/messaging/kafka/consumer"
	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/jesser-selmi/idos-front/internal/rbac"
	"github.com/jesser-selmi/idos-front/internal/rbac/infra"
	"github.com/jesser-selmi/idos-front/internal/shared/connection"
	"github.com/jesser-selmi/idos-front/internal/user"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer applies balance debits for accepted requests until SIGINT or
// SIGTERM.
func RunConsumer(cfg *config.Config) error {
	logger := zap.L().Named("app.consumer")

	gormDB, sqlDB, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.MaxRetries)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService, err := rbac.NewService(enforcer, rbac.DefaultPolicy(), logger)
	if err != nil {
		return err
	}

	userService := user.NewService(sqlDB, user.NewRepository(gormDB), rbacService, redisClient, logger)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          events.RequestLifecycleTopic,
		GroupID:        cfg.Kafka.ConsumerGroup,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeRequestLifecycle(ctx, reader, userService, metrics.New(), logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
