package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jesser-selmi/idos-front/internal/config"
	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/jesser-selmi/idos-front/internal/middleware"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/jesser-selmi/idos-front/internal/shared/connection"
	"github.com/jesser-selmi/idos-front/internal/shared/migration"
	"github.com/jesser-selmi/idos-front/internal/shared/response"
	"github.com/jesser-selmi/idos-front/internal/user"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DatabaseConfig converts the env settings into connection parameters.
func DatabaseConfig(db config.Database) connection.DatabaseConfig {
	return connection.DatabaseConfig{
		Host:         db.Host,
		Port:         db.Port,
		User:         db.User,
		Password:     db.Password,
		Name:         db.Name,
		SSLMode:      db.SSLMode,
		MaxOpenConns: db.MaxOpenConns,
		MaxIdleConns: db.MaxIdleConns,
	}
}

// BuildApp connects the infrastructure and mounts every route on router.
// The returned func releases the connections.
func BuildApp(router *gin.Engine, cfg *config.Config) (func(), error) {
	logger := zap.L().Named("app")

	// 1. Setup Infrastructure
	gormDB, sqlDB, err := connectDatabase(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established")

	redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.MaxRetries)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	logger.Info("redis connection established")

	cleanup := func() {
		_ = redisClient.Close()
		_ = sqlDB.Close()
	}

	m := metrics.New()

	router.Use(
		middleware.RequestID(),
		middleware.ContextLogger(zap.L()),
		middleware.Metrics(m),
	)
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/healthz", healthCheck(sqlDB, redisClient))

	// 2. Register Modules & Routes
	mods, err := registerModules(router, cfg, sqlDB, gormDB, redisClient, m)
	if err != nil {
		cleanup()
		return nil, err
	}

	if cfg.InitialAdmin.Email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := mods.users.EnsureAdmin(ctx, user.AdminSeed{
			Email:     cfg.InitialAdmin.Email,
			Password:  cfg.InitialAdmin.Password,
			FirstName: cfg.InitialAdmin.FirstName,
			LastName:  cfg.InitialAdmin.LastName,
		}); err != nil {
			cleanup()
			return nil, err
		}
	}

	return cleanup, nil
}

func connectDatabase(cfg *config.Config) (*gorm.DB, *sql.DB, error) {
	dbCfg := DatabaseConfig(cfg.Database)

	gormDB, err := connection.ConnectGORMWithRetry(dbCfg, cfg.Database.MaxRetries)
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := migration.Up(dbCfg.URL(), zap.L()); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
	}

	return gormDB, sqlDB, nil
}

func healthCheck(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "up", "redis": "up"}
		healthy := true
		if err := db.PingContext(ctx); err != nil {
			status["database"] = "down"
			healthy = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			healthy = false
		}

		if !healthy {
			response.Error(c, http.StatusServiceUnavailable, apperror.CodeServiceUnavailable, "Dependency unavailable", status)
			return
		}
		response.Success(c, http.StatusOK, status, nil)
	}
}
