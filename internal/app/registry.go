package app

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/jesser-selmi/idos-front/internal/auth"
	"github.com/jesser-selmi/idos-front/internal/bootstrap"
	"github.com/jesser-selmi/idos-front/internal/config"
	"github.com/jesser-selmi/idos-front/internal/messaging/kafka"
	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/jesser-selmi/idos-front/internal/middleware"
	"github.com/jesser-selmi/idos-front/internal/rbac"
	"github.com/jesser-selmi/idos-front/internal/rbac/infra"
	"github.com/jesser-selmi/idos-front/internal/request"
	"github.com/jesser-selmi/idos-front/internal/user"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type modules struct {
	rbac     rbac.Service
	auth     auth.Service
	users    user.Service
	requests request.Service
}

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	m *metrics.Metrics,
) (*modules, error) {
	logger := zap.L()

	// --- Repositories ---
	userRepo := user.NewRepository(gormDB)
	requestRepo := request.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return nil, err
	}
	rbacService, err := rbac.NewService(enforcer, rbac.DefaultPolicy(), logger)
	if err != nil {
		return nil, err
	}

	// --- Services ---
	authService := auth.NewService(userRepo, auth.NewTokenStore(rdb), cfg.JWT.Secret, cfg.JWT.Expiration, logger)
	userService := user.NewService(db, userRepo, rbacService, rdb, logger)
	requestService := request.NewService(db, requestRepo, rbacService,
		request.WithOutbox(outboxRepo),
		request.WithMetrics(m),
		request.WithAudit(bootstrap.NewStdoutAuditLogger()),
		request.WithLogger(logger),
	)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService, cfg.IsProduction(), logger)
	userHandler := user.NewHandler(userService, logger)
	requestHandler := request.NewHandler(requestService, logger)
	rbacHandler := rbac.NewHandler(rbacService)

	authMiddleware := middleware.AuthMiddleware(authService)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler, authMiddleware)
		user.RegisterRoutes(api, userHandler, authMiddleware, rbacService)
		request.RegisterRoutes(api, requestHandler, authMiddleware, rbacService, rdb)
		rbac.RegisterRoutes(api, rbacHandler, authMiddleware)
	}

	return &modules{
		rbac:     rbacService,
		auth:     authService,
		users:    userService,
		requests: requestService,
	}, nil
}
