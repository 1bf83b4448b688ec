package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/jesser-selmi/idos-front/internal/shared/contextutil"
	"go.uber.org/zap"
)

// ContextLogger attaches a logger carrying request_id and, once known,
// user_id. Mount it after RequestID; route groups that authenticate mount
// it again after AuthMiddleware.
func ContextLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rid := contextutil.GetRequestID(ctx)
		uid := c.GetString(ContextUserID)

		fields := []zap.Field{zap.String("request_id", rid)}
		if uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}

		ctx = contextutil.WithLogger(ctx, logger.With(fields...))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
