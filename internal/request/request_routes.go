package request

import (
	"github.com/gin-gonic/gin"
	"github.com/jesser-selmi/idos-front/internal/middleware"
	"github.com/jesser-selmi/idos-front/internal/rbac"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	auth gin.HandlerFunc,
	authz middleware.Authorizer,
	rdb *redis.Client,
) {
	requests := r.Group("/requests")
	requests.Use(auth)
	{
		submit := []gin.HandlerFunc{middleware.RBACAuthorize(authz, rbac.ResourceRequest, rbac.ActionSubmit)}
		if rdb != nil {
			submit = append(submit, middleware.Idempotency(rdb))
		}
		submit = append(submit, handler.Submit)

		requests.POST("", submit...)
		requests.GET("/mine", middleware.RBACAuthorize(authz, rbac.ResourceRequest, rbac.ActionReadOwn), handler.ListOwn)
		requests.GET("", middleware.RBACAuthorize(authz, rbac.ResourceRequest, rbac.ActionReadAll), handler.ListAll)
		requests.GET("/:id", handler.GetByID)
		requests.PATCH("/:id/status", middleware.RBACAuthorize(authz, rbac.ResourceRequest, rbac.ActionReview), handler.Review)
	}
}
