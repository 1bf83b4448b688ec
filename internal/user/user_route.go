package user

import (
	"github.com/gin-gonic/gin"
	"github.com/jesser-selmi/idos-front/internal/middleware"
	"github.com/jesser-selmi/idos-front/internal/rbac"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	auth gin.HandlerFunc,
	authz middleware.Authorizer,
) {
	users := r.Group("/users")
	users.Use(auth)
	{
		users.GET("",
			middleware.RateLimitByUser(3, 10),
			middleware.RBACAuthorize(authz, rbac.ResourceUser, rbac.ActionRead),
			handler.List,
		)

		users.GET("/me",
			middleware.RBACAuthorize(authz, rbac.ResourceProfile, rbac.ActionRead),
			handler.Me,
		)

		users.PUT("/me/password",
			middleware.RateLimitByUser(0.5, 2),
			middleware.RBACAuthorize(authz, rbac.ResourceProfile, rbac.ActionUpdatePassword),
			handler.ChangePassword,
		)

		// Self access is decided by the service.
		users.GET("/:id", middleware.RateLimitByUser(3, 10), handler.GetByID)

		users.POST("",
			middleware.RateLimitByUser(0.1, 1),
			middleware.RBACAuthorize(authz, rbac.ResourceUser, rbac.ActionCreate),
			handler.Create,
		)

		users.PATCH("/:id",
			middleware.RateLimitByUser(0.5, 2),
			handler.Update,
		)

		users.DELETE("/:id",
			middleware.RateLimitByUser(0.5, 2),
			middleware.RBACAuthorize(authz, rbac.ResourceUser, rbac.ActionDelete),
			handler.Delete,
		)
	}
}
