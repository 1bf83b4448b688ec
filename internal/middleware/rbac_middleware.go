package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/jesser-selmi/idos-front/internal/rbac"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/jesser-selmi/idos-front/internal/shared/response"
)

type Authorizer interface {
	Authorize(sess session.Session, resource, action string) rbac.Decision
}

// RBACAuthorize must run after AuthMiddleware.
func RBACAuthorize(authorizer Authorizer, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromContext(c.Request.Context())
		if !ok {
			e := apperror.ErrUnauthorized
			response.Abort(c, e.HTTPStatus, e.Code, e.Message, nil)
			return
		}

		if err := authorizer.Authorize(sess, resource, action).Err(); err != nil {
			httpErr := apperror.ToHTTP(err)
			response.Abort(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
			return
		}

		c.Next()
	}
}
