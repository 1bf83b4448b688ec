package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/jesser-selmi/idos-front/internal/shared/contextutil"
	"github.com/jesser-selmi/idos-front/internal/shared/response"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"

	AccessTokenCookie = "access_token"
)

// TokenDecoder turns a bearer token into a live session. It must reject
// malformed, expired and revoked tokens.
type TokenDecoder interface {
	DecodeToken(ctx context.Context, token string) (session.Session, error)
}

// AuthMiddleware accepts "Authorization: Bearer <token>", a raw token in the
// Authorization header, or the access_token cookie.
func AuthMiddleware(decoder TokenDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.Abort(c, apperror.ErrUnauthorized.HTTPStatus, apperror.CodeUnauthorized, "Token not found", nil)
			return
		}

		sess, err := decoder.DecodeToken(c.Request.Context(), tokenString)
		if err != nil {
			httpErr := apperror.ToHTTP(err)
			if httpErr.Status >= 500 {
				response.Abort(c, httpErr.Status, httpErr.Code, httpErr.Message, nil)
				return
			}
			response.Abort(c, apperror.ErrUnauthorized.HTTPStatus, apperror.CodeUnauthorized, httpErr.Message, nil)
			return
		}

		c.Set(ContextUserID, sess.UserID)
		c.Set(ContextRole, string(sess.Role))

		ctx := session.WithContext(c.Request.Context(), sess)
		ctx = contextutil.WithUserID(ctx, sess.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		if token, found := strings.CutPrefix(authHeader, "Bearer "); found {
			return strings.TrimSpace(token)
		}
		if !strings.Contains(authHeader, " ") {
			return authHeader
		}
	}

	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}
