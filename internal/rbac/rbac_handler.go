package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/jesser-selmi/idos-front/internal/shared/response"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Me lists the caller's capabilities so a client can decide what to show.
func (h *Handler) Me(c *gin.Context) {
	sess, ok := session.FromContext(c.Request.Context())
	if !ok {
		e := apperror.ErrUnauthorized
		response.Error(c, e.HTTPStatus, e.Code, e.Message, nil)
		return
	}

	response.Success(c, http.StatusOK, PermissionsResponse{
		Role:        string(sess.Role),
		LandingPath: sess.Role.LandingPath(),
		Permissions: h.service.Permissions(sess.Role),
	}, nil)
}

// Enforce answers a capability question for the caller's own role.
func (h *Handler) Enforce(c *gin.Context) {
	sess, ok := session.FromContext(c.Request.Context())
	if !ok {
		e := apperror.ErrUnauthorized
		response.Error(c, e.HTTPStatus, e.Code, e.Message, nil)
		return
	}

	var req EnforceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := apperror.MapValidationError(err)
		response.Error(c, http.StatusBadRequest, apperror.CodeValidation, appErr.Message, appErr.Details)
		return
	}

	d := h.service.Authorize(sess, req.Resource, req.Action)
	response.Success(c, http.StatusOK, EnforceResponse{Allowed: d.Allowed}, nil)
}
