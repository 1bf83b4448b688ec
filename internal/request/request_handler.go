package request

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	requesterrors "github.com/jesser-selmi/idos-front/internal/request/errors"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/jesser-selmi/idos-front/internal/shared/contextutil"
	"github.com/jesser-selmi/idos-front/internal/shared/response"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("request.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("request.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	contextutil.GetLogger(c.Request.Context(), h.logger).Warn("request operation failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
		zap.Error(err),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) currentSession(c *gin.Context) (session.Session, bool) {
	sess, ok := session.FromContext(c.Request.Context())
	if !ok {
		h.writeServiceError(c, apperror.ErrUnauthorized)
	}
	return sess, ok
}

func (h *Handler) bindError(c *gin.Context, err error) {
	appErr := apperror.MapValidationError(err)
	response.Error(c, http.StatusBadRequest, apperror.CodeValidation, appErr.Message, appErr.Details)
}

func (h *Handler) Submit(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var req CreateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http submit request validation failed", zap.Error(err))
		h.bindError(c, err)
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), sess, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) ListOwn(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	resp, err := h.service.ListOwn(c.Request.Context(), sess)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.paginate(c, resp)
}

// ListAll accepts optional type and status query filters.
func (h *Handler) ListAll(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var filter ListFilter
	if raw := c.Query("type"); raw != "" {
		t, ok := ParseType(raw)
		if !ok {
			h.writeServiceError(c, requesterrors.ErrInvalidType)
			return
		}
		filter.Type = t
	}
	if raw := c.Query("status"); raw != "" {
		st := Status(raw)
		if !st.Valid() {
			h.writeServiceError(c, apperror.InvalidField("Status"))
			return
		}
		filter.Status = st
	}

	resp, err := h.service.ListAll(c.Request.Context(), sess, filter)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.paginate(c, resp)
}

func (h *Handler) GetByID(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Review(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var req ReviewRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http review request validation failed", zap.Error(err))
		h.bindError(c, err)
		return
	}
	action, ok := ParseAction(req.Action)
	if !ok {
		h.writeServiceError(c, requesterrors.ErrInvalidAction)
		return
	}

	resp, err := h.service.Review(c.Request.Context(), sess, c.Param("id"), action)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) paginate(c *gin.Context, resp []RequestResponse) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	items, meta := response.Paginate(resp, page, pageSize)
	response.Success(c, http.StatusOK, items, &meta)
}
