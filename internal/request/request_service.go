package request

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jesser-selmi/idos-front/internal/bootstrap"
	"github.com/jesser-selmi/idos-front/internal/events"
	"github.com/jesser-selmi/idos-front/internal/messaging/kafka"
	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/jesser-selmi/idos-front/internal/rbac"
	requesterrors "github.com/jesser-selmi/idos-front/internal/request/errors"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Submit(ctx context.Context, sess session.Session, in CreateRequestInput) (RequestResponse, error)
	ListOwn(ctx context.Context, sess session.Session) ([]RequestResponse, error)
	ListAll(ctx context.Context, sess session.Session, filter ListFilter) ([]RequestResponse, error)
	Review(ctx context.Context, sess session.Session, id string, action Action) (RequestResponse, error)
	GetByID(ctx context.Context, sess session.Session, id string) (RequestResponse, error)
}

type Authorizer interface {
	Authorize(sess session.Session, resource, action string) rbac.Decision
}

type Option func(*service)

func WithOutbox(outbox kafka.OutboxRepository) Option {
	return func(s *service) { s.outbox = outbox }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithAudit records every applied review decision.
func WithAudit(audit bootstrap.AuditLogger) Option {
	return func(s *service) { s.audit = audit }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger.Named("request.service")
		}
	}
}

type service struct {
	db      *sql.DB
	repo    Repository
	authz   Authorizer
	outbox  kafka.OutboxRepository
	metrics *metrics.Metrics
	audit   bootstrap.AuditLogger
	now     func() time.Time
	logger  *zap.Logger
}

func NewService(db *sql.DB, repo Repository, authz Authorizer, opts ...Option) Service {
	s := &service{
		db:     db,
		repo:   repo,
		authz:  authz,
		now:    time.Now,
		logger: zap.L().Named("request.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Submit(ctx context.Context, sess session.Session, in CreateRequestInput) (RequestResponse, error) {
	if err := s.authz.Authorize(sess, rbac.ResourceRequest, rbac.ActionSubmit).Err(); err != nil {
		return RequestResponse{}, err
	}

	s.logger.Debug("submit request requested",
		zap.String("user_id", sess.UserID),
		zap.String("type", in.Type),
		zap.String("date", in.Date),
		zap.Int("duration", int(in.Duration)),
	)

	userUUID, err := uuid.Parse(sess.UserID)
	if err != nil {
		return RequestResponse{}, requesterrors.ErrInvalidUserID
	}
	candidate, fieldErrs := ParseCandidate(in)
	if !fieldErrs.OK() {
		s.logger.Warn("submit request malformed",
			zap.String("user_id", sess.UserID),
			zap.Any("fields", fieldErrs),
		)
		label := string(candidate.Type)
		if label == "" {
			label = "unknown"
		}
		s.metrics.ObserveSubmission(label, "invalid")
		return RequestResponse{}, requesterrors.ErrValidation.WithDetails(fieldErrs)
	}
	reqType := candidate.Type

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit request begin tx failed", zap.Error(err))
		return RequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := qtx.LockOwner(ctx, sess.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, requesterrors.ErrInvalidUserID
		}
		s.logger.Error("submit request owner lock failed", zap.Error(err))
		return RequestResponse{}, err
	}

	existing, err := qtx.FindAllByUser(ctx, sess.UserID)
	if err != nil {
		s.logger.Error("submit request load existing failed", zap.Error(err))
		return RequestResponse{}, err
	}

	intervals := make([]Interval, 0, len(existing))
	for _, r := range existing {
		intervals = append(intervals, r.Interval())
	}

	if fieldErrs := Validate(candidate, intervals, s.now()); !fieldErrs.OK() {
		s.logger.Warn("submit request validation failed",
			zap.String("user_id", sess.UserID),
			zap.Any("fields", fieldErrs),
		)
		s.metrics.ObserveSubmission(string(reqType), "invalid")
		return RequestResponse{}, requesterrors.ErrValidation.WithDetails(fieldErrs)
	}

	now := s.now().UTC()
	r := &Request{
		ID:        uuid.New(),
		UserID:    userUUID,
		Type:      reqType,
		Date:      candidate.Date,
		Duration:  candidate.Duration,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := qtx.Create(ctx, r); err != nil {
		s.logger.Error("submit request persist failed", zap.Error(err))
		return RequestResponse{}, err
	}

	if err := s.enqueue(ctx, tx, r.ID.String(), events.EventRequestSubmitted, events.RequestSubmittedEvent{
		EventType:  events.EventRequestSubmitted,
		RequestID:  r.ID.String(),
		UserID:     sess.UserID,
		Type:       string(r.Type),
		Date:       r.Date.Format(DateLayout),
		Duration:   r.Duration,
		OccurredAt: now,
	}); err != nil {
		return RequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("submit request commit failed", zap.Error(err))
		return RequestResponse{}, err
	}

	s.metrics.ObserveSubmission(string(r.Type), "created")
	s.logger.Info("submit request success",
		zap.String("request_id", r.ID.String()),
		zap.String("user_id", sess.UserID),
		zap.String("type", string(r.Type)),
	)

	return mapToResponse(*r), nil
}

func (s *service) ListOwn(ctx context.Context, sess session.Session) ([]RequestResponse, error) {
	if err := s.authz.Authorize(sess, rbac.ResourceRequest, rbac.ActionReadOwn).Err(); err != nil {
		return nil, err
	}

	reqs, err := s.repo.FindAllByUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(reqs), nil
}

func (s *service) ListAll(ctx context.Context, sess session.Session, filter ListFilter) ([]RequestResponse, error) {
	if err := s.authz.Authorize(sess, rbac.ResourceRequest, rbac.ActionReadAll).Err(); err != nil {
		return nil, err
	}

	reqs, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(reqs), nil
}

// GetByID returns the request to its owner or to a reviewer. Anyone else
// gets not found.
func (s *service) GetByID(ctx context.Context, sess session.Session, id string) (RequestResponse, error) {
	canReadAll := s.authz.Authorize(sess, rbac.ResourceRequest, rbac.ActionReadAll).Allowed
	if !canReadAll {
		if err := s.authz.Authorize(sess, rbac.ResourceRequest, rbac.ActionReadOwn).Err(); err != nil {
			return RequestResponse{}, err
		}
	}

	if _, err := uuid.Parse(id); err != nil {
		return RequestResponse{}, requesterrors.ErrInvalidRequestID
	}

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, requesterrors.ErrRequestNotFound
		}
		return RequestResponse{}, err
	}

	if !canReadAll && r.UserID.String() != sess.UserID {
		return RequestResponse{}, requesterrors.ErrRequestNotFound
	}

	return mapToResponse(*r), nil
}

// Review applies one reviewer action under a row lock. A repeated
// acceptance by the same role changes nothing and emits nothing.
func (s *service) Review(ctx context.Context, sess session.Session, id string, action Action) (RequestResponse, error) {
	if err := s.authz.Authorize(sess, rbac.ResourceRequest, rbac.ActionReview).Err(); err != nil {
		s.logger.Warn("review request refused",
			zap.String("user_id", sess.UserID),
			zap.String("role", string(sess.Role)),
		)
		return RequestResponse{}, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return RequestResponse{}, requesterrors.ErrInvalidRequestID
	}
	reviewerUUID, err := uuid.Parse(sess.UserID)
	if err != nil {
		return RequestResponse{}, requesterrors.ErrInvalidUserID
	}
	if _, ok := ParseAction(string(action)); !ok {
		return RequestResponse{}, requesterrors.ErrInvalidAction
	}

	s.logger.Debug("review request requested",
		zap.String("request_id", id),
		zap.String("reviewer_id", sess.UserID),
		zap.String("role", string(sess.Role)),
		zap.String("action", string(action)),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("review request begin tx failed", zap.Error(err))
		return RequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	r, err := qtx.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, requesterrors.ErrRequestNotFound
		}
		s.logger.Error("review request load failed", zap.Error(err))
		return RequestResponse{}, err
	}

	from := r.Status
	next, err := Next(from, sess.Role, action)
	if err != nil {
		switch {
		case errors.Is(err, ErrTerminalStatus):
			return RequestResponse{}, requesterrors.ErrAlreadyDecided
		case errors.Is(err, ErrRoleCannotReview):
			return RequestResponse{}, apperror.ErrForbidden
		case errors.Is(err, ErrUnknownAction):
			return RequestResponse{}, requesterrors.ErrInvalidAction
		default:
			return RequestResponse{}, err
		}
	}

	if next == from {
		s.logger.Info("review request no-op",
			zap.String("request_id", id),
			zap.String("status", string(from)),
			zap.String("role", string(sess.Role)),
		)
		return mapToResponse(*r), nil
	}

	now := s.now().UTC()
	applyAttribution(r, sess.Role, action, reviewerUUID)
	r.Status = next
	r.UpdatedAt = now
	if next.IsTerminal() {
		r.DecidedAt = &now
	}

	if err := qtx.Update(ctx, r); err != nil {
		s.logger.Error("review request persist failed", zap.Error(err))
		return RequestResponse{}, err
	}

	if err := s.enqueue(ctx, tx, r.ID.String(), events.EventRequestStatusChanged, events.RequestStatusChangedEvent{
		EventType:    events.EventRequestStatusChanged,
		RequestID:    r.ID.String(),
		UserID:       r.UserID.String(),
		Type:         string(r.Type),
		Date:         r.Date.Format(DateLayout),
		Duration:     r.Duration,
		From:         string(from),
		To:           string(next),
		ReviewerID:   sess.UserID,
		ReviewerRole: string(sess.Role),
		OccurredAt:   now,
	}); err != nil {
		return RequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("review request commit failed", zap.Error(err))
		return RequestResponse{}, err
	}

	s.metrics.ObserveTransition(string(from), string(next), string(sess.Role))
	if s.audit != nil {
		s.audit.Log(ctx, bootstrap.AuditLog{
			Action:  "REQUEST_REVIEWED",
			Message: "Request " + string(action) + " by " + string(sess.Role),
			Meta: map[string]any{
				"request_id":  id,
				"reviewer_id": sess.UserID,
				"from":        string(from),
				"to":          string(next),
			},
		})
	}
	s.logger.Info("review request success",
		zap.String("request_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("reviewer_id", sess.UserID),
	)

	return mapToResponse(*r), nil
}

func applyAttribution(r *Request, role session.Role, action Action, reviewer uuid.UUID) {
	if action == ActionReject {
		r.RejectedBy = &reviewer
		return
	}
	switch role {
	case session.RoleRH:
		r.RHApprovedBy = &reviewer
	case session.RoleAdmin:
		r.AdminApprovedBy = &reviewer
	}
}

func (s *service) enqueue(ctx context.Context, tx *sql.Tx, aggregateID, eventType string, payload any) error {
	if s.outbox == nil {
		return nil
	}

	event, err := kafka.NewOutboxEvent(ctx, events.AggregateRequest, aggregateID, eventType, events.RequestLifecycleTopic, payload)
	if err != nil {
		s.logger.Error("build outbox event failed", zap.String("event_type", eventType), zap.Error(err))
		return err
	}

	if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
		s.logger.Error("outbox persist failed",
			zap.String("event_type", eventType),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func mapToResponse(r Request) RequestResponse {
	resp := RequestResponse{
		ID:          r.ID.String(),
		UserID:      r.UserID.String(),
		Type:        r.Type,
		Date:        r.Date.Format(DateLayout),
		Duration:    r.Duration,
		EndDate:     r.Interval().End.Format(DateLayout),
		Status:      r.Status,
		StatusLabel: Display(r.Status),
		Reviewable:  r.Status.Reviewable(),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.RHApprovedBy != nil {
		resp.RHApprovedBy = r.RHApprovedBy.String()
	}
	if r.AdminApprovedBy != nil {
		resp.AdminApprovedBy = r.AdminApprovedBy.String()
	}
	if r.RejectedBy != nil {
		resp.RejectedBy = r.RejectedBy.String()
	}
	if r.DecidedAt != nil {
		resp.DecidedAt = r.DecidedAt.Format(time.RFC3339)
	}
	if r.Owner != nil {
		resp.EmployeeName = r.Owner.FirstName + " " + r.Owner.LastName
	}
	return resp
}

func mapToListResponse(reqs []Request) []RequestResponse {
	resp := make([]RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		resp = append(resp, mapToResponse(r))
	}
	return resp
}
