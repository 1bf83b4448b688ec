package request_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jesser-selmi/idos-front/internal/bootstrap"
	"github.com/jesser-selmi/idos-front/internal/events"
	"github.com/jesser-selmi/idos-front/internal/messaging/kafka"
	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/jesser-selmi/idos-front/internal/rbac"
	"github.com/jesser-selmi/idos-front/internal/rbac/infra"
	"github.com/jesser-selmi/idos-front/internal/request"
	requesterrors "github.com/jesser-selmi/idos-front/internal/request/errors"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRequestRepository struct {
	lockOwnerFn         func(ctx context.Context, userID string) error
	createFn            func(ctx context.Context, r *request.Request) error
	findByIDFn          func(ctx context.Context, id string) (*request.Request, error)
	findByIDForUpdateFn func(ctx context.Context, id string) (*request.Request, error)
	findAllByUserFn     func(ctx context.Context, userID string) ([]request.Request, error)
	findAllFn           func(ctx context.Context, filter request.ListFilter) ([]request.Request, error)
	updateFn            func(ctx context.Context, r *request.Request) error
}

func (f *fakeRequestRepository) WithTx(tx *sql.Tx) request.Repository { return f }

func (f *fakeRequestRepository) LockOwner(ctx context.Context, userID string) error {
	if f.lockOwnerFn != nil {
		return f.lockOwnerFn(ctx, userID)
	}
	return nil
}

func (f *fakeRequestRepository) Create(ctx context.Context, r *request.Request) error {
	if f.createFn != nil {
		return f.createFn(ctx, r)
	}
	return nil
}

func (f *fakeRequestRepository) FindByID(ctx context.Context, id string) (*request.Request, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*request.Request, error) {
	if f.findByIDForUpdateFn != nil {
		return f.findByIDForUpdateFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRequestRepository) FindAllByUser(ctx context.Context, userID string) ([]request.Request, error) {
	if f.findAllByUserFn != nil {
		return f.findAllByUserFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeRequestRepository) FindAll(ctx context.Context, filter request.ListFilter) ([]request.Request, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeRequestRepository) Update(ctx context.Context, r *request.Request) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, r)
	}
	return nil
}

// useMemoryStore backs the fake with a map so multi-step scenarios see
// their own writes.
func (f *fakeRequestRepository) useMemoryStore() map[uuid.UUID]*request.Request {
	store := map[uuid.UUID]*request.Request{}
	f.createFn = func(ctx context.Context, r *request.Request) error {
		cp := *r
		store[r.ID] = &cp
		return nil
	}
	find := func(ctx context.Context, id string) (*request.Request, error) {
		r, ok := store[uuid.MustParse(id)]
		if !ok {
			return nil, gorm.ErrRecordNotFound
		}
		cp := *r
		return &cp, nil
	}
	f.findByIDFn = find
	f.findByIDForUpdateFn = find
	f.findAllByUserFn = func(ctx context.Context, userID string) ([]request.Request, error) {
		var out []request.Request
		for _, r := range store {
			if r.UserID.String() == userID {
				out = append(out, *r)
			}
		}
		return out, nil
	}
	f.updateFn = func(ctx context.Context, r *request.Request) error {
		cp := *r
		store[r.ID] = &cp
		return nil
	}
	return store
}

type fakeOutbox struct {
	events []kafka.OutboxEvent
	err    error
}

func (f *fakeOutbox) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutbox) Create(ctx context.Context, event kafka.OutboxEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

func (f *fakeOutbox) PurgeSent(ctx context.Context, before time.Time) (int64, error) { return 0, nil }

type fakeAudit struct {
	entries []bootstrap.AuditLog
}

func (f *fakeAudit) Log(ctx context.Context, entry bootstrap.AuditLog) {
	f.entries = append(f.entries, entry)
}

type requestServiceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service request.Service
	repo    *fakeRequestRepository
	outbox  *fakeOutbox
	metrics *metrics.Metrics
	audit   *fakeAudit
}

var today = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newAuthorizer(t *testing.T) rbac.Service {
	t.Helper()
	enforcer, err := infra.NewEnforcer()
	assert.NoError(t, err)
	authz, err := rbac.NewService(enforcer, rbac.DefaultPolicy())
	assert.NoError(t, err)
	return authz
}

func setupRequestServiceTest(t *testing.T) *requestServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeRequestRepository{}
	outbox := &fakeOutbox{}
	m := metrics.New()
	audit := &fakeAudit{}
	svc := request.NewService(db, repo, newAuthorizer(t),
		request.WithOutbox(outbox),
		request.WithMetrics(m),
		request.WithAudit(audit),
		request.WithClock(func() time.Time { return today }),
	)

	return &requestServiceDeps{
		db:      db,
		sqlMock: sqlMock,
		service: svc,
		repo:    repo,
		outbox:  outbox,
		metrics: m,
		audit:   audit,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func newSession(role session.Role) session.Session {
	return session.Session{UserID: uuid.New().String(), Role: role, TokenID: uuid.New().String()}
}

func TestRequestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		expectTx(t, deps.sqlMock, true)
		user := newSession(session.RoleUser)

		var created *request.Request
		deps.repo.createFn = func(ctx context.Context, r *request.Request) error {
			created = r
			return nil
		}

		resp, err := deps.service.Submit(ctx, user, request.CreateRequestInput{
			Type:     "LEAVE_REQUEST",
			Date:     "2025-06-10",
			Duration: 3,
		})

		assert.NoError(t, err)
		assert.Equal(t, request.StatusPending, resp.Status)
		assert.Equal(t, "Pending", resp.StatusLabel)
		assert.Equal(t, "2025-06-12", resp.EndDate)
		assert.Equal(t, user.UserID, resp.UserID)
		assert.NotNil(t, created)
		assert.Equal(t, 3, created.Duration)

		assert.Len(t, deps.outbox.events, 1)
		assert.Equal(t, events.EventRequestSubmitted, deps.outbox.events[0].EventType)
		assert.Equal(t, events.RequestLifecycleTopic, deps.outbox.events[0].Topic)
		var payload events.RequestSubmittedEvent
		assert.NoError(t, json.Unmarshal(deps.outbox.events[0].Payload, &payload))
		assert.Equal(t, resp.ID, payload.RequestID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("duration below one never persists", func(t *testing.T) {
		for _, d := range []request.Days{0, -4} {
			deps := setupRequestServiceTest(t)
			expectTx(t, deps.sqlMock, false)
			deps.repo.createFn = func(ctx context.Context, r *request.Request) error {
				t.Fatal("create must not be called")
				return nil
			}

			_, err := deps.service.Submit(ctx, newSession(session.RoleIntern), request.CreateRequestInput{
				Type:     "TELEWORK_REQUEST",
				Date:     "2025-06-10",
				Duration: d,
			})

			var appErr *apperror.AppError
			assert.True(t, errors.As(err, &appErr))
			assert.True(t, errors.Is(err, requesterrors.ErrValidation))
			assert.Equal(t, request.FieldErrors{request.FieldDuration: request.MsgDurationTooLow}, appErr.Details)
			assert.Empty(t, deps.outbox.events)
			assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
			deps.db.Close()
		}
	})

	t.Run("past date", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Submit(ctx, newSession(session.RoleUser), request.CreateRequestInput{
			Type:     "LEAVE_REQUEST",
			Date:     "2025-05-31",
			Duration: 1,
		})

		var appErr *apperror.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, request.FieldErrors{request.FieldDate: request.MsgDateInPast}, appErr.Details)
	})

	t.Run("reviewer cannot submit", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Submit(ctx, newSession(session.RoleRH), request.CreateRequestInput{
			Type: "LEAVE_REQUEST", Date: "2025-06-10", Duration: 1,
		})

		assert.True(t, errors.Is(err, apperror.ErrForbidden))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("no session", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Submit(ctx, session.Session{}, request.CreateRequestInput{
			Type: "LEAVE_REQUEST", Date: "2025-06-10", Duration: 1,
		})

		assert.True(t, errors.Is(err, apperror.ErrForbidden))
	})

	t.Run("malformed fields are reported together", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		user := newSession(session.RoleUser)

		_, err := deps.service.Submit(ctx, user, request.CreateRequestInput{Type: "SICK", Date: "10/06/2025", Duration: 0})

		assert.True(t, errors.Is(err, requesterrors.ErrValidation))
		var appErr *apperror.AppError
		if assert.True(t, errors.As(err, &appErr)) {
			assert.Equal(t, request.FieldErrors{
				request.FieldType:     request.MsgTypeInvalid,
				request.FieldDate:     request.MsgDateFormat,
				request.FieldDuration: request.MsgDurationTooLow,
			}, appErr.Details)
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("outbox failure rolls back", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		expectTx(t, deps.sqlMock, false)
		deps.outbox.err = errors.New("insert failed")

		_, err := deps.service.Submit(ctx, newSession(session.RoleUser), request.CreateRequestInput{
			Type: "LEAVE_REQUEST", Date: "2025-06-10", Duration: 1,
		})

		assert.Error(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestRequestService_Scenario_SubmitThenDualApproval(t *testing.T) {
	ctx := context.Background()
	deps := setupRequestServiceTest(t)
	defer deps.db.Close()
	store := deps.repo.useMemoryStore()

	user := newSession(session.RoleUser)
	rh := newSession(session.RoleRH)
	admin := newSession(session.RoleAdmin)

	expectTx(t, deps.sqlMock, true)
	created, err := deps.service.Submit(ctx, user, request.CreateRequestInput{Type: "LEAVE_REQUEST", Date: "2025-06-10", Duration: 3})
	assert.NoError(t, err)
	assert.Equal(t, request.StatusPending, created.Status)

	// Second, overlapping request is refused and nothing is stored.
	expectTx(t, deps.sqlMock, false)
	_, err = deps.service.Submit(ctx, user, request.CreateRequestInput{Type: "LEAVE_REQUEST", Date: "2025-06-12", Duration: 2})
	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, request.FieldErrors{request.FieldDate: request.MsgOverlap}, appErr.Details)
	assert.Len(t, store, 1)

	expectTx(t, deps.sqlMock, true)
	afterRH, err := deps.service.Review(ctx, rh, created.ID, request.ActionAccept)
	assert.NoError(t, err)
	assert.Equal(t, request.StatusRHAccepted, afterRH.Status)
	assert.Equal(t, "Pending", afterRH.StatusLabel)
	assert.Equal(t, rh.UserID, afterRH.RHApprovedBy)

	expectTx(t, deps.sqlMock, true)
	final, err := deps.service.Review(ctx, admin, created.ID, request.ActionAccept)
	assert.NoError(t, err)
	assert.Equal(t, request.StatusAccepted, final.Status)
	assert.Equal(t, "Accepted", final.StatusLabel)
	assert.Equal(t, admin.UserID, final.AdminApprovedBy)
	assert.NotEmpty(t, final.DecidedAt)
	assert.False(t, final.Reviewable)

	// Terminal: further reviews are refused.
	expectTx(t, deps.sqlMock, false)
	_, err = deps.service.Review(ctx, rh, created.ID, request.ActionReject)
	assert.True(t, errors.Is(err, requesterrors.ErrAlreadyDecided))

	assert.Len(t, deps.outbox.events, 3)
	var changed events.RequestStatusChangedEvent
	assert.NoError(t, json.Unmarshal(deps.outbox.events[2].Payload, &changed))
	assert.Equal(t, "RH_ACCEPTED", changed.From)
	assert.Equal(t, "ACCEPTED", changed.To)
	assert.Equal(t, "ADMIN", changed.ReviewerRole)

	count, err := testutil.GatherAndCount(deps.metrics.Registry(), "idos_request_transitions_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	if assert.Len(t, deps.audit.entries, 2) {
		assert.Equal(t, "REQUEST_REVIEWED", deps.audit.entries[1].Action)
		assert.Equal(t, "ACCEPTED", deps.audit.entries[1].Meta["to"])
	}
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestRequestService_Review(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	owner := uuid.New()

	pending := func(status request.Status) func(ctx context.Context, rid string) (*request.Request, error) {
		return func(ctx context.Context, rid string) (*request.Request, error) {
			return &request.Request{
				ID:       id,
				UserID:   owner,
				Type:     request.TypeTelework,
				Date:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
				Duration: 1,
				Status:   status,
			}, nil
		}
	}

	t.Run("user is refused before any read", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		deps.repo.findByIDForUpdateFn = func(ctx context.Context, rid string) (*request.Request, error) {
			t.Fatal("request must not be read")
			return nil, nil
		}

		for _, role := range []session.Role{session.RoleUser, session.RoleIntern} {
			_, err := deps.service.Review(ctx, newSession(role), id.String(), request.ActionAccept)

			assert.True(t, errors.Is(err, apperror.ErrForbidden))
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("same role re-accept is a no-op", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDForUpdateFn = pending(request.StatusAdminAccepted)
		deps.repo.updateFn = func(ctx context.Context, r *request.Request) error {
			t.Fatal("update must not be called")
			return nil
		}

		resp, err := deps.service.Review(ctx, newSession(session.RoleAdmin), id.String(), request.ActionAccept)

		assert.NoError(t, err)
		assert.Equal(t, request.StatusAdminAccepted, resp.Status)
		assert.Empty(t, deps.outbox.events)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("reject records the reviewer", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDForUpdateFn = pending(request.StatusRHAccepted)
		rh := newSession(session.RoleRH)

		var updated *request.Request
		deps.repo.updateFn = func(ctx context.Context, r *request.Request) error {
			updated = r
			return nil
		}

		resp, err := deps.service.Review(ctx, rh, id.String(), request.ActionReject)

		assert.NoError(t, err)
		assert.Equal(t, request.StatusRejected, resp.Status)
		assert.Equal(t, "Rejected", resp.StatusLabel)
		assert.Equal(t, rh.UserID, updated.RejectedBy.String())
		assert.NotNil(t, updated.DecidedAt)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Review(ctx, newSession(session.RoleAdmin), id.String(), request.ActionAccept)

		assert.True(t, errors.Is(err, requesterrors.ErrRequestNotFound))
	})

	t.Run("invalid id and action", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Review(ctx, newSession(session.RoleAdmin), "nope", request.ActionAccept)
		assert.True(t, errors.Is(err, requesterrors.ErrInvalidRequestID))

		_, err = deps.service.Review(ctx, newSession(session.RoleAdmin), id.String(), "APPROVE")
		assert.True(t, errors.Is(err, requesterrors.ErrInvalidAction))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("update failure rolls back", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDForUpdateFn = pending(request.StatusPending)
		deps.repo.updateFn = func(ctx context.Context, r *request.Request) error {
			return errors.New("db down")
		}

		_, err := deps.service.Review(ctx, newSession(session.RoleRH), id.String(), request.ActionAccept)

		assert.EqualError(t, err, "db down")
		assert.Empty(t, deps.outbox.events)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestRequestService_Listing(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	rows := []request.Request{{
		ID:       uuid.New(),
		UserID:   owner,
		Type:     request.TypeLeave,
		Date:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		Duration: 2,
		Status:   request.StatusRHAccepted,
		Owner:    &request.RequestOwner{ID: owner, FirstName: "Amal", LastName: "Ben Salah"},
	}}

	t.Run("reviewer lists all with type filter", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		deps.repo.findAllFn = func(ctx context.Context, filter request.ListFilter) ([]request.Request, error) {
			assert.Equal(t, request.TypeLeave, filter.Type)
			return rows, nil
		}

		resp, err := deps.service.ListAll(ctx, newSession(session.RoleRH), request.ListFilter{Type: request.TypeLeave})

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, "Amal Ben Salah", resp[0].EmployeeName)
		assert.True(t, resp[0].Reviewable)
	})

	t.Run("user cannot list all", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.ListAll(ctx, newSession(session.RoleUser), request.ListFilter{})

		assert.True(t, errors.Is(err, apperror.ErrForbidden))
	})

	t.Run("user lists own", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		user := newSession(session.RoleUser)
		deps.repo.findAllByUserFn = func(ctx context.Context, userID string) ([]request.Request, error) {
			assert.Equal(t, user.UserID, userID)
			return rows, nil
		}

		resp, err := deps.service.ListOwn(ctx, user)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, "Pending", resp[0].StatusLabel)
	})

	t.Run("get by id hides other users requests", func(t *testing.T) {
		deps := setupRequestServiceTest(t)
		defer deps.db.Close()
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*request.Request, error) {
			r := rows[0]
			return &r, nil
		}

		_, err := deps.service.GetByID(ctx, newSession(session.RoleUser), rows[0].ID.String())
		assert.True(t, errors.Is(err, requesterrors.ErrRequestNotFound))

		ownerSess := session.Session{UserID: owner.String(), Role: session.RoleUser}
		resp, err := deps.service.GetByID(ctx, ownerSess, rows[0].ID.String())
		assert.NoError(t, err)
		assert.Equal(t, rows[0].ID.String(), resp.ID)

		resp, err = deps.service.GetByID(ctx, newSession(session.RoleAdmin), rows[0].ID.String())
		assert.NoError(t, err)
		assert.Equal(t, owner.String(), resp.UserID)
	})
}
