package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/jesser-selmi/idos-front/internal/middleware"
	"github.com/jesser-selmi/idos-front/internal/rbac"
	"github.com/jesser-selmi/idos-front/internal/rbac/infra"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/jesser-selmi/idos-front/internal/shared/contextutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type envelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type fakeDecoder struct {
	decodeFn func(ctx context.Context, token string) (session.Session, error)
}

func (f *fakeDecoder) DecodeToken(ctx context.Context, token string) (session.Session, error) {
	return f.decodeFn(ctx, token)
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestAuthMiddleware(t *testing.T) {
	decoder := &fakeDecoder{decodeFn: func(ctx context.Context, token string) (session.Session, error) {
		if token == "good" {
			return session.Session{UserID: "u1", Role: session.RoleRH, TokenID: "jti"}, nil
		}
		return session.Session{}, apperror.New(apperror.CodeUnauthorized, "Invalid token", http.StatusUnauthorized)
	}}

	r := newRouter()
	r.GET("/me", middleware.AuthMiddleware(decoder), func(c *gin.Context) {
		sess, ok := session.FromContext(c.Request.Context())
		assert.True(t, ok)
		assert.Equal(t, "u1", c.GetString(middleware.ContextUserID))
		assert.Equal(t, "u1", contextutil.GetUserID(c.Request.Context()))
		c.JSON(http.StatusOK, gin.H{"role": sess.Role})
	})

	cases := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"bearer token", "Bearer good", "", http.StatusOK},
		{"raw token", "good", "", http.StatusOK},
		{"cookie", "", "good", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"invalid", "Bearer bad", "", http.StatusUnauthorized},
		{"other scheme", "Basic Z29vZA==", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: tc.cookie})
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status != http.StatusOK {
				assert.Equal(t, apperror.CodeUnauthorized, decode(t, w).Error.Code)
			}
		})
	}
}

func TestAuthMiddleware_StoreFailureIsNotUnauthorized(t *testing.T) {
	decoder := &fakeDecoder{decodeFn: func(ctx context.Context, token string) (session.Session, error) {
		return session.Session{}, apperror.ErrUnavailable
	}}
	r := newRouter()
	r.GET("/me", middleware.AuthMiddleware(decoder), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer x")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func withSession(sess session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, sess.UserID)
		c.Request = c.Request.WithContext(session.WithContext(c.Request.Context(), sess))
		c.Next()
	}
}

func TestRBACAuthorize(t *testing.T) {
	enforcer, err := infra.NewEnforcer()
	assert.NoError(t, err)
	authz, err := rbac.NewService(enforcer, rbac.DefaultPolicy())
	assert.NoError(t, err)

	handlerCalled := false
	ok := func(c *gin.Context) {
		handlerCalled = true
		c.Status(http.StatusNoContent)
	}

	t.Run("allowed", func(t *testing.T) {
		handlerCalled = false
		r := newRouter()
		r.PATCH("/requests/:id", withSession(session.Session{UserID: "a", Role: session.RoleAdmin}),
			middleware.RBACAuthorize(authz, rbac.ResourceRequest, rbac.ActionReview), ok)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/requests/1", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, handlerCalled)
	})

	t.Run("forbidden never reaches handler", func(t *testing.T) {
		handlerCalled = false
		r := newRouter()
		r.PATCH("/requests/:id", withSession(session.Session{UserID: "u", Role: session.RoleUser}),
			middleware.RBACAuthorize(authz, rbac.ResourceRequest, rbac.ActionReview), ok)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/requests/1", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, apperror.CodeForbidden, decode(t, w).Error.Code)
		assert.False(t, handlerCalled)
	})

	t.Run("no session", func(t *testing.T) {
		r := newRouter()
		r.PATCH("/requests/:id", middleware.RBACAuthorize(authz, rbac.ResourceRequest, rbac.ActionReview), ok)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/requests/1", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequestIDAndContextLogger(t *testing.T) {
	r := newRouter()
	r.Use(middleware.RequestID(), middleware.ContextLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) {
		assert.Equal(t, "rid-42", contextutil.GetRequestID(c.Request.Context()))
		assert.NotNil(t, contextutil.GetLogger(c.Request.Context(), nil))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.HeaderRequestID, "rid-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "rid-42", w.Header().Get(middleware.HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestRateLimitByUser(t *testing.T) {
	r := newRouter()
	r.GET("/x", withSession(session.Session{UserID: "u1", Role: session.RoleUser}),
		middleware.RateLimitByUser(rate.Every(time.Hour), 1),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperror.CodeTooMany, decode(t, w).Error.Code)
}

func TestRateLimitByIP(t *testing.T) {
	r := newRouter()
	r.POST("/login", middleware.RateLimitByIP(rate.Every(time.Hour), 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestIdempotency(t *testing.T) {
	const cacheKey = "idemp:/requests:u1:key-1"
	const lockKey = cacheKey + ":lock"

	setup := func(t *testing.T) (*gin.Engine, redismock.ClientMock, *int) {
		rdb, mock := redismock.NewClientMock()
		calls := 0
		r := newRouter()
		r.POST("/requests",
			withSession(session.Session{UserID: "u1", Role: session.RoleUser}),
			middleware.Idempotency(rdb),
			func(c *gin.Context) {
				calls++
				c.JSON(http.StatusCreated, gin.H{"ok": true})
			})
		return r, mock, &calls
	}

	post := func(r *gin.Engine) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/requests", nil)
		req.Header.Set(middleware.HeaderIdempotencyKey, "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("replays cached response", func(t *testing.T) {
		r, mock, calls := setup(t)
		mock.ExpectGet(cacheKey).SetVal(`{"status":201,"body":{"ok":true,"data":"cached"}}`)

		w := post(r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"ok":true,"data":"cached"}`, w.Body.String())
		assert.Equal(t, 0, *calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent duplicate conflicts", func(t *testing.T) {
		r, mock, calls := setup(t)
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(false)

		w := post(r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 0, *calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first request runs and is stored", func(t *testing.T) {
		r, mock, calls := setup(t)
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(true)
		mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
			ExpectSet(cacheKey, "", 24*time.Hour).SetVal("OK")
		mock.ExpectDel(lockKey).SetVal(1)

		w := post(r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, *calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without key passes through", func(t *testing.T) {
		r, mock, calls := setup(t)

		req := httptest.NewRequest(http.MethodPost, "/requests", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, *calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
