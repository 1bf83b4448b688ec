// Package client is a typed API client that keeps an explicit session and
// local request state the way the web front end does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jesser-selmi/idos-front/internal/auth"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/response"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("client: no active session")

const defaultTimeout = 10 * time.Second

// Error is a failed API call. Retryable is set for transport failures,
// timeouts, an open breaker, 429 and 5xx answers.
type Error struct {
	Status    int
	Code      string
	Message   string
	Details   map[string]string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("client: %d %s: %s", e.Status, e.Code, e.Message)
	case e.Err != nil:
		return "client: " + e.Err.Error()
	default:
		return "client: " + e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.Named("client") }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	sess  session.Session
	token string
	user  auth.AuthResponse
}

// New builds a client for the API rooted at baseURL, e.g.
// http://localhost:3000/api/v1. Every call is bounded by timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
		logger:  zap.L().Named("client"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "idos-api",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}
	return c
}

// Session returns the active session. An expired session is dropped.
func (c *Client) Session() (session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess.IsZero() {
		return session.Session{}, false
	}
	if c.sess.Expired(c.now()) {
		c.clearLocked()
		return session.Session{}, false
	}
	return c.sess, true
}

// User is the profile returned at login.
func (c *Client) User() (auth.AuthResponse, bool) {
	if _, ok := c.Session(); !ok {
		return auth.AuthResponse{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, true
}

func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	var result auth.LoginResult
	err := c.call(ctx, http.MethodPost, "/auth/login", "", auth.LoginRequest{Email: email, Password: password}, &result, nil)
	if err != nil {
		return session.Session{}, err
	}

	role, err := session.ParseRole(result.User.Role)
	if err != nil {
		return session.Session{}, &Error{Message: "unexpected role " + result.User.Role, Err: err}
	}

	sess := session.Session{
		UserID:    result.User.ID,
		Role:      role,
		TokenID:   tokenID(result.AccessToken),
		ExpiresAt: result.ExpiresAt,
	}

	c.mu.Lock()
	c.sess = sess
	c.token = result.AccessToken
	c.user = result.User
	c.mu.Unlock()

	c.logger.Info("logged in", zap.String("user_id", sess.UserID), zap.String("role", string(role)))
	return sess, nil
}

// Logout revokes the token server side. The local session is cleared even
// when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}

	err = c.call(ctx, http.MethodPost, "/auth/logout", token, nil, nil, nil)

	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()

	return err
}

func (c *Client) clearLocked() {
	c.sess = session.Session{}
	c.token = ""
	c.user = auth.AuthResponse{}
}

func (c *Client) bearer() (string, error) {
	if _, ok := c.Session(); !ok {
		return "", ErrNoSession
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, nil
}

// do runs an authenticated call.
func (c *Client) do(ctx context.Context, method, path string, body, out any, meta *response.PaginationMeta) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}

	err = c.call(ctx, method, path, token, body, out, meta)

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		c.mu.Lock()
		c.clearLocked()
		c.mu.Unlock()
	}
	return err
}

type envelope struct {
	Ok    bool                     `json:"ok"`
	Data  json.RawMessage          `json:"data"`
	Meta  *response.PaginationMeta `json:"meta"`
	Error *response.ErrorBody      `json:"error"`
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) call(ctx context.Context, method, path, token string, body, out any, meta *response.PaginationMeta) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: "encode request body", Err: err}
		}
		payload = b
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, token, payload)
	})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return apiErr
		}
		// Breaker open or half-open limit reached.
		return &Error{Message: err.Error(), Retryable: true, Err: err}
	}

	raw := res.(rawResponse)
	if raw.status == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw.body, &env); err != nil {
		return &Error{Status: raw.status, Message: "decode response", Err: err}
	}

	if raw.status >= 400 || !env.Ok {
		return decodeError(raw.status, env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Status: raw.status, Message: "decode response data", Err: err}
		}
	}
	if meta != nil && env.Meta != nil {
		*meta = *env.Meta
	}
	return nil
}

// roundTrip only fails on outcomes that should count against the breaker.
// Client errors come back as a rawResponse.
func (c *Client) roundTrip(ctx context.Context, method, path, token string, payload []byte) (rawResponse, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return rawResponse{}, &Error{Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return rawResponse{}, &Error{Message: "request failed", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResponse{}, &Error{Status: resp.StatusCode, Message: "read response", Retryable: true, Err: err}
	}

	if resp.StatusCode >= 500 {
		var env envelope
		_ = json.Unmarshal(b, &env)
		return rawResponse{}, decodeError(resp.StatusCode, env.Error)
	}

	return rawResponse{status: resp.StatusCode, body: b}, nil
}

func decodeError(status int, body *response.ErrorBody) *Error {
	e := &Error{
		Status:    status,
		Message:   http.StatusText(status),
		Retryable: status >= 500 || status == http.StatusTooManyRequests,
	}
	if body == nil {
		return e
	}

	e.Code = body.Code
	e.Message = body.Message
	if details, ok := body.Details.(map[string]any); ok {
		e.Details = make(map[string]string, len(details))
		for k, v := range details {
			e.Details[k] = fmt.Sprint(v)
		}
	}
	return e
}

// tokenID reads the jti without verifying the signature; the server is the
// only party that checks it.
func tokenID(token string) string {
	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.ID
}
