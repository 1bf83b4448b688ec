package rbac

import (
	"net/http"
	"sort"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"go.uber.org/zap"
)

// Decision is the typed outcome of an authorization check.
type Decision struct {
	Allowed  bool
	Role     session.Role
	Resource string
	Action   string
}

func (d Decision) Permission() string {
	return d.Resource + ":" + d.Action
}

// Err is nil when allowed and a FORBIDDEN app error otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperror.ErrForbidden.WithDetails(map[string]string{
		"role":     string(d.Role),
		"required": d.Permission(),
	})
}

var ErrPolicyLoad = apperror.New(apperror.CodeInternalError, "Authorization policy could not be loaded", http.StatusInternalServerError)

type Service interface {
	Authorize(sess session.Session, resource, action string) Decision
	Enforce(req EnforceRequest) (bool, error)
	Permissions(role session.Role) []string
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.Logger
}

func NewService(enforcer *casbin.Enforcer, policy []RolePermissionRow, logger ...*zap.Logger) (Service, error) {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}

	s := &service{enforcer: enforcer, logger: l}
	if err := s.loadPolicy(policy); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *service) loadPolicy(policy []RolePermissionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enforcer.ClearPolicy()

	for _, role := range allRoles() {
		if _, err := s.enforcer.AddGroupingPolicy(string(role), AnyRole); err != nil {
			return apperror.Wrap(err, ErrPolicyLoad.Code, ErrPolicyLoad.Message, ErrPolicyLoad.HTTPStatus)
		}
	}

	for _, rp := range policy {
		if _, err := s.enforcer.AddPolicy(rp.Role, rp.Resource, rp.Action); err != nil {
			return apperror.Wrap(err, ErrPolicyLoad.Code, ErrPolicyLoad.Message, ErrPolicyLoad.HTTPStatus)
		}
	}

	s.logger.Debug("rbac policy loaded", zap.Int("permissions", len(policy)))
	return nil
}

// Authorize never reads domain state. An anonymous session or an enforcer
// error is a denial.
func (s *service) Authorize(sess session.Session, resource, action string) Decision {
	d := Decision{Role: sess.Role, Resource: resource, Action: action}
	if sess.IsZero() {
		return d
	}
	if _, err := session.ParseRole(string(sess.Role)); err != nil {
		return d
	}

	allowed, err := s.Enforce(EnforceRequest{Role: string(sess.Role), Resource: resource, Action: action})
	if err != nil {
		s.logger.Error("rbac enforce failed",
			zap.String("user_id", sess.UserID),
			zap.String("permission", d.Permission()),
			zap.Error(err),
		)
		return d
	}

	d.Allowed = allowed
	if !allowed {
		s.logger.Debug("rbac denied",
			zap.String("user_id", sess.UserID),
			zap.String("role", string(sess.Role)),
			zap.String("permission", d.Permission()),
		)
	}
	return d
}

func (s *service) Enforce(req EnforceRequest) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.enforcer.Enforce(req.Role, req.Resource, req.Action)
}

// Permissions lists "resource:action" pairs granted to role, sorted.
func (s *service) Permissions(role session.Role) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perms, err := s.enforcer.GetImplicitPermissionsForUser(string(role))
	if err != nil {
		s.logger.Error("rbac list permissions failed", zap.String("role", string(role)), zap.Error(err))
		return []string{}
	}

	out := make([]string, 0, len(perms))
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if len(p) < 3 {
			continue
		}
		key := p[1] + ":" + p[2]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
