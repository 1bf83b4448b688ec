// Package session holds the caller identity every privileged operation
// receives explicitly.
package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleRH     Role = "RH"
	RoleUser   Role = "USER"
	RoleIntern Role = "INTERN"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleRH, RoleUser, RoleIntern:
		return r, nil
	default:
		return "", ErrUnknownRole
	}
}

func (r Role) String() string { return string(r) }

// IsReviewer reports whether the role takes part in the approval workflow.
func (r Role) IsReviewer() bool {
	return r == RoleAdmin || r == RoleRH
}

// LandingPath is where a client sends the user after login.
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleRH:
		return "/hr"
	case RoleUser, RoleIntern:
		return "/user"
	default:
		return "/"
	}
}

type Session struct {
	UserID    string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

func (s Session) IsZero() bool {
	return s.UserID == ""
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type contextKey struct{}

// WithContext attaches the session established by the auth middleware.
func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok && !s.IsZero()
}
