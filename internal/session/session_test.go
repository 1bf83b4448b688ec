package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, err := session.ParseRole(" rh ")
	assert.NoError(t, err)
	assert.Equal(t, session.RoleRH, r)

	_, err = session.ParseRole("MANAGER")
	assert.ErrorIs(t, err, session.ErrUnknownRole)
}

func TestRole_LandingPath(t *testing.T) {
	assert.Equal(t, "/admin", session.RoleAdmin.LandingPath())
	assert.Equal(t, "/hr", session.RoleRH.LandingPath())
	assert.Equal(t, "/user", session.RoleUser.LandingPath())
	assert.Equal(t, "/user", session.RoleIntern.LandingPath())
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, session.Session{UserID: "u"}.Expired(now))
	assert.True(t, session.Session{UserID: "u", ExpiresAt: now}.Expired(now))
	assert.False(t, session.Session{UserID: "u", ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, session.Session{}.IsZero())
}

func TestFromContext(t *testing.T) {
	_, ok := session.FromContext(context.Background())
	assert.False(t, ok)

	ctx := session.WithContext(context.Background(), session.Session{UserID: "u1", Role: session.RoleUser})
	got, ok := session.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
}
