package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	autherrors "github.com/jesser-selmi/idos-front/internal/auth/errors"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	"github.com/jesser-selmi/idos-front/internal/user"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Login(ctx context.Context, email, password string) (LoginResult, session.Session, error)
	Logout(ctx context.Context, sess session.Session) error
	Me(ctx context.Context, sess session.Session) (AuthResponse, error)
	DecodeToken(ctx context.Context, token string) (session.Session, error)
}

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByID(ctx context.Context, id string) (*user.User, error)
}

type service struct {
	users  UserFinder
	tokens TokenStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewService(users UserFinder, tokens TokenStore, secret string, ttl time.Duration, logger ...*zap.Logger) Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	return &service{
		users:  users,
		tokens: tokens,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: l,
	}
}

func (s *service) Login(ctx context.Context, email, password string) (LoginResult, session.Session, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("login user lookup failed", zap.Error(err))
			return LoginResult{}, session.Session{}, err
		}
		s.logger.Info("login refused", zap.String("reason", "unknown email"))
		return LoginResult{}, session.Session{}, autherrors.ErrInvalidCredentials
	}

	if !user.CheckPassword(u.Password, password) {
		s.logger.Info("login refused", zap.String("reason", "wrong password"), zap.String("user_id", u.ID.String()))
		return LoginResult{}, session.Session{}, autherrors.ErrInvalidCredentials
	}

	role, err := session.ParseRole(string(u.Role))
	if err != nil {
		s.logger.Error("login user has unknown role", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
		return LoginResult{}, session.Session{}, autherrors.ErrInvalidCredentials
	}

	sess := session.Session{
		UserID:    u.ID.String(),
		Role:      role,
		TokenID:   uuid.NewString(),
		ExpiresAt: s.now().Add(s.ttl).UTC().Truncate(time.Second),
	}

	token, err := s.generateToken(sess)
	if err != nil {
		s.logger.Error("login token generation failed", zap.Error(err))
		return LoginResult{}, session.Session{}, autherrors.ErrTokenGenerationFailed
	}

	s.logger.Info("login success", zap.String("user_id", sess.UserID), zap.String("role", string(role)))
	return LoginResult{
		AccessToken: token,
		ExpiresAt:   sess.ExpiresAt,
		User:        mapToResponse(*u),
	}, sess, nil
}

// Logout revokes the session token until it would have expired anyway.
func (s *service) Logout(ctx context.Context, sess session.Session) error {
	if sess.IsZero() || sess.TokenID == "" {
		return apperror.ErrUnauthorized
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.tokens.Revoke(ctx, sess.TokenID, ttl); err != nil {
		s.logger.Error("logout revoke failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return apperror.Wrap(err, apperror.CodeServiceUnavailable, apperror.ErrUnavailable.Message, apperror.ErrUnavailable.HTTPStatus)
	}

	s.logger.Info("logout success", zap.String("user_id", sess.UserID))
	return nil
}

func (s *service) Me(ctx context.Context, sess session.Session) (AuthResponse, error) {
	if sess.IsZero() {
		return AuthResponse{}, apperror.ErrUnauthorized
	}

	u, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AuthResponse{}, apperror.ErrUnauthorized
		}
		return AuthResponse{}, err
	}
	return mapToResponse(*u), nil
}

// DecodeToken verifies signature and expiry, checks the revocation list and
// reloads the user so deleted or re-roled accounts lose their tokens.
// A store failure is reported as unavailable, not as an
// authentication failure.
func (s *service) DecodeToken(ctx context.Context, token string) (session.Session, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	parsed, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return session.Session{}, autherrors.ErrInvalidToken
	}

	if _, err := uuid.Parse(claims.UserID); err != nil || claims.ID == "" || len(claims.Roles) == 0 {
		return session.Session{}, autherrors.ErrInvalidToken
	}
	role, err := session.ParseRole(claims.Roles[0])
	if err != nil {
		return session.Session{}, autherrors.ErrInvalidToken
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("token revocation check failed", zap.Error(err))
		return session.Session{}, apperror.Wrap(err, apperror.CodeServiceUnavailable, apperror.ErrUnavailable.Message, apperror.ErrUnavailable.HTTPStatus)
	}
	if revoked {
		return session.Session{}, autherrors.ErrTokenRevoked
	}

	// The account must still exist and still hold the role the token carries.
	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info("token refused", zap.String("reason", "user deleted"), zap.String("user_id", claims.UserID))
			return session.Session{}, autherrors.ErrInvalidToken
		}
		s.logger.Error("token user lookup failed", zap.Error(err))
		return session.Session{}, apperror.Wrap(err, apperror.CodeServiceUnavailable, apperror.ErrUnavailable.Message, apperror.ErrUnavailable.HTTPStatus)
	}
	if u.Role != role {
		s.logger.Info("token refused", zap.String("reason", "role changed"), zap.String("user_id", claims.UserID))
		return session.Session{}, autherrors.ErrInvalidToken
	}

	return session.Session{
		UserID:    claims.UserID,
		Role:      role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

func (s *service) generateToken(sess session.Session) (string, error) {
	claims := Claims{
		UserID: sess.UserID,
		Roles:  []string{string(sess.Role)},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.TokenID,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func mapToResponse(u user.User) AuthResponse {
	return AuthResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        string(u.Role),
		LandingPath: u.Role.LandingPath(),
	}
}
