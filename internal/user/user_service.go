package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jesser-selmi/idos-front/internal/rbac"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
	usererrors "github.com/jesser-selmi/idos-front/internal/user/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	UsersCacheKey = "users:all"
	usersCacheTTL = 10 * time.Minute
)

type Service interface {
	List(ctx context.Context, sess session.Session) ([]UserResponse, error)
	GetByID(ctx context.Context, sess session.Session, id string) (UserResponse, error)
	Create(ctx context.Context, sess session.Session, req CreateUserRequest) (UserResponse, error)
	Update(ctx context.Context, sess session.Session, id string, req UpdateUserRequest) (UserResponse, error)
	Delete(ctx context.Context, sess session.Session, id string) error
	ChangePassword(ctx context.Context, sess session.Session, req ChangePasswordRequest) error

	ApplyBalanceDebit(ctx context.Context, in BalanceDebitInput) (bool, error)
	EnsureAdmin(ctx context.Context, seed AdminSeed) error
}

type Authorizer interface {
	Authorize(sess session.Session, resource, action string) rbac.Decision
}

type service struct {
	db     *sql.DB
	repo   Repository
	authz  Authorizer
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, authz Authorizer, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("user.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("user.service")
	}
	return &service{
		db:     db,
		repo:   repo,
		authz:  authz,
		rdb:    rdb,
		sf:     &singleflight.Group{},
		logger: l,
	}
}

func (s *service) List(ctx context.Context, sess session.Session) ([]UserResponse, error) {
	if err := s.authz.Authorize(sess, rbac.ResourceUser, rbac.ActionRead).Err(); err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, UsersCacheKey).Result(); err == nil {
			var resp []UserResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(UsersCacheKey, func() (interface{}, error) {
		users, err := s.repo.FindAll(ctx)
		if err != nil {
			return nil, err
		}

		resp := mapToListResponse(users)
		if s.rdb != nil {
			if data, err := json.Marshal(resp); err == nil {
				if err := s.rdb.Set(ctx, UsersCacheKey, data, usersCacheTTL).Err(); err != nil {
					s.logger.Warn("store users cache failed", zap.Error(err))
				}
			}
		}
		return resp, nil
	})
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, err
	}

	return v.([]UserResponse), nil
}

// GetByID always lets users read themselves.
func (s *service) GetByID(ctx context.Context, sess session.Session, id string) (UserResponse, error) {
	if sess.UserID != id {
		if err := s.authz.Authorize(sess, rbac.ResourceUser, rbac.ActionRead).Err(); err != nil {
			return UserResponse{}, err
		}
	} else if err := s.authz.Authorize(sess, rbac.ResourceProfile, rbac.ActionRead).Err(); err != nil {
		return UserResponse{}, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return UserResponse{}, usererrors.ErrInvalidUserID
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return UserResponse{}, mapRepositoryError(err)
	}
	return mapToResponse(*u), nil
}

func (s *service) Create(ctx context.Context, sess session.Session, req CreateUserRequest) (UserResponse, error) {
	if err := s.authz.Authorize(sess, rbac.ResourceUser, rbac.ActionCreate).Err(); err != nil {
		return UserResponse{}, err
	}

	s.logger.Debug("create user requested",
		zap.String("actor_id", sess.UserID),
		zap.String("email", req.Email),
		zap.String("role", req.Role),
	)

	u, err := s.newUser(req)
	if err != nil {
		return UserResponse{}, err
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("create user persist failed", zap.Error(err))
		return UserResponse{}, mapRepositoryError(err)
	}

	s.invalidateList(ctx)
	s.logger.Info("create user success",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
	)
	return mapToResponse(*u), nil
}

func (s *service) newUser(req CreateUserRequest) (*User, error) {
	role, err := session.ParseRole(req.Role)
	if err != nil {
		return nil, usererrors.ErrInvalidRole
	}

	var confirm *string
	if req.ConfirmPassword != "" {
		confirm = &req.ConfirmPassword
	}
	if err := ValidatePassword(req.Password, confirm); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	return &User{
		ID:                 uuid.New(),
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Password:           hashed,
		Role:               role,
		TeleworkBalance:    req.TeleworkBalance,
		LeaveBalance:       req.LeaveBalance,
		ProfileDescription: req.ProfileDescription,
	}, nil
}

// Update applies a partial change. Holders of user:update may change any
// field; everyone else may only change their own password.
func (s *service) Update(ctx context.Context, sess session.Session, id string, req UpdateUserRequest) (UserResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return UserResponse{}, usererrors.ErrInvalidUserID
	}

	canUpdateAny := s.authz.Authorize(sess, rbac.ResourceUser, rbac.ActionUpdate).Allowed
	if !canUpdateAny {
		if err := s.authz.Authorize(sess, rbac.ResourceProfile, rbac.ActionUpdatePassword).Err(); err != nil {
			return UserResponse{}, err
		}
		if sess.UserID != id || !req.passwordOnly() || req.Password == nil {
			s.logger.Warn("update user refused",
				zap.String("actor_id", sess.UserID),
				zap.String("user_id", id),
			)
			return UserResponse{}, usererrors.ErrPasswordOnly
		}
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return UserResponse{}, mapRepositoryError(err)
	}

	if err := s.applyUpdate(u, req); err != nil {
		return UserResponse{}, err
	}

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error("update user persist failed", zap.String("user_id", id), zap.Error(err))
		return UserResponse{}, mapRepositoryError(err)
	}

	s.invalidateList(ctx)
	s.logger.Info("update user success", zap.String("user_id", id), zap.String("actor_id", sess.UserID))
	return mapToResponse(*u), nil
}

func (s *service) applyUpdate(u *User, req UpdateUserRequest) error {
	if req.Role != nil {
		role, err := session.ParseRole(*req.Role)
		if err != nil {
			return usererrors.ErrInvalidRole
		}
		u.Role = role
	}
	if req.Password != nil {
		if err := ValidatePassword(*req.Password, req.ConfirmPassword); err != nil {
			return err
		}
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			return err
		}
		u.Password = hashed
	}
	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.TeleworkBalance != nil {
		u.TeleworkBalance = *req.TeleworkBalance
	}
	if req.LeaveBalance != nil {
		u.LeaveBalance = *req.LeaveBalance
	}
	if req.ProfileDescription != nil {
		u.ProfileDescription = *req.ProfileDescription
	}
	return nil
}

func (s *service) Delete(ctx context.Context, sess session.Session, id string) error {
	if err := s.authz.Authorize(sess, rbac.ResourceUser, rbac.ActionDelete).Err(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return usererrors.ErrInvalidUserID
	}
	if sess.UserID == id {
		return usererrors.ErrCannotDeleteSelf
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("delete user failed", zap.String("user_id", id), zap.Error(err))
		return mapRepositoryError(err)
	}

	s.invalidateList(ctx)
	s.logger.Info("delete user success", zap.String("user_id", id), zap.String("actor_id", sess.UserID))
	return nil
}

func (s *service) ChangePassword(ctx context.Context, sess session.Session, req ChangePasswordRequest) error {
	if err := s.authz.Authorize(sess, rbac.ResourceProfile, rbac.ActionUpdatePassword).Err(); err != nil {
		return err
	}
	if err := ValidatePassword(req.NewPassword, &req.ConfirmPassword); err != nil {
		return err
	}

	u, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		return mapRepositoryError(err)
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", zap.Error(err))
		return err
	}
	u.Password = hashed

	if err := s.repo.Update(ctx, u); err != nil {
		return mapRepositoryError(err)
	}

	s.logger.Info("change password success", zap.String("user_id", sess.UserID))
	return nil
}

// ApplyBalanceDebit debits the balance matching in.Type once per request.
// It reports false when the debit was already recorded.
func (s *service) ApplyBalanceDebit(ctx context.Context, in BalanceDebitInput) (bool, error) {
	column, ok := balanceColumn(in.Type)
	if !ok {
		return false, usererrors.ErrUnknownBalance
	}
	requestID, err := uuid.Parse(in.RequestID)
	if err != nil {
		return false, apperror.InvalidField("RequestID")
	}
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return false, usererrors.ErrInvalidUserID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("balance debit begin tx failed", zap.Error(err))
		return false, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := qtx.InsertBalanceDebit(ctx, &BalanceDebit{
		RequestID: requestID,
		UserID:    userID,
		Type:      in.Type,
		Days:      in.Days,
	}); err != nil {
		if isUniqueViolation(err) {
			s.logger.Info("balance debit already applied", zap.String("request_id", in.RequestID))
			return false, nil
		}
		s.logger.Error("balance debit ledger insert failed", zap.Error(err))
		return false, err
	}

	if err := qtx.DebitBalance(ctx, in.UserID, column, in.Days); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, usererrors.ErrUserNotFound
		}
		s.logger.Error("balance debit update failed", zap.Error(err))
		return false, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("balance debit commit failed", zap.Error(err))
		return false, err
	}

	s.invalidateList(ctx)
	s.logger.Info("balance debit applied",
		zap.String("request_id", in.RequestID),
		zap.String("user_id", in.UserID),
		zap.String("column", column),
		zap.Int("days", in.Days),
	)
	return true, nil
}

// EnsureAdmin creates the initial administrator unless the email is taken.
func (s *service) EnsureAdmin(ctx context.Context, seed AdminSeed) error {
	_, err := s.repo.FindByEmail(ctx, seed.Email)
	if err == nil {
		s.logger.Debug("initial admin already present", zap.String("email", seed.Email))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	u, err := s.newUser(CreateUserRequest{
		FirstName: seed.FirstName,
		LastName:  seed.LastName,
		Email:     seed.Email,
		Password:  seed.Password,
		Role:      string(session.RoleAdmin),
	})
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}

	s.invalidateList(ctx)
	s.logger.Info("initial admin created", zap.String("email", u.Email))
	return nil
}

func (s *service) invalidateList(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, UsersCacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate users cache",
			zap.Error(err),
			zap.String("key", UsersCacheKey),
		)
	}
}

func mapToResponse(u User) UserResponse {
	return UserResponse{
		ID:                 u.ID.String(),
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Email:              u.Email,
		Role:               string(u.Role),
		TeleworkBalance:    u.TeleworkBalance,
		LeaveBalance:       u.LeaveBalance,
		ProfileDescription: u.ProfileDescription,
		CreatedAt:          u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func mapToListResponse(users []User) []UserResponse {
	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, mapToResponse(u))
	}
	return resp
}
