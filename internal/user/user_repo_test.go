package user_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jesser-selmi/idos-front/internal/request"
	"github.com/jesser-selmi/idos-front/internal/session"
	"github.com/jesser-selmi/idos-front/internal/user"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupUserRepoTest(t *testing.T) (*gorm.DB, user.Repository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	assert.NoError(t, err)
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	assert.NoError(t, db.AutoMigrate(&user.User{}, &user.BalanceDebit{}))

	return db, user.NewRepository(db)
}

func seedUser(t *testing.T, repo user.Repository, email string) *user.User {
	t.Helper()
	u := &user.User{
		ID:              uuid.New(),
		FirstName:       "Amal",
		LastName:        "Ben Salah",
		Email:           email,
		Password:        "hash",
		Role:            session.RoleUser,
		TeleworkBalance: 8,
		LeaveBalance:    20,
	}
	assert.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	_, repo := setupUserRepoTest(t)
	u := seedUser(t, repo, "amal@idos.test")

	byEmail, err := repo.FindByEmail(ctx, "AMAL@idos.test")
	assert.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	dup := &user.User{ID: uuid.New(), FirstName: "X", LastName: "Y", Email: "amal@idos.test", Password: "h", Role: session.RoleUser}
	assert.Error(t, repo.Create(ctx, dup))

	u.ProfileDescription = "Backend"
	assert.NoError(t, repo.Update(ctx, u))
	got, err := repo.FindByID(ctx, u.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, "Backend", got.ProfileDescription)

	assert.NoError(t, repo.Delete(ctx, u.ID.String()))
	_, err = repo.FindByID(ctx, u.ID.String())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, u.ID.String()), gorm.ErrRecordNotFound)

	all, err := repo.FindAll(ctx)
	assert.NoError(t, err)
	assert.Empty(t, all)
}

func TestUserRepository_BalanceDebit(t *testing.T) {
	ctx := context.Background()
	_, repo := setupUserRepoTest(t)
	u := seedUser(t, repo, "sami@idos.test")
	requestID := uuid.New()

	debit := &user.BalanceDebit{RequestID: requestID, UserID: u.ID, Type: request.TypeTelework, Days: 2}
	assert.NoError(t, repo.InsertBalanceDebit(ctx, debit))
	assert.NoError(t, repo.DebitBalance(ctx, u.ID.String(), "telework_balance", 2))

	again := &user.BalanceDebit{RequestID: requestID, UserID: u.ID, Type: request.TypeTelework, Days: 2}
	assert.Error(t, repo.InsertBalanceDebit(ctx, again))

	got, err := repo.FindByID(ctx, u.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, 6, got.TeleworkBalance)
	assert.Equal(t, 20, got.LeaveBalance)

	assert.ErrorIs(t, repo.DebitBalance(ctx, uuid.New().String(), "leave_balance", 1), gorm.ErrRecordNotFound)
}
