package user

import (
	"time"

	"github.com/google/uuid"
	"github.com/jesser-selmi/idos-front/internal/request"
	"github.com/jesser-selmi/idos-front/internal/session"
	"gorm.io/gorm"
)

type User struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	FirstName          string         `gorm:"column:first_name;type:varchar(100);not null"`
	LastName           string         `gorm:"column:last_name;type:varchar(100);not null"`
	Email              string         `gorm:"column:email;type:text;not null;uniqueIndex:uq_users_email"`
	Password           string         `gorm:"column:password;type:text;not null"`
	Role               session.Role   `gorm:"column:role;type:varchar(16);not null"`
	TeleworkBalance    int            `gorm:"column:telework_balance;not null;default:0"`
	LeaveBalance       int            `gorm:"column:leave_balance;not null;default:0"`
	ProfileDescription string         `gorm:"column:profile_description;type:text"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (User) TableName() string {
	return "users"
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// BalanceDebit is the ledger row that makes a debit apply at most once per
// request.
type BalanceDebit struct {
	RequestID uuid.UUID    `gorm:"column:request_id;type:uuid;primaryKey"`
	UserID    uuid.UUID    `gorm:"column:user_id;type:uuid;not null;index"`
	Type      request.Type `gorm:"column:type;type:varchar(32);not null"`
	Days      int          `gorm:"column:days;not null"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (BalanceDebit) TableName() string {
	return "balance_debits"
}

func balanceColumn(t request.Type) (string, bool) {
	switch t {
	case request.TypeTelework:
		return "telework_balance", true
	case request.TypeLeave:
		return "leave_balance", true
	default:
		return "", false
	}
}
