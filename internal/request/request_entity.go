package request

import (
	"time"

	"github.com/google/uuid"
)

type Request struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Type            Type       `gorm:"column:type;type:varchar(32);not null"`
	Date            time.Time  `gorm:"column:date;type:date;not null"`
	Duration        int        `gorm:"column:duration;not null"`
	Status          Status     `gorm:"column:status;type:varchar(32);not null;index"`
	RHApprovedBy    *uuid.UUID `gorm:"column:rh_approved_by;type:uuid"`
	AdminApprovedBy *uuid.UUID `gorm:"column:admin_approved_by;type:uuid"`
	RejectedBy      *uuid.UUID `gorm:"column:rejected_by;type:uuid"`
	DecidedAt       *time.Time `gorm:"column:decided_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Owner *RequestOwner `gorm:"foreignKey:UserID;references:ID"`
}

func (Request) TableName() string {
	return "requests"
}

// Interval is the closed day range the request occupies.
func (r Request) Interval() Interval {
	return NewInterval(r.Date, r.Duration)
}

// RequestOwner is the minimal user projection joined for reviewer listings.
type RequestOwner struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FirstName string    `gorm:"column:first_name"`
	LastName  string    `gorm:"column:last_name"`
	Email     string    `gorm:"column:email"`
	// Not gorm.DeletedAt: preloads must still resolve removed owners.
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

func (RequestOwner) TableName() string {
	return "users"
}
