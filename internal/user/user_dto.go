package user

import "github.com/jesser-selmi/idos-front/internal/request"

type CreateUserRequest struct {
	FirstName          string `json:"first_name" binding:"required"`
	LastName           string `json:"last_name" binding:"required"`
	Email              string `json:"email" binding:"required,email"`
	Password           string `json:"password" binding:"required"`
	ConfirmPassword    string `json:"confirm_password"`
	Role               string `json:"role" binding:"required"`
	TeleworkBalance    int    `json:"telework_balance" binding:"gte=0"`
	LeaveBalance       int    `json:"leave_balance" binding:"gte=0"`
	ProfileDescription string `json:"profile_description"`
}

// UpdateUserRequest is partial: nil fields are left untouched.
type UpdateUserRequest struct {
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Email              *string `json:"email" binding:"omitempty,email"`
	Role               *string `json:"role"`
	Password           *string `json:"password"`
	ConfirmPassword    *string `json:"confirm_password"`
	TeleworkBalance    *int    `json:"telework_balance" binding:"omitempty,gte=0"`
	LeaveBalance       *int    `json:"leave_balance" binding:"omitempty,gte=0"`
	ProfileDescription *string `json:"profile_description"`
}

func (r UpdateUserRequest) passwordOnly() bool {
	return r.FirstName == nil &&
		r.LastName == nil &&
		r.Email == nil &&
		r.Role == nil &&
		r.TeleworkBalance == nil &&
		r.LeaveBalance == nil &&
		r.ProfileDescription == nil
}

type ChangePasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type UserResponse struct {
	ID                 string `json:"id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	TeleworkBalance    int    `json:"telework_balance"`
	LeaveBalance       int    `json:"leave_balance"`
	ProfileDescription string `json:"profile_description,omitempty"`
	CreatedAt          string `json:"created_at"`
}

type BalanceDebitInput struct {
	RequestID string
	UserID    string
	Type      request.Type
	Days      int
}

type AdminSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}
