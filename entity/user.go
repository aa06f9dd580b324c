package entity

import (
	"time"
)

// User represents a registered account
type User struct {
	ID           int          `db:"id" json:"id"`
	MobileNumber MobileNumber `db:"mobile_number" json:"mobileNumber"`
	PasswordHash string       `db:"password_hash" json:"-"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// TableName returns the table name for the User entity
func (User) TableName() string {
	return "users"
}

// PasswordHistory is a previous password hash kept to prevent reuse
type PasswordHistory struct {
	ID           int          `db:"id" json:"id"`
	MobileNumber MobileNumber `db:"mobile_number" json:"mobileNumber"`
	PasswordHash string       `db:"password_hash" json:"-"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// TableName returns the table name for the PasswordHistory entity
func (PasswordHistory) TableName() string {
	return "user_passwords"
}

// SetPasswordRequest is used by both registration and password reset
type SetPasswordRequest struct {
	MobileNumber    string `json:"mobileNumber" validate:"required,mobile_number"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginRequest represents a password login
type LoginRequest struct {
	MobileNumber string `json:"mobileNumber" validate:"required,mobile_number"`
	Password     string `json:"password" validate:"required"`
}

// ChangePasswordRequest represents a password change for a signed-in user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ValidatePasswordRequest asks for a format check only
type ValidatePasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// PasswordCheck reports which format rules a candidate password satisfies
type PasswordCheck struct {
	Length    bool `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
}

// PasswordResult is the outcome of a password mutation.
// Success is false with a Reason for business rejections.
type PasswordResult struct {
	Success bool
	Reason  Reason
	Message string
	Details *PasswordCheck
	User    *User
}

// PasswordResponse is the HTTP shape of a PasswordResult
type PasswordResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details *PasswordCheck `json:"details,omitempty"`
}

// UserResponse represents the user response
type UserResponse struct {
	ID           int          `json:"id"`
	MobileNumber MobileNumber `json:"mobileNumber"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// AuthResponse represents the authentication response with JWT token
type AuthResponse struct {
	Success   bool         `json:"success"`
	Token     string       `json:"token"`
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Message   string       `json:"message"`
}

// UserExistsResponse answers check-user-exists
type UserExistsResponse struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message"`
}

// NewUserResponse converts a User to its public shape
func NewUserResponse(user *User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		MobileNumber: user.MobileNumber,
		CreatedAt:    user.CreatedAt,
	}
}
