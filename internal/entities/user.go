package entities

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// UserStatus tracks the admin-approval signup flow.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusDenied   UserStatus = "denied"
)

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:255" json:"email"`
	Name         string     `gorm:"size:100" json:"name"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	Role         UserRole   `gorm:"size:20;default:user" json:"role"`
	Status       UserStatus `gorm:"index;size:20;default:approved" json:"status"`

	// API token (only the hash is stored)
	TokenHash      *string    `gorm:"uniqueIndex;size:64" json:"-"`
	TokenCreatedAt *time.Time `json:"-"`

	// Brute-force protection
	FailedLoginCount int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsApproved() bool {
	return u.Status == UserStatusApproved
}

func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}
