package entities

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the roles the library recognises.
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash     string     `gorm:"size:255;not null" json:"-"`
	Role             UserRole   `gorm:"size:20;not null;default:user" json:"role"`
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// IsLocked reports whether the account is temporarily locked out after failed logins.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
