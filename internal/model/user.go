package model

import (
	"time"

	"gorm.io/gorm"
)

// User is the account record for the booking platform. Lockout state and
// refresh-token material live on the row so a single SELECT covers login.
type User struct {
	gorm.Model
	FirstName           string     `gorm:"column:first_name;not null"`
	LastName            string     `gorm:"column:last_name;not null"`
	Phone               string     `gorm:"column:phone"`
	Email               string     `gorm:"column:email;unique;not null"`
	Password            string     `gorm:"column:password;not null"`
	Role                string     `gorm:"column:role;default:'user';not null"`
	IsVerified          bool       `gorm:"column:is_verified;default:false;not null"`
	LastLogin           time.Time  `gorm:"column:last_login"`
	FailedLoginCount    int        `gorm:"column:failed_login_count;default:0;not null"`
	LockedUntil         *time.Time `gorm:"column:locked_until;default:null"`
	TokenVersion        int        `gorm:"column:token_version;default:1;not null"`
	RefreshTokenHash    string     `gorm:"column:refresh_token_hash;default:null;index:idx_users_refresh_token_hash,where:refresh_token_hash IS NOT NULL"`
	RefreshTokenExpires *time.Time `gorm:"column:refresh_token_expires_at;default:null;index:idx_users_token_cleanup,where:refresh_token_expires_at IS NOT NULL"`
}

// IsLocked reports whether the account is currently under lockout.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
