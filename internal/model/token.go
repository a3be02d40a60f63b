package model

import (
	"time"

	"gorm.io/gorm"
)

// ActionToken kinds. One table carries both email-verification and
// password-reset tokens; Kind disambiguates.
const (
	TokenKindVerification  = "verification"
	TokenKindPasswordReset = "password_reset"
)

// ActionToken is a single-use, expiring token mailed to a user. Only the
// SHA-256 hash of the token is stored; the plaintext exists solely in the
// email link.
type ActionToken struct {
	gorm.Model
	UserID    uint       `gorm:"column:user_id;not null;index:idx_action_tokens_user"`
	Kind      string     `gorm:"column:kind;not null;index:idx_action_tokens_user"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index:idx_action_tokens_expiry"`
	UsedAt    *time.Time `gorm:"column:used_at;default:null"`
}

// IsExpired reports whether the token has passed its expiry.
func (t *ActionToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsUsable reports whether the token can still be consumed.
func (t *ActionToken) IsUsable(now time.Time) bool {
	return t.UsedAt == nil && !t.IsExpired(now)
}
