package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LoginAudit records authentication events (logins, failures, lockouts,
// refreshes, logouts). Details holds event-specific extras as JSON, e.g.
// the failure count that triggered a lockout.
type LoginAudit struct {
	gorm.Model
	UserID    uint           `gorm:"column:user_id;index:idx_login_audits_user"`
	Email     string         `gorm:"column:email;not null"`
	Event     string         `gorm:"column:event;not null;index:idx_login_audits_event"`
	ClientIP  string         `gorm:"column:client_ip"`
	UserAgent string         `gorm:"column:user_agent"`
	Details   datatypes.JSON `gorm:"column:details"`
}
