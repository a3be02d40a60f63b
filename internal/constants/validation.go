package constants

// Field Length Limits
const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
	MinNameLength     = 2
	MaxNameLength     = 50
	MinPhoneLength    = 10
	MaxPhoneLength    = 15
	MaxEmailLength    = 255
)

// Token Settings
const (
	VerificationTokenBytes = 32
	ResetTokenBytes        = 32
)

// Account Lockout Defaults
const (
	DefaultMaxFailedLogins  = 5
	DefaultLockoutMinutes   = 15
	DefaultLockoutResetDays = 1
)
