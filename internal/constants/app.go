package constants

// Application Information
const (
	AppName    = "Staybook Auth Service"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Default Application Settings
const (
	DefaultPort        = "8080"
	DefaultEnvironment = EnvDevelopment
)

// User Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Redis Key Prefixes
const (
	KeyPrefix         = "auth:"
	KeyTokenBlacklist = KeyPrefix + "blacklist:"
)

// Audit Event Types
const (
	AuditLogin          = "login"
	AuditLoginFailed    = "login_failed"
	AuditLockout        = "lockout"
	AuditLogout         = "logout"
	AuditRefresh        = "refresh"
	AuditPasswordReset  = "password_reset"
	AuditPasswordChange = "password_change"
	AuditEmailVerified  = "email_verified"
	AuditSessionsRevoke = "sessions_revoked"
)
