package constants

// HTTP Header Names
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderUserAgent     = "User-Agent"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized       = "Unauthorized access"
	MsgForbidden          = "Access forbidden"
	MsgNotFound           = "Resource not found"
	MsgBadRequest         = "Invalid request"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgConflict           = "Resource already exists"
	MsgTooManyRequests    = "Too many requests"
)

// HTTP Success Messages
const (
	MsgRegistered         = "Registration successful, check your inbox for the verification link"
	MsgVerificationResent = "If an unverified account exists for that email, a new verification link has been sent"
	MsgVerified           = "Email verified successfully"
	MsgLoggedOut          = "Logout successful"
	MsgPasswordChanged    = "Password updated successfully"
	MsgResetRequested     = "If an account exists for that email, a reset link has been sent"
	MsgPasswordReset      = "Password has been reset, please log in again"
	MsgDeleted            = "Resource deleted successfully"
)
