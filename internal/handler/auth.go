package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/internal/constants"
	"github.com/staybook/auth-service/internal/dto"
	apperrors "github.com/staybook/auth-service/internal/errors"
	"github.com/staybook/auth-service/internal/service"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
)

type AuthHandler struct {
	userService *service.UserService
}

func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

// Register handles account creation
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "Register")

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid registration request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	user, err := h.userService.Register(ctx, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Registration failed").
			String("email", req.Email).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Registration failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": constants.MsgRegistered,
		"user":    user,
	})
}

// VerifyEmail consumes an email-verification token
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "VerifyEmail")

	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	if err := h.userService.VerifyEmail(ctx, req.Token); err != nil {
		logger.WarnWithContext(ctx, "Email verification failed").
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Verification failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgVerified))
}

// ResendVerification re-issues the verification token. The response is the
// same whether or not the email exists.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "ResendVerification")

	var req dto.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	if err := h.userService.ResendVerification(ctx, req.Email); err != nil {
		logger.WarnWithContext(ctx, "Resend verification failed").
			String("email", req.Email).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Resend failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgVerificationResent))
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "Login")

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid login request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	response, err := h.userService.Login(ctx, req.Email, req.Password)
	if err != nil {
		logger.WarnWithContext(ctx, "Login failed").
			String("email", req.Email).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Authentication failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, response)
}

// RefreshToken rotates the refresh token and issues a new access token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "RefreshToken")

	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid refresh token request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	response, err := h.userService.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Token refresh failed").
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Token refresh failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, response)
}

// Logout invalidates the current session
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "Logout")

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	jti := c.GetString("token_id")
	tokenExpires, _ := c.Get("token_expires")
	expiresAt, _ := tokenExpires.(time.Time)

	if err := h.userService.Logout(ctx, userID, jti, expiresAt); err != nil {
		logger.ErrorWithContext(ctx, "Logout failed").
			Uint("user_id", userID).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Logout failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgLoggedOut))
}

// ForgotPassword issues a password reset token. Always responds success to
// avoid account enumeration.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "ForgotPassword")

	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	if err := h.userService.ForgotPassword(ctx, req.Email); err != nil {
		// Internal failures are logged but the response stays generic.
		logger.ErrorWithContext(ctx, "Forgot password processing failed").
			String("email", req.Email).
			Err(err).
			Log()
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgResetRequested))
}

// ResetPassword consumes a reset token and sets the new password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "ResetPassword")

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	if err := h.userService.ResetPassword(ctx, &req); err != nil {
		logger.WarnWithContext(ctx, "Password reset failed").
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Password reset failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgPasswordReset))
}
