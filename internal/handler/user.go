package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/internal/constants"
	"github.com/staybook/auth-service/internal/dto"
	apperrors "github.com/staybook/auth-service/internal/errors"
	"github.com/staybook/auth-service/internal/service"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Me returns the authenticated user's profile
func (h *UserHandler) Me(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "Me")

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		logger.WarnWithContext(ctx, "Failed to fetch profile").
			Uint("user_id", userID).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to fetch profile", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's name and phone
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "UpdateProfile")

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	user, err := h.userService.UpdateProfile(ctx, userID, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Profile update failed").
			Uint("user_id", userID).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Profile update failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdatePassword changes the authenticated user's password
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "UpdatePassword")

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	var req dto.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", translateValidationError(err)))
		return
	}

	if err := h.userService.UpdatePassword(ctx, userID, &req); err != nil {
		logger.WarnWithContext(ctx, "Password change failed").
			Uint("user_id", userID).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Password change failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgPasswordChanged))
}
