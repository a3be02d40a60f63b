package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/internal/constants"
	apperrors "github.com/staybook/auth-service/internal/errors"
	"github.com/staybook/auth-service/internal/service"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
)

// AdminHandler serves the admin user-management surface.
type AdminHandler struct {
	userService *service.UserService
}

func NewAdminHandler(userService *service.UserService) *AdminHandler {
	return &AdminHandler{
		userService: userService,
	}
}

func parseUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, "invalid user id"))
		return 0, false
	}
	return uint(id), true
}

// ListUsers returns a paginated, searchable user listing
func (h *AdminHandler) ListUsers(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "ListUsers")

	params := constants.ParsePaginationParams(c)
	search := c.DefaultQuery(constants.QueryParamSearch, constants.DefaultSearch)

	users, total, verifiedCount, lockedCount, pageTotal, err := h.userService.GetAll(ctx, params.Limit, params.Offset, search)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list users").
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to list users", apperrors.GetErrorMessage(err)))
		return
	}

	response := constants.BuildListResponse(total, params.Page, pageTotal, users)
	response["verified_count"] = verifiedCount
	response["locked_count"] = lockedCount

	c.JSON(http.StatusOK, response)
}

// GetUser returns one user by ID
func (h *AdminHandler) GetUser(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "GetUser")

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(ctx, id)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to fetch user", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser permanently removes a user
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "DeleteUser")

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	requestingUserID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	if err := h.userService.DeleteUser(ctx, id, requestingUserID); err != nil {
		logger.WarnWithContext(ctx, "User deletion failed").
			Uint("target_user_id", id).
			Err(err).
			Log()
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Deletion failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgDeleted))
}

// UnlockUser lifts a lockout immediately
func (h *AdminHandler) UnlockUser(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "UnlockUser")

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := h.userService.UnlockUser(ctx, id); err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Unlock failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Account unlocked"))
}

// RevokeSessions invalidates all of a user's sessions
func (h *AdminHandler) RevokeSessions(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "RevokeSessions")

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := h.userService.RevokeSessions(ctx, id); err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Session revocation failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Sessions revoked"))
}

// ListLoginAudits returns a user's recent auth events
func (h *AdminHandler) ListLoginAudits(c *gin.Context) {
	ctx := ctxutil.WithOperation(c.Request.Context(), "handler", "ListLoginAudits")

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	params := constants.ParsePaginationParams(c)

	entries, total, err := h.userService.ListLoginAudits(ctx, id, params.Limit, params.Offset)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		c.JSON(status, constants.BuildErrorResponse("Failed to list audit events", apperrors.GetErrorMessage(err)))
		return
	}

	pageTotal := 0
	if params.Limit > 0 {
		pageTotal = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}

	c.JSON(http.StatusOK, constants.BuildListResponse(total, params.Page, pageTotal, entries))
}
