package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/staybook/auth-service/pkg/validation"
)

// currentUserID reads the authenticated user's ID set by the JWT middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// translateValidationError turns binding errors into per-field messages.
// Non-validator errors pass through as-is.
func translateValidationError(err error) any {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		if custom := validation.CustomMessage(fe.Field()); custom != nil {
			if msg, ok := custom[fe.Tag()]; ok {
				fields[fe.Field()] = msg
				continue
			}
		}
		fields[fe.Field()] = validation.DefaultMessage(fe.Field(), fe.Tag())
	}
	return fields
}
