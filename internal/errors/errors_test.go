package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestDomainError_WrapAndMatch(t *testing.T) {
	cause := fmt.Errorf("duplicate key value violates unique constraint")
	wrapped := WrapError(ErrEmailExists, cause)

	if !errors.Is(wrapped, ErrEmailExists) {
		t.Error("Expected wrapped error to match its sentinel")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Expected wrapped error to expose its cause")
	}
	if errors.Is(wrapped, ErrUserNotFound) {
		t.Error("Expected no match against a different sentinel")
	}

	var domainErr *DomainError
	if !errors.As(wrapped, &domainErr) {
		t.Fatal("Expected errors.As to extract the domain error")
	}
	if domainErr.Code != "EMAIL_EXISTS" {
		t.Errorf("Expected code EMAIL_EXISTS, got %q", domainErr.Code)
	}
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "Nil error", err: nil, want: http.StatusOK},
		{name: "Invalid credentials", err: ErrInvalidCredentials, want: http.StatusUnauthorized},
		{name: "Account locked", err: ErrAccountLocked, want: http.StatusForbidden},
		{name: "Account not verified", err: ErrAccountNotVerified, want: http.StatusForbidden},
		{name: "Email exists", err: ErrEmailExists, want: http.StatusConflict},
		{name: "User not found", err: ErrUserNotFound, want: http.StatusNotFound},
		{name: "Invalid reset token", err: ErrInvalidResetToken, want: http.StatusBadRequest},
		{name: "Invalid refresh token", err: ErrInvalidRefreshToken, want: http.StatusUnauthorized},
		{name: "Self deletion", err: ErrSelfDeletion, want: http.StatusForbidden},
		{name: "Wrapped sentinel", err: WrapError(ErrEmailExists, errors.New("db error")), want: http.StatusConflict},
		{name: "Unknown error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	wrapped := WrapError(ErrInternal, errors.New("pq: connection refused"))
	if got := GetErrorMessage(wrapped); got != "internal server error" {
		t.Errorf("Expected the domain message, got %q", got)
	}

	if got := GetErrorMessage(errors.New("plain")); got != "plain" {
		t.Errorf("Expected the raw message, got %q", got)
	}
}
