package apperrors_test

import (
	"fmt"
	"net/http"
	"testing"

	"grievance/backend/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *apperrors.AppError
		wantType apperrors.ErrorType
		wantCode int
	}{
		{"validation", apperrors.NewValidationError("bad"), apperrors.ErrorTypeValidation, http.StatusBadRequest},
		{"not found", apperrors.NewNotFoundError("missing"), apperrors.ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", apperrors.NewConflictError("dup"), apperrors.ErrorTypeConflict, http.StatusConflict},
		{"precondition", apperrors.NewPreconditionError("order"), apperrors.ErrorTypePrecondition, http.StatusConflict},
		{"forbidden", apperrors.NewForbiddenError("no"), apperrors.ErrorTypeForbidden, http.StatusForbidden},
		{"unauthorized", apperrors.NewUnauthorizedError("who"), apperrors.ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"internal", apperrors.NewInternalError("boom"), apperrors.ErrorTypeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantCode, tt.err.Code)
		})
	}
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "not_found: complaint not found", apperrors.NewNotFoundError("complaint not found").Error())
	assert.Equal(t, "validation_error: bad rating (rating must be 1-5)",
		apperrors.NewValidationError("bad rating", "rating must be 1-5").Error())
}

func TestGetAppError_Wrapped(t *testing.T) {
	err := fmt.Errorf("assign: %w", apperrors.NewPreconditionError("complaint is not assigned"))

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "complaint is not assigned", appErr.Message)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.False(t, apperrors.IsNotFound(err))
	assert.Nil(t, apperrors.GetAppError(fmt.Errorf("plain")))
}
