package validation_test

import (
	"testing"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Reason   string `json:"reason" validate:"min=10"`
	Rating   int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Priority string `json:"priority" validate:"omitempty,oneof=Critical High Medium Low"`
	ID       uint   `json:"id" validate:"required"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantMsg string
	}{
		{"short reason", sample{Reason: "too short", ID: 1}, "reason must be at least 10 characters long"},
		{"rating high", sample{Reason: "long enough reason", Rating: 6, ID: 1}, "rating must be less than or equal to 5"},
		{"bad priority", sample{Reason: "long enough reason", Priority: "Urgent", ID: 1}, "priority must be one of [Critical High Medium Low]"},
		{"missing id", sample{Reason: "long enough reason"}, "id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Struct(tt.in)

			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}

	assert.NoError(t, validation.Struct(sample{Reason: "long enough reason", Rating: 3, ID: 1}))
}
