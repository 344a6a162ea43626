package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thesis-eval/internal/apperror"
)

type scoreItem struct {
	CriterionID string `json:"criterionId" validate:"required,uuid"`
	Score       *int   `json:"score" validate:"required"`
}

type bulkRequest struct {
	EvaluationID string      `json:"evaluationId" validate:"required,uuid"`
	Items        []scoreItem `json:"items" validate:"min=1,dive"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"notblank"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name  string
		input loginRequest
		valid bool
	}{
		{"valid struct", loginRequest{Email: "test@example.com", Password: "password123", Name: "Jo"}, true},
		{"missing required field", loginRequest{Email: "test@example.com", Name: "Jo"}, false},
		{"invalid email", loginRequest{Email: "invalid-email", Password: "password123", Name: "Jo"}, false},
		{"short password", loginRequest{Email: "test@example.com", Password: "short", Name: "Jo"}, false},
		{"blank name", loginRequest{Email: "test@example.com", Password: "password123", Name: "   "}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.Is(err, apperror.KindValidation))
		})
	}
}

func TestValidateStructReportsJSONPaths(t *testing.T) {
	err := ValidateStruct(bulkRequest{
		EvaluationID: "not-a-uuid",
		Items:        []scoreItem{{CriterionID: "", Score: nil}},
	})
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))

	var paths []string
	for _, f := range appErr.Fields {
		paths = append(paths, f.Field)
		assert.NotEmpty(t, f.Message)
	}
	assert.Equal(t, []string{"evaluationId", "items[0].criterionId", "items[0].score"}, paths)
}

func TestValidateStructEmptyItems(t *testing.T) {
	err := ValidateStruct(bulkRequest{EvaluationID: "6f1c3b5e-5a7e-4b8e-9a53-0c8f7c7d8a11"})
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "items", appErr.Fields[0].Field)
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("short"))
	assert.NoError(t, ValidatePassword("longenough"))
}

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", SanitizeEmail("  User@Example.COM\x00 "))
}
