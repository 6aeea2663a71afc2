package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFeedbackBody struct {
	Question string `json:"question" validate:"required"`
	Solution string `json:"solution" validate:"required"`
	Comments string `json:"comments,omitempty" validate:"max=10"`
	Topic    string `validate:"omitempty,oneof=algebra calculus"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := testFeedbackBody{Question: "Solve x + 1 = 2", Solution: "x = 1"}

		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("missing required field uses json name", func(t *testing.T) {
		s := testFeedbackBody{Solution: "x = 1"}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "question is required", fields["question"])
	})

	t.Run("max length", func(t *testing.T) {
		s := testFeedbackBody{Question: "q", Solution: "s", Comments: "far too long a comment"}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.Equal(t, "comments must be at most 10", GetValidationFields(err)["comments"])
	})

	t.Run("field without json tag keeps struct name", func(t *testing.T) {
		s := testFeedbackBody{Question: "q", Solution: "s", Topic: "poetry"}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.Contains(t, GetValidationFields(err), "Topic")
	})
}

func TestNewValidationError(t *testing.T) {
	err := ValidateStruct(&testFeedbackBody{})
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)

	assert.Equal(t, "Validation failed", validationErr.Message)
	assert.Contains(t, validationErr.Fields, "question")
	assert.Contains(t, validationErr.Fields, "solution")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "Test validation error", Fields: map[string]string{"field1": "error1"}}

	assert.Equal(t, "Test validation error", err.Error())
}

func TestGetValidationFields(t *testing.T) {
	t.Run("gets fields from validation error", func(t *testing.T) {
		fields := map[string]string{"field1": "error1", "field2": "error2"}
		err := &ValidationError{Message: "test", Fields: fields}

		assert.Equal(t, fields, GetValidationFields(err))
	})

	t.Run("returns nil for non-validation error", func(t *testing.T) {
		assert.Nil(t, GetValidationFields(assert.AnError))
		assert.False(t, IsValidationError(assert.AnError))
	})
}

func TestFieldsAsDetails(t *testing.T) {
	assert.Nil(t, FieldsAsDetails(nil))

	details := FieldsAsDetails(map[string]string{"question": "question is required"})
	assert.Equal(t, "question is required", details["question"])
}
