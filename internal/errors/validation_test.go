package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "candidate_name", Message: "is required", Value: ""}

	assert.Equal(t, "candidate_name", err.Field)
	assert.Equal(t, "is required", err.Message)
	assert.Equal(t, "", err.Value)
	assert.Equal(t, "validation error on field 'candidate_name': is required", err.Error())
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, ValidationError{Field: "field1", Message: "message1"})
	assert.Equal(t, "validation failed: field1 message1", errs.Error())

	errs = append(errs, ValidationError{Field: "field2", Message: "message2"})
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestToValidationErrors(t *testing.T) {
	type sample struct {
		FaceCount int      `validate:"min=0"`
		Labels    []string `validate:"max=1"`
	}

	err := validator.New().Struct(sample{FaceCount: -2, Labels: []string{"a", "b"}})
	require.Error(t, err)

	errs := ToValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "FaceCount", errs[0].Field)
	assert.Equal(t, "must be at least 0", errs[0].Message)
	assert.Equal(t, "min", errs[0].Rule)
	assert.Equal(t, "must be at most 1", errs[1].Message)

	assert.Empty(t, ToValidationErrors(assert.AnError))
}
