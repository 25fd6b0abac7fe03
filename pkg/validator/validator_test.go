package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type joinInput struct {
	RoomID string  `json:"roomId" validate:"required,max=64"`
	Name   string  `json:"name" validate:"max=8"`
	Time   float64 `json:"time" validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(joinInput{RoomID: "r1", Name: "bob"})
	assert.True(t, ok)
	assert.Empty(t, errs)

	errs, ok = v.Validate(joinInput{Name: "a very long name", Time: -1})
	require.False(t, ok)
	require.Len(t, errs, 3)
	assert.Equal(t, ValidationError{Field: "roomId", Code: "REQUIRED", Message: "roomId is required"}, errs[0])
	assert.Equal(t, "MAX", errs[1].Code)
	assert.Equal(t, "name", errs[1].Field)
	assert.Equal(t, "GTE", errs[2].Code)
	assert.Equal(t, "time must be greater than or equal to 0", errs[2].Message)
}
