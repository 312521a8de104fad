package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string   `json:"name" validate:"required"`
	Count int      `json:"count" validate:"gte=1"`
	Tags  []string `json:"tags" validate:"min=1,dive,required"`
	Mode  string   `json:"mode,omitempty" validate:"omitempty,oneof=a b"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sampleRequest{Name: "x", Count: 1, Tags: []string{"t"}}))

	err := ValidateStruct(sampleRequest{Count: 0, Tags: []string{""}, Mode: "c"})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "count must be greater than or equal to 1")
	assert.Contains(t, msg, "tags[0] is required")
	assert.Contains(t, msg, "mode must be one of [a b]")
}
