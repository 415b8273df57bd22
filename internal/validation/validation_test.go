package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername_Reserved(t *testing.T) {
	assert.Error(t, ValidateUsername("Admin"))
	assert.NoError(t, ValidateUsername("administrator"))
}

type respondRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline"`
	Note   string `json:"note" validate:"max=5"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	assert.NoError(t, Struct(respondRequest{Action: "accept"}))

	err := Struct(respondRequest{})
	if assert.Error(t, err) {
		assert.Equal(t, "action is required", err.Error())
	}

	err = Struct(respondRequest{Action: "maybe"})
	if assert.Error(t, err) {
		assert.Equal(t, "action must be one of: accept decline", err.Error())
	}

	err = Struct(respondRequest{Action: "decline", Note: "toolong"})
	if assert.Error(t, err) {
		assert.Equal(t, "note must be at most 5 characters", err.Error())
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.co", NormalizeEmail("  A@B.Co "))
}
