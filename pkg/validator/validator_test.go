package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type createPayload struct {
	Title string `json:"title" validate:"required,max=200"`
	Type  string `json:"type" validate:"omitempty,oneof=success info warning error"`
}

type shoutPayload struct {
	Data string `json:"-" validate:"omitempty,loud"`
}

func TestValidateStructSuccess(t *testing.T) {
	require.NoError(t, ValidateStruct(createPayload{Title: "Saved", Type: "success"}))
}

func TestValidateStructReportsJSONNames(t *testing.T) {
	err := ValidateStruct(createPayload{Type: "fatal"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 2)
	require.Equal(t, "title", failures[0].Field)
	require.Equal(t, "required", failures[0].Tag)
	require.Equal(t, "type", failures[1].Field)
	require.Equal(t, "oneof", failures[1].Tag)
	require.Contains(t, err.Error(), "type failed on oneof=success info warning error")
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("loud", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "LOUD"
	}))

	require.NoError(t, ValidateStruct(shoutPayload{Data: "LOUD"}))

	err := ValidateStruct(shoutPayload{Data: "quiet"})
	require.Error(t, err)
	failures := err.(ValidationErrors)
	require.Equal(t, "Data", failures[0].Field)
}
