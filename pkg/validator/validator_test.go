package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doctorInput struct {
	Name        string `validate:"required,max=255"`
	PhoneNumber string `validate:"required,startswith=+,e164"`
}

type eventInput struct {
	Sender string `validate:"required,chat_address"`
}

func TestValidateFormatsErrors(t *testing.T) {
	v := NewValidator()

	err := v.Validate(doctorInput{PhoneNumber: "+0123"})
	require.Error(t, err)

	errs := v.FormatValidationErrors(err)
	assert.Equal(t, "Name is required", errs["Name"])
	assert.Equal(t, "PhoneNumber must be an E.164 phone number", errs["PhoneNumber"])
}

func TestValidatePhoneRequiresPlusPrefix(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(doctorInput{Name: "Dr. John Doe", PhoneNumber: "+14155551234"}))

	err := v.Validate(doctorInput{Name: "Dr. John Doe", PhoneNumber: "14155551234"})
	require.Error(t, err)
	assert.Equal(t, "PhoneNumber must start with +", v.FormatValidationErrors(err)["PhoneNumber"])
}

func TestValidateChatAddress(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(eventInput{Sender: "+14155551234"}))

	err := v.Validate(eventInput{Sender: "whatsapp:+14155551234"})
	require.Error(t, err)
	assert.Equal(t, "Sender must be a bare chat address", v.FormatValidationErrors(err)["Sender"])
}

func TestFormatValidationErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Empty(t, NewValidator().FormatValidationErrors(assert.AnError))
}
