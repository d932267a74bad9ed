package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerPayload struct {
	Username string `validate:"required,username"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"phone"`
	Status   string `validate:"omitempty,presence_status"`
}

func TestValidateStructAccepts(t *testing.T) {
	errs := ValidateStruct(registerPayload{
		Username: "alice_01",
		Email:    "alice@example.com",
		Phone:    "+15550001234",
		Status:   "away",
	})
	assert.Empty(t, errs)
}

func TestValidateStructRequiredFields(t *testing.T) {
	errs := ValidateStruct(registerPayload{})
	require.NotEmpty(t, errs)

	fields := ValidationErrorsToMap(errs)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
}

func TestUsernameValidation(t *testing.T) {
	valid := []string{"abc", "alice_01", "A_B_C_123"}
	invalid := []string{"ab", "has space", "too!weird", "x"}

	for _, u := range valid {
		errs := ValidateStruct(registerPayload{Username: u, Email: "a@b.co"})
		assert.Empty(t, errs, u)
	}
	for _, u := range invalid {
		errs := ValidateStruct(registerPayload{Username: u, Email: "a@b.co"})
		assert.NotEmpty(t, errs, u)
	}
}

func TestPhoneValidationAllowsEmpty(t *testing.T) {
	errs := ValidateStruct(registerPayload{Username: "alice", Email: "a@b.co", Phone: ""})
	assert.Empty(t, errs)

	errs = ValidateStruct(registerPayload{Username: "alice", Email: "a@b.co", Phone: "not-a-phone"})
	assert.NotEmpty(t, errs)
}

func TestPresenceStatusValidation(t *testing.T) {
	for _, s := range []string{"online", "away", "busy", "offline"} {
		errs := ValidateStruct(registerPayload{Username: "alice", Email: "a@b.co", Status: s})
		assert.Empty(t, errs, s)
	}

	errs := ValidateStruct(registerPayload{Username: "alice", Email: "a@b.co", Status: "invisible"})
	assert.NotEmpty(t, errs)
}
