package models

import (
	"strings"

	dErrors "reconcile/pkg/domain-errors"
)

// Observation is an inbound (email, phone) pair. At least one field is
// present on every Observation built by NewObservation.
type Observation struct {
	email       string
	phoneNumber string
}

// NewObservation trims both fields and rejects observations that carry
// neither an email nor a phone number.
func NewObservation(email, phoneNumber string) (Observation, error) {
	obs := Observation{
		email:       strings.TrimSpace(email),
		phoneNumber: strings.TrimSpace(phoneNumber),
	}
	if obs.IsZero() {
		return Observation{}, dErrors.New(dErrors.CodeValidation, "email or phoneNumber is required")
	}
	return obs, nil
}

func (o Observation) Email() string       { return o.email }
func (o Observation) PhoneNumber() string { return o.phoneNumber }
func (o Observation) HasEmail() bool      { return o.email != "" }
func (o Observation) HasPhone() bool      { return o.phoneNumber != "" }

// IsZero reports whether neither field is present.
func (o Observation) IsZero() bool {
	return o.email == "" && o.phoneNumber == ""
}

// Matches reports whether c stores exactly this pair, absent fields included.
func (o Observation) Matches(c *Contact) bool {
	return c.Email == o.email && c.PhoneNumber == o.phoneNumber
}
