package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"strings"

	"reconcile/internal/contact/models"
	dErrors "reconcile/pkg/domain-errors"
)

const (
	maxEmailLength = 320
	maxPhoneLength = 64
)

// PhoneNumber accepts a JSON string, number or null. Numbers are written in
// plain decimal form, so 123456, 1.23456e5 and "123456" are the same phone
// number. A numeric zero counts as absent.
type PhoneNumber string

func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PhoneNumber(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("phoneNumber must be a string or a number")
	}
	text, err := decimalText(n)
	if err != nil {
		return err
	}
	*p = PhoneNumber(text)
	return nil
}

// decimalText renders a JSON number without exponent or trailing zeros.
// Integer literals keep their digits so long numbers do not lose precision.
func decimalText(n json.Number) (string, error) {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		if i == 0 {
			return "", nil
		}
		return strconv.FormatInt(i, 10), nil
	}
	f, ok := new(big.Float).SetPrec(256).SetString(n.String())
	if !ok {
		return "", errors.New("phoneNumber must be a string or a number")
	}
	if f.Sign() == 0 {
		return "", nil
	}
	if f.IsInt() {
		i, _ := f.Int(nil)
		return i.String(), nil
	}
	v, _ := f.Float64()
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// IdentifyRequest is the HTTP request body for POST /identify.
type IdentifyRequest struct {
	Email       *string     `json:"email"`
	PhoneNumber PhoneNumber `json:"phoneNumber"`

	// Parsed value (populated by Validate)
	observation models.Observation
}

// Normalize trims whitespace from both identifiers.
func (r *IdentifyRequest) Normalize() {
	if r.Email != nil {
		trimmed := strings.TrimSpace(*r.Email)
		r.Email = &trimmed
	}
	r.PhoneNumber = PhoneNumber(strings.TrimSpace(string(r.PhoneNumber)))
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *IdentifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	email := ""
	if r.Email != nil {
		email = *r.Email
	}

	// Size validation (fail fast)
	if len(email) > maxEmailLength {
		return dErrors.New(dErrors.CodeValidation, "email must be at most 320 characters")
	}
	if len(r.PhoneNumber) > maxPhoneLength {
		return dErrors.New(dErrors.CodeValidation, "phoneNumber must be at most 64 characters")
	}

	obs, err := models.NewObservation(email, string(r.PhoneNumber))
	if err != nil {
		return err
	}
	r.observation = obs
	return nil
}

// Observation returns the validated observation.
func (r *IdentifyRequest) Observation() models.Observation {
	return r.observation
}
