package domain

import (
	"strconv"
	"strings"

	dErrors "reconcile/pkg/domain-errors"
)

// ContactID identifies a contact row. IDs are assigned by the store, start at
// 1 and are never reused.
type ContactID int64

// ParseContactID parses a positive decimal contact ID at a trust boundary.
func ParseContactID(s string) (ContactID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "contact id is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "contact id must be an integer")
	}
	if n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "contact id must be positive")
	}
	return ContactID(n), nil
}

func (id ContactID) Int64() int64 {
	return int64(id)
}

func (id ContactID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsZero reports whether the ID is unset.
func (id ContactID) IsZero() bool {
	return id == 0
}
