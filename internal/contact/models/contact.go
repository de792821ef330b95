package models

import (
	"time"

	id "reconcile/pkg/domain"
)

// LinkPrecedence marks a contact as the canonical representative of its
// cluster or as a member pointing at one.
type LinkPrecedence string

const (
	LinkPrecedencePrimary   LinkPrecedence = "primary"
	LinkPrecedenceSecondary LinkPrecedence = "secondary"
)

func (p LinkPrecedence) IsValid() bool {
	return p == LinkPrecedencePrimary || p == LinkPrecedenceSecondary
}

// Contact is a single observed identity fragment.
//
// Invariants:
//   - Email and PhoneNumber are never rewritten after insert; "" means absent
//   - LinkedID is set iff LinkPrecedence is secondary, and always names a primary
//   - CreatedAt is immutable and, with ID as tie-break, decides which primary wins a merge
//   - A primary may be demoted once; a secondary is never promoted
type Contact struct {
	ID             id.ContactID   `json:"id"`
	Email          string         `json:"email,omitempty"`
	PhoneNumber    string         `json:"phoneNumber,omitempty"`
	LinkPrecedence LinkPrecedence `json:"linkPrecedence"`
	LinkedID       id.ContactID   `json:"linkedId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (c *Contact) IsPrimary() bool {
	return c.LinkPrecedence == LinkPrecedencePrimary
}

// RootID is the primary this contact belongs to: itself when primary,
// otherwise its LinkedID.
func (c *Contact) RootID() id.ContactID {
	if c.IsPrimary() {
		return c.ID
	}
	return c.LinkedID
}

// Older reports whether c precedes other in the "oldest wins" total order.
func (c *Contact) Older(other *Contact) bool {
	if !c.CreatedAt.Equal(other.CreatedAt) {
		return c.CreatedAt.Before(other.CreatedAt)
	}
	return c.ID < other.ID
}

// NewContact carries the fields a store needs to insert a contact. The store
// assigns ID and timestamps.
type NewContact struct {
	Email          string
	PhoneNumber    string
	LinkPrecedence LinkPrecedence
	LinkedID       id.ContactID
}

// NewPrimary describes a first sighting of an identity fragment.
func NewPrimary(obs Observation) NewContact {
	return NewContact{
		Email:          obs.Email(),
		PhoneNumber:    obs.PhoneNumber(),
		LinkPrecedence: LinkPrecedencePrimary,
	}
}

// NewSecondary describes new information attached to an existing cluster.
func NewSecondary(obs Observation, primaryID id.ContactID) NewContact {
	return NewContact{
		Email:          obs.Email(),
		PhoneNumber:    obs.PhoneNumber(),
		LinkPrecedence: LinkPrecedenceSecondary,
		LinkedID:       primaryID,
	}
}
