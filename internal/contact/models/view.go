package models

import id "reconcile/pkg/domain"

// ConsolidatedView is the deterministic "who is this" summary of a cluster.
// Emails and PhoneNumbers start with the primary's own values, followed by
// the other members' values in creation order, without duplicates.
type ConsolidatedView struct {
	PrimaryID    id.ContactID
	Emails       []string
	PhoneNumbers []string
	SecondaryIDs []id.ContactID
}
