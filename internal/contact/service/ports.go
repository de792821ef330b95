package service

import (
	"context"

	"reconcile/internal/contact/models"
	id "reconcile/pkg/domain"
)

// Store is the persistence port for contacts. Implementations perform pure
// I/O: no business rules, no locking beyond what a single call needs to be
// atomic. Absent optional fields are passed and returned as "".
type Store interface {
	// FindByEmailOrPhone returns every contact whose email equals email or
	// whose phone equals phone. An empty argument never matches.
	FindByEmailOrPhone(ctx context.Context, email, phoneNumber string) ([]*models.Contact, error)
	Insert(ctx context.Context, c models.NewContact) (*models.Contact, error)
	// FindPrimariesByIDs returns the primaries among ids ordered by CreatedAt, ID.
	FindPrimariesByIDs(ctx context.Context, ids []id.ContactID) ([]*models.Contact, error)
	// DemoteAndRelink turns each old root into a secondary of newPrimaryID and
	// repoints its secondaries, as one atomic batch. Returns rows changed.
	DemoteAndRelink(ctx context.Context, oldRootIDs []id.ContactID, newPrimaryID id.ContactID) (int, error)
	// FindClusterMembers returns the primary and everything linked to it,
	// ordered by CreatedAt, ID.
	FindClusterMembers(ctx context.Context, primaryID id.ContactID) ([]*models.Contact, error)
	// FindExact returns the contact storing exactly this pair, absent fields
	// included, or sentinel.ErrNotFound.
	FindExact(ctx context.Context, email, phoneNumber string) (*models.Contact, error)
	FindByID(ctx context.Context, contactID id.ContactID) (*models.Contact, error)
}

// ContactStoreTx runs fn as one locked unit holding every key in keys.
// Implementations wrap a SQL transaction with advisory locks or, in memory,
// a set of sharded mutexes. fn must use the store and context it is given.
type ContactStoreTx interface {
	RunInTx(ctx context.Context, keys []string, fn func(ctx context.Context, store Store) error) error
}
