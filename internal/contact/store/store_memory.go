package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"reconcile/internal/contact/models"
	id "reconcile/pkg/domain"
	"reconcile/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested contact does not exist
// - Return ErrConflict when an insert would duplicate an (email, phone) pair
// - Return wrapped errors with context for infrastructure failures

// Clock returns the current time. Injected so tests can control "oldest wins".
type Clock func() time.Time

// InMemoryStore keeps contacts in a map for tests, development and the CLI.
// Every call is atomic on its own; multi-call units are serialized by
// service.ShardedContactTx. Returned contacts are copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	contacts map[id.ContactID]*models.Contact
	lastID   id.ContactID
	clock    Clock
}

type MemoryOption func(*InMemoryStore)

// WithMemoryClock sets the clock used for CreatedAt and UpdatedAt.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemory constructs an empty in-memory contact store.
func NewInMemory(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		contacts: make(map[id.ContactID]*models.Contact),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) FindByEmailOrPhone(_ context.Context, email, phoneNumber string) ([]*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(c *models.Contact) bool {
		return (email != "" && c.Email == email) || (phoneNumber != "" && c.PhoneNumber == phoneNumber)
	}), nil
}

func (s *InMemoryStore) Insert(_ context.Context, nc models.NewContact) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.contacts {
		if c.Email == nc.Email && c.PhoneNumber == nc.PhoneNumber {
			return nil, fmt.Errorf("insert contact: duplicate email and phone pair: %w", sentinel.ErrConflict)
		}
	}

	now := s.clock()
	s.lastID++
	c := &models.Contact{
		ID:             s.lastID,
		Email:          nc.Email,
		PhoneNumber:    nc.PhoneNumber,
		LinkPrecedence: nc.LinkPrecedence,
		LinkedID:       nc.LinkedID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.contacts[c.ID] = c
	copied := *c
	return &copied, nil
}

func (s *InMemoryStore) FindPrimariesByIDs(_ context.Context, ids []id.ContactID) ([]*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[id.ContactID]struct{}, len(ids))
	for _, contactID := range ids {
		want[contactID] = struct{}{}
	}
	return s.collect(func(c *models.Contact) bool {
		_, ok := want[c.ID]
		return ok && c.IsPrimary()
	}), nil
}

func (s *InMemoryStore) DemoteAndRelink(_ context.Context, oldRootIDs []id.ContactID, newPrimaryID id.ContactID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := make(map[id.ContactID]struct{}, len(oldRootIDs))
	for _, rootID := range oldRootIDs {
		old[rootID] = struct{}{}
	}
	now := s.clock()
	changed := 0
	for _, c := range s.contacts {
		_, isOldRoot := old[c.ID]
		_, linkedToOldRoot := old[c.LinkedID]
		if !isOldRoot && !(linkedToOldRoot && !c.IsPrimary()) {
			continue
		}
		c.LinkPrecedence = models.LinkPrecedenceSecondary
		c.LinkedID = newPrimaryID
		c.UpdatedAt = now
		changed++
	}
	return changed, nil
}

func (s *InMemoryStore) FindClusterMembers(_ context.Context, primaryID id.ContactID) ([]*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(c *models.Contact) bool {
		return c.ID == primaryID || (!c.IsPrimary() && c.LinkedID == primaryID)
	}), nil
}

func (s *InMemoryStore) FindExact(_ context.Context, email, phoneNumber string) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.collect(func(c *models.Contact) bool {
		return c.Email == email && c.PhoneNumber == phoneNumber
	})
	if len(matches) == 0 {
		return nil, fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
	}
	return matches[0], nil
}

func (s *InMemoryStore) FindByID(_ context.Context, contactID id.ContactID) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[contactID]
	if !ok {
		return nil, fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

// Len reports the number of stored contacts.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// collect copies matching contacts ordered by CreatedAt, ID. Callers hold mu.
func (s *InMemoryStore) collect(match func(*models.Contact) bool) []*models.Contact {
	out := make([]*models.Contact, 0)
	for _, c := range s.contacts {
		if match(c) {
			copied := *c
			out = append(out, &copied)
		}
	}
	slices.SortFunc(out, func(a, b *models.Contact) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
