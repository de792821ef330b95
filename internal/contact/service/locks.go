package service

import (
	"slices"

	"reconcile/internal/contact/models"
	id "reconcile/pkg/domain"
)

// Lock keys. Every request locks the values it observes plus the root of
// every cluster those values reach, so requests touching disjoint clusters
// never share a key.
const (
	emailKeyPrefix = "email:"
	phoneKeyPrefix = "phone:"
	rootKeyPrefix  = "root:"
)

type lockSet map[string]struct{}

func observationKeys(obs models.Observation) lockSet {
	keys := lockSet{}
	if obs.HasEmail() {
		keys[emailKeyPrefix+obs.Email()] = struct{}{}
	}
	if obs.HasPhone() {
		keys[phoneKeyPrefix+obs.PhoneNumber()] = struct{}{}
	}
	return keys
}

func rootKey(rootID id.ContactID) string {
	return rootKeyPrefix + rootID.String()
}

func (l lockSet) addRoots(contacts []*models.Contact) {
	for _, c := range contacts {
		l[rootKey(c.RootID())] = struct{}{}
	}
}

// covers reports whether every root reachable from contacts is held.
func (l lockSet) covers(contacts []*models.Contact) bool {
	for _, c := range contacts {
		if _, ok := l[rootKey(c.RootID())]; !ok {
			return false
		}
	}
	return true
}

func (l lockSet) sorted() []string {
	out := make([]string, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
