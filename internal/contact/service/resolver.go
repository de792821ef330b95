package service

import (
	"context"
	"errors"

	"reconcile/internal/contact/metrics"
	"reconcile/internal/contact/models"
	id "reconcile/pkg/domain"
	dErrors "reconcile/pkg/domain-errors"
	"reconcile/pkg/platform/sentinel"
)

// Resolution summarizes what a resolver invocation did to the store.
type Resolution struct {
	PrimaryID id.ContactID
	// Created is set when a row was inserted, primary or secondary.
	Created    bool
	NewCluster bool
	// Absorbed lists the primaries demoted into PrimaryID.
	Absorbed []id.ContactID
	// Relinked counts rows rewritten by the merge.
	Relinked int
}

// Outcome names the resolution for metrics and logs.
func (r Resolution) Outcome() string {
	switch {
	case r.NewCluster:
		return metrics.OutcomeCreated
	case len(r.Absorbed) > 0:
		return metrics.OutcomeMerged
	case r.Created:
		return metrics.OutcomeLinked
	default:
		return metrics.OutcomeMatched
	}
}

// resolveCandidates folds obs into the contact graph and returns the ID of
// the primary of the cluster it now belongs to.
//
// candidates are the contacts sharing the email or the phone, read inside the
// locked unit that Identify opens through ContactStoreTx. Their roots are
// merged under the oldest primary, and a secondary is appended only when obs
// carries a value no candidate already had.
func resolveCandidates(ctx context.Context, store Store, obs models.Observation, candidates []*models.Contact) (Resolution, error) {
	if obs.IsZero() {
		return Resolution{}, dErrors.New(dErrors.CodeInvariantViolation, "observation carries no identifier")
	}
	if len(candidates) == 0 {
		created, err := store.Insert(ctx, models.NewPrimary(obs))
		if err != nil {
			return Resolution{}, storageError(err, "failed to create primary contact")
		}
		return Resolution{PrimaryID: created.ID, Created: true, NewCluster: true}, nil
	}

	rootIDs := rootsOf(candidates)
	primaries, err := store.FindPrimariesByIDs(ctx, rootIDs)
	if err != nil {
		return Resolution{}, storageError(err, "failed to load cluster primaries")
	}
	truePrimary, err := oldestPrimary(rootIDs, primaries)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{PrimaryID: truePrimary.ID}
	if len(rootIDs) > 1 {
		absorbed := make([]id.ContactID, 0, len(rootIDs)-1)
		for _, rootID := range rootIDs {
			if rootID != truePrimary.ID {
				absorbed = append(absorbed, rootID)
			}
		}
		n, err := store.DemoteAndRelink(ctx, absorbed, truePrimary.ID)
		if err != nil {
			return Resolution{}, storageError(err, "failed to merge clusters")
		}
		res.Absorbed = absorbed
		res.Relinked = n
	}

	_, err = store.FindExact(ctx, obs.Email(), obs.PhoneNumber())
	switch {
	case err == nil:
		return res, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return Resolution{}, storageError(err, "failed to check for exact contact")
	}
	if !carriesNewInformation(obs, candidates) {
		return res, nil
	}
	if _, err := store.Insert(ctx, models.NewSecondary(obs, truePrimary.ID)); err != nil {
		return Resolution{}, storageError(err, "failed to create secondary contact")
	}
	res.Created = true
	return res, nil
}

// rootsOf returns the distinct cluster roots reachable from contacts, in
// first-seen order.
func rootsOf(contacts []*models.Contact) []id.ContactID {
	seen := make(map[id.ContactID]struct{}, len(contacts))
	roots := make([]id.ContactID, 0, len(contacts))
	for _, c := range contacts {
		root := c.RootID()
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	return roots
}

// oldestPrimary checks that every root resolved to a primary and returns the
// oldest one.
func oldestPrimary(rootIDs []id.ContactID, primaries []*models.Contact) (*models.Contact, error) {
	found := make(map[id.ContactID]*models.Contact, len(primaries))
	for _, p := range primaries {
		if !p.IsPrimary() {
			return nil, consistencyViolation("store returned a secondary as cluster primary")
		}
		found[p.ID] = p
	}
	var oldest *models.Contact
	for _, rootID := range rootIDs {
		p, ok := found[rootID]
		if !ok {
			return nil, consistencyViolation("contact links to " + rootID.String() + " which is not a primary")
		}
		if oldest == nil || p.Older(oldest) {
			oldest = p
		}
	}
	return oldest, nil
}

func carriesNewInformation(obs models.Observation, candidates []*models.Contact) bool {
	emailKnown, phoneKnown := false, false
	for _, c := range candidates {
		if obs.HasEmail() && c.Email == obs.Email() {
			emailKnown = true
		}
		if obs.HasPhone() && c.PhoneNumber == obs.PhoneNumber() {
			phoneKnown = true
		}
	}
	return (obs.HasEmail() && !emailKnown) || (obs.HasPhone() && !phoneKnown)
}
