package service

import (
	"context"

	"reconcile/internal/contact/models"
)

var ResolveCandidates = resolveCandidates

// Resolve runs the candidate lookup and the resolver without taking locks,
// for tests that drive the resolver against mocked stores.
func Resolve(ctx context.Context, store Store, obs models.Observation) (Resolution, error) {
	candidates, err := store.FindByEmailOrPhone(ctx, obs.Email(), obs.PhoneNumber())
	if err != nil {
		return Resolution{}, storageError(err, "failed to find candidate contacts")
	}
	return resolveCandidates(ctx, store, obs, candidates)
}
