package service

import (
	"context"

	"reconcile/internal/contact/models"
	id "reconcile/pkg/domain"
	pkgstrings "reconcile/pkg/platform/strings"
)

// Assemble builds the consolidated view of the cluster rooted at primaryID.
// It only reads, so repeated calls over an unchanged store return equal views.
func Assemble(ctx context.Context, store Store, primaryID id.ContactID) (*models.ConsolidatedView, error) {
	members, err := store.FindClusterMembers(ctx, primaryID)
	if err != nil {
		return nil, storageError(err, "failed to load cluster members")
	}

	var primary *models.Contact
	for _, m := range members {
		if m.ID == primaryID {
			primary = m
			break
		}
	}
	if primary == nil || !primary.IsPrimary() {
		return nil, consistencyViolation("contact " + primaryID.String() + " is not a cluster primary")
	}

	emails := make([]string, 0, len(members))
	phones := make([]string, 0, len(members))
	secondaryIDs := make([]id.ContactID, 0, len(members)-1)
	emails = append(emails, primary.Email)
	phones = append(phones, primary.PhoneNumber)

	for _, m := range members {
		if m.ID == primaryID {
			continue
		}
		if m.IsPrimary() || m.LinkedID != primaryID {
			return nil, consistencyViolation("contact " + m.ID.String() + " is not linked to primary " + primaryID.String())
		}
		emails = append(emails, m.Email)
		phones = append(phones, m.PhoneNumber)
		secondaryIDs = append(secondaryIDs, m.ID)
	}

	return &models.ConsolidatedView{
		PrimaryID:    primaryID,
		Emails:       pkgstrings.Dedupe(emails),
		PhoneNumbers: pkgstrings.Dedupe(phones),
		SecondaryIDs: secondaryIDs,
	}, nil
}
