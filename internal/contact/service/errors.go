package service

import (
	"context"
	"errors"

	dErrors "reconcile/pkg/domain-errors"
	"reconcile/pkg/platform/sentinel"
)

// errLockSetChanged aborts a locked unit whose candidates reached a cluster
// root outside the held key set. Nothing has been written when it is returned.
var errLockSetChanged = errors.New("cluster lock set changed")

// storageError classifies a store failure. Domain errors pass through.
func storageError(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// consistencyViolation reports stored link data that breaks the cluster
// invariants. These are never repaired in place.
func consistencyViolation(msg string) error {
	return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInternal, "consistency violation: "+msg)
}

// IsConsistencyViolation reports whether err came from corrupted link data.
func IsConsistencyViolation(err error) bool {
	return errors.Is(err, sentinel.ErrInvalidState)
}
