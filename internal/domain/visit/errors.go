package visit

import "errors"

var (
	// ErrNotFound is returned when a visit or one of its records does not
	// exist. Lookups never silently degrade to empty results.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a finalize compare-and-set loses to a
	// concurrent request.
	ErrConflict = errors.New("visit already finalized or under review")

	// ErrInvalidTransition is returned for checklist status moves outside
	// the allowed state machine.
	ErrInvalidTransition = errors.New("invalid checklist status transition")

	// ErrReasonRequired is returned when unable_to_assess is requested
	// without a structured reason.
	ErrReasonRequired = errors.New("unable_to_assess requires a reason")
)
