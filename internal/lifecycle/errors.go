package lifecycle

import "errors"

// Transition errors. All of these reject the attempted action without
// mutating any state.
var (
	ErrReportNotFound = errors.New("report not found")

	// ErrSelfCollection: a reporter may never collect their own report.
	ErrSelfCollection = errors.New("cannot collect your own report")

	// ErrNotClaimable: claim attempted on a report that is not pending.
	ErrNotClaimable = errors.New("report is not available to claim")

	// ErrNotCollector: verify attempted by someone other than the current
	// collector.
	ErrNotCollector = errors.New("only the current collector may verify")

	// ErrNotInProgress: verify attempted from a state other than in_progress.
	ErrNotInProgress = errors.New("report is not in progress")

	// ErrClaimLost: the claim was released or reassigned between the
	// collector's read and the verified write; nothing was recorded.
	ErrClaimLost = errors.New("claim no longer held")
)

// IsInvalidTransition reports whether err is a rejected state transition, as
// opposed to an infrastructure failure.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrSelfCollection) ||
		errors.Is(err, ErrNotClaimable) ||
		errors.Is(err, ErrNotCollector) ||
		errors.Is(err, ErrNotInProgress) ||
		errors.Is(err, ErrClaimLost)
}
