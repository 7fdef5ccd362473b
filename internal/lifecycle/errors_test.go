package lifecycle

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsInvalidTransition(t *testing.T) {
	for _, err := range []error{
		ErrSelfCollection,
		ErrNotClaimable,
		ErrNotCollector,
		ErrNotInProgress,
		ErrClaimLost,
		fmt.Errorf("claim: %w", ErrNotClaimable),
	} {
		if !IsInvalidTransition(err) {
			t.Errorf("IsInvalidTransition(%v) = false", err)
		}
	}

	for _, err := range []error{
		nil,
		ErrReportNotFound,
		errors.New("database locked"),
	} {
		if IsInvalidTransition(err) {
			t.Errorf("IsInvalidTransition(%v) = true", err)
		}
	}
}
