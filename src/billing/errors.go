package billing

import (
	"errors"

	"github.com/livefire2015/ez-rent/src/models"
)

// Computation errors
var (
	// ErrIncompleteData means an input the bill depends on (usually the
	// period's meter reading) has not been recorded.
	ErrIncompleteData = errors.New("incomplete data")
	// ErrConfigMissing means a required system setting is absent or malformed.
	ErrConfigMissing = models.ErrSettingMissing
	// ErrInvalidInput means the inputs contradict each other.
	ErrInvalidInput = errors.New("invalid billing input")
)

// FailureKind classifies a per-tenant failure for reporting
type FailureKind string

const (
	FailureIncompleteData FailureKind = "incomplete_data"
	FailureConfigMissing  FailureKind = "configuration_missing"
	FailureInvalidInput   FailureKind = "invalid_input"
	FailureLookup         FailureKind = "lookup_failed"
)

// KindOf maps an error to its failure kind
func KindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrIncompleteData):
		return FailureIncompleteData
	case errors.Is(err, ErrConfigMissing):
		return FailureConfigMissing
	case errors.Is(err, ErrInvalidInput):
		return FailureInvalidInput
	default:
		return FailureLookup
	}
}
