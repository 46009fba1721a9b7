// README: Location fix and error taxonomy for the provider boundary.
package location

import (
	"fmt"
	"time"

	"valetlink/internal/types"
)

type ErrorKind string

const (
	KindPermissionDenied    ErrorKind = "permission_denied"
	KindPositionUnavailable ErrorKind = "position_unavailable"
	KindTimeout             ErrorKind = "timeout"
	KindUnknown             ErrorKind = "unknown"
)

// Error wraps a provider failure with a classified kind. Each kind maps to a
// distinct remediation message shown to the worker.
type Error struct {
	Kind  ErrorKind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("location %s: %v", e.Kind, e.Cause)
	}
	return "location " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Remediation() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Location permission is required. Enable it and try again."
	case KindPositionUnavailable:
		return "Your position could not be determined. Check that GPS is on."
	case KindTimeout:
		return "Locating you took too long. Move to open sky and retry."
	default:
		return "Could not get your location. Please retry."
	}
}

// Fix is a single acquired position.
type Fix struct {
	Position   types.Point
	AccuracyM  float64
	RecordedAt time.Time
}
