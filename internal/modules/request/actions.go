// README: Action executor boundary and its error taxonomy.
package request

import (
	"context"
	"errors"
	"fmt"

	"valetlink/internal/types"
)

type ActionKind string

const (
	ActionConflict   ActionKind = "conflict"
	ActionNetwork    ActionKind = "network"
	ActionValidation ActionKind = "validation"
	ActionUnknown    ActionKind = "unknown"
)

// ActionError classifies a failed executor call. Conflict means another
// worker already acted on the request: never retried, the caller refreshes
// and informs the user. Network is safe to retry manually. Validation is
// fatal for the attempt.
type ActionError struct {
	Kind    ActionKind
	Message string
	Cause   error
}

func (e *ActionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("action %s: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("action %s: %v", e.Kind, e.Cause)
	}
	return "action " + string(e.Kind)
}

func (e *ActionError) Unwrap() error { return e.Cause }

func (e *ActionError) UserMessage() string {
	switch e.Kind {
	case ActionConflict:
		return "Another worker already handled this request. Refresh to see the latest state."
	case ActionNetwork:
		return "Network problem while submitting. Check connectivity and try again."
	case ActionValidation:
		return "The server rejected this action."
	default:
		return "Something went wrong. Please try again."
	}
}

// KindOf extracts the action kind from an error chain; non-action errors
// report ActionUnknown.
func KindOf(err error) ActionKind {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ActionUnknown
}

// ActionExecutor is the REST boundary to the counterpart server. Latency and
// retry policy belong to the caller, never to the executor.
type ActionExecutor interface {
	Accept(ctx context.Context, id types.ID) error
	MarkCompleted(ctx context.Context, id types.ID) error
	Verify(ctx context.Context, vehicleRef string) error
	MarkSelfPark(ctx context.Context, id types.ID) error
	MarkSelfPickup(ctx context.Context, id types.ID) error
	List(ctx context.Context) ([]*Request, error)
}
