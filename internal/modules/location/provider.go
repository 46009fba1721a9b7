// README: Location provider boundary; the sole suspension point for position acquisition.
package location

import (
	"context"
	"time"

	"valetlink/internal/types"
)

// Provider acquires the worker's current position. Implementations must not
// retry internally; retry policy belongs to the caller. maxAge permits serving
// a cached fix no older than the given duration.
type Provider interface {
	Current(ctx context.Context, timeout, maxAge time.Duration) (Fix, error)
}

// StaticProvider reports a fixed position. Used for depot-stationed
// supervisors and in tests.
type StaticProvider struct {
	Position types.Point
}

func (p StaticProvider) Current(ctx context.Context, timeout, maxAge time.Duration) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, &Error{Kind: KindTimeout, Cause: err}
	}
	return Fix{Position: p.Position, RecordedAt: time.Now()}, nil
}
