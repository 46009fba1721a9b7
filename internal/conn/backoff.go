// README: Reconnect delay policy: doubling between a floor and a cap, unbounded attempts.
package conn

import "time"

const (
	DefaultBackoffFloor = 1 * time.Second
	DefaultBackoffCap   = 5 * time.Second
)

// backoff yields the wait before each successive redial. The policy never
// gives up: connectivity is assumed to come back eventually, and only an
// explicit disconnect stops the loop.
type backoff struct {
	floor time.Duration
	cap   time.Duration
	next  time.Duration
}

func newBackoff(floor, cap time.Duration) *backoff {
	if floor <= 0 {
		floor = DefaultBackoffFloor
	}
	if cap < floor {
		cap = floor
	}
	return &backoff{floor: floor, cap: cap, next: floor}
}

func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.cap {
		b.next = b.cap
	}
	return d
}

func (b *backoff) Reset() {
	b.next = b.floor
}
