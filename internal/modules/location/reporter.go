// README: Outbound position reporting, rate limited so a chatty GPS cannot flood the channel.
package location

import (
	"golang.org/x/time/rate"

	"valetlink/internal/metrics"
	"valetlink/internal/types"
)

// EventUpdateLocation is the outbound wire event name for position reports.
const EventUpdateLocation = "update_location"

// Emitter is satisfied by the connection manager.
type Emitter interface {
	Emit(event string, payload any) error
}

type Reporter struct {
	emitter Emitter
	limiter *rate.Limiter
}

type reportPayload struct {
	WorkerID types.ID    `json:"worker_id"`
	Position types.Point `json:"position"`
}

// NewReporter allows perMinute reports with a burst of one.
func NewReporter(emitter Emitter, perMinute float64) *Reporter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Reporter{
		emitter: emitter,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
	}
}

// Report sends an update_location event unless the limiter denies it.
// A dropped report is not an error; the next one carries fresher data anyway.
func (r *Reporter) Report(worker types.ID, pos types.Point) error {
	if !r.limiter.Allow() {
		metrics.LocationUpdatesDropped.Inc()
		return nil
	}
	return r.emitter.Emit(EventUpdateLocation, reportPayload{WorkerID: worker, Position: pos})
}
