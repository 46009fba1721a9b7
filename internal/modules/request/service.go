// README: Action flows: geofence gate, optimistic update, REST call, reconcile.
package request

import (
	"context"
	"log/slog"
	"time"

	"valetlink/internal/metrics"
	"valetlink/internal/modules/geofence"
	"valetlink/internal/modules/location"
	"valetlink/internal/types"
)

const (
	locateTimeout = 5 * time.Second
	locateMaxAge  = 30 * time.Second
)

// Emitter sends outbound action events over the channel. Satisfied by the
// connection manager; emits are best effort, the REST result is the
// authoritative one.
type Emitter interface {
	Emit(event string, payload any) error
}

type ServiceDeps struct {
	Coord    *Coordinator
	Exec     ActionExecutor
	Locator  location.Provider
	Emitter  Emitter
	Reporter *location.Reporter
	Depot    types.Point
	Self     types.ID
	Log      *slog.Logger
}

// Service orchestrates worker-initiated transitions. A geofence check always
// precedes the network action: a denied action is never submitted.
type Service struct {
	coord    *Coordinator
	exec     ActionExecutor
	locator  location.Provider
	emitter  Emitter
	reporter *location.Reporter
	depot    types.Point
	self     types.ID
	log      *slog.Logger
}

func NewService(deps ServiceDeps) *Service {
	return &Service{
		coord:    deps.Coord,
		exec:     deps.Exec,
		locator:  deps.Locator,
		emitter:  deps.Emitter,
		reporter: deps.Reporter,
		depot:    deps.Depot,
		self:     deps.Self,
		log:      deps.Log,
	}
}

// Accept claims a pending request for the current worker. Park requests are
// gated against their own origin, pickup requests against the depot.
func (s *Service) Accept(ctx context.Context, id types.ID) (geofence.Decision, error) {
	r, ok := s.coord.Get(id)
	if !ok {
		return geofence.Decision{}, ErrNotFound
	}

	fix, err := s.locate(ctx)
	if err != nil {
		return geofence.Decision{}, err
	}

	var dec geofence.Decision
	if r.Kind == KindPark {
		if r.Origin == nil {
			return geofence.Decision{}, ErrInvalidState
		}
		dec = geofence.AtParkOrigin(fix.Position, *r.Origin)
	} else {
		dec = geofence.AtDepot(fix.Position, s.depot)
	}
	if !dec.Allowed {
		metrics.ActionOutcomes.WithLabelValues("accept", "geofence_denied").Inc()
		return dec, nil
	}

	err = s.submit(ctx, id, ActionAccept, "accept", func() error {
		return s.exec.Accept(ctx, id)
	})
	if err != nil {
		return dec, err
	}
	s.emit(EventAcceptRequest, Push{RequestID: id, WorkerRef: s.self})
	return dec, nil
}

// Complete marks a park as parked or a pickup as handed over, gated against
// the depot.
func (s *Service) Complete(ctx context.Context, id types.ID) (geofence.Decision, error) {
	if _, ok := s.coord.Get(id); !ok {
		return geofence.Decision{}, ErrNotFound
	}

	fix, err := s.locate(ctx)
	if err != nil {
		return geofence.Decision{}, err
	}
	dec := geofence.AtDepot(fix.Position, s.depot)
	if !dec.Allowed {
		metrics.ActionOutcomes.WithLabelValues("complete", "geofence_denied").Inc()
		return dec, nil
	}

	err = s.submit(ctx, id, ActionComplete, "complete", func() error {
		return s.exec.MarkCompleted(ctx, id)
	})
	return dec, err
}

// Verify confirms physical possession of a pickup vehicle at the depot.
func (s *Service) Verify(ctx context.Context, vehicleRef string) (geofence.Decision, error) {
	r, ok := s.coord.FindByVehicle(vehicleRef)
	if !ok {
		return geofence.Decision{}, ErrNotFound
	}

	fix, err := s.locate(ctx)
	if err != nil {
		return geofence.Decision{}, err
	}
	dec := geofence.AtDepot(fix.Position, s.depot)
	if !dec.Allowed {
		metrics.ActionOutcomes.WithLabelValues("verify", "geofence_denied").Inc()
		return dec, nil
	}

	err = s.submit(ctx, r.ID, ActionVerify, "verify", func() error {
		return s.exec.Verify(ctx, vehicleRef)
	})
	if err != nil {
		return dec, err
	}
	s.emit(EventVerifyVehicle, Push{RequestID: r.ID, VehicleRef: vehicleRef, WorkerRef: s.self})
	return dec, nil
}

// MarkSelfPark records that the owner parked the vehicle themselves,
// bypassing driver assignment. A supervisor action; not geofence gated.
func (s *Service) MarkSelfPark(ctx context.Context, id types.ID) error {
	return s.submit(ctx, id, ActionSelfPark, "self_park", func() error {
		return s.exec.MarkSelfPark(ctx, id)
	})
}

// MarkSelfPickup records that the owner will collect a verified vehicle
// themselves.
func (s *Service) MarkSelfPickup(ctx context.Context, id types.ID) error {
	err := s.submit(ctx, id, ActionSelfPickup, "self_pickup", func() error {
		return s.exec.MarkSelfPickup(ctx, id)
	})
	if err != nil {
		return err
	}
	s.emit(EventMarkSelfPickup, Push{RequestID: id, WorkerRef: s.self})
	return nil
}

// CreatePark announces a new park request over the channel; the server
// pushes it back as new-park-request once recorded.
func (s *Service) CreatePark(vehicleRef string, origin types.Point, ownerContact string) error {
	if s.emitter == nil {
		return ErrChannelUnavailable
	}
	return s.emitter.Emit(EventCreateParkRequest, Push{
		VehicleRef:   vehicleRef,
		Origin:       &origin,
		OwnerContact: ownerContact,
		WorkerRef:    s.self,
	})
}

// CreatePickup announces a new pickup request over the channel.
func (s *Service) CreatePickup(vehicleRef, ownerContact string) error {
	if s.emitter == nil {
		return ErrChannelUnavailable
	}
	return s.emitter.Emit(EventCreatePickupRequest, Push{
		VehicleRef:   vehicleRef,
		OwnerContact: ownerContact,
		WorkerRef:    s.self,
	})
}

// Refresh pulls the authoritative list and replaces local state with it.
func (s *Service) Refresh(ctx context.Context) error {
	list, err := s.exec.List(ctx)
	if err != nil {
		return err
	}
	s.coord.ReconcileWithSnapshot(list)
	return nil
}

// submit runs the optimistic-then-confirm cycle shared by every action: the
// local transition is applied first to keep the caller responsive, then the
// REST result either commits it or rolls it back. Failed actions are never
// retried here.
func (s *Service) submit(ctx context.Context, id types.ID, action Action, label string, call func() error) error {
	if err := s.coord.ApplyLocalAction(id, action); err != nil {
		return err
	}
	if err := call(); err != nil {
		s.coord.RollbackLocalAction(id)
		metrics.ActionOutcomes.WithLabelValues(label, string(KindOf(err))).Inc()
		s.log.Warn("action rejected, optimistic state rolled back",
			"action", label, "request_id", id, "error", err)
		return err
	}
	s.coord.ConfirmLocalAction(id)
	metrics.ActionOutcomes.WithLabelValues(label, "ok").Inc()
	return nil
}

func (s *Service) locate(ctx context.Context) (location.Fix, error) {
	fix, err := s.locator.Current(ctx, locateTimeout, locateMaxAge)
	if err != nil {
		return location.Fix{}, err
	}
	if s.reporter != nil {
		if rerr := s.reporter.Report(s.self, fix.Position); rerr != nil {
			s.log.Debug("location report failed", "error", rerr)
		}
	}
	return fix, nil
}

func (s *Service) emit(event string, payload Push) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(event, payload); err != nil {
		s.log.Debug("outbound event not sent", "event", event, "error", err)
	}
}
