// README: Lifecycle coordinator; owns the authoritative local view of in-flight requests.
package request

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"valetlink/internal/registry"
	"valetlink/internal/types"
)

var (
	ErrNotFound           = errors.New("request not found")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrChannelUnavailable = errors.New("channel unavailable")
)

// Action is a worker-initiated optimistic transition, applied ahead of the
// REST confirmation and reconciled once it arrives.
type Action string

const (
	ActionAccept     Action = "accept"
	ActionComplete   Action = "complete"
	ActionVerify     Action = "verify"
	ActionSelfPark   Action = "self_park"
	ActionSelfPickup Action = "self_pickup"
)

// Coordinator is the only writer of request state. All mutation goes through
// ApplyPush, ApplyLocalAction, and ReconcileWithSnapshot, under one mutex.
type Coordinator struct {
	self types.ID
	log  *slog.Logger

	mu      sync.Mutex
	byID    map[types.ID]*Request
	stashed map[types.ID]*Request // pre-optimistic copies awaiting confirm or rollback
}

func NewCoordinator(self types.ID, log *slog.Logger) *Coordinator {
	return &Coordinator{
		self:    self,
		log:     log,
		byID:    make(map[types.ID]*Request),
		stashed: make(map[types.ID]*Request),
	}
}

// Attach subscribes the coordinator to every inbound lifecycle event.
func (c *Coordinator) Attach(reg *registry.Registry) []registry.Handle {
	handles := make([]registry.Handle, 0, len(InboundEvents))
	for _, event := range InboundEvents {
		event := event
		h := reg.Subscribe(event, func(payload json.RawMessage) {
			if err := c.ApplyPush(event, payload); err != nil {
				c.log.Warn("discarding malformed push", "event", event, "error", err)
			}
		})
		handles = append(handles, h)
	}
	return handles
}

// ApplyPush merges a server-pushed event into local state. Pushes reporting
// an earlier or equal lifecycle rank are idempotent no-ops, tolerating
// out-of-order and replayed delivery.
func (c *Coordinator) ApplyPush(event string, raw json.RawMessage) error {
	p, err := decodePush(raw)
	if err != nil {
		return err
	}
	if p.RequestID == "" {
		return errors.New("push without request_id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch event {
	case EventNewParkRequest:
		c.insertLocked(p, KindPark, StatusPending)
	case EventNewPickupRequest:
		c.insertLocked(p, KindPickup, StatusPending)
	case EventRequestAccepted:
		c.applyAcceptedLocked(p)
	default:
		target, ok := completionTarget(event)
		if !ok {
			c.log.Debug("ignoring unrecognised push", "event", event)
			return nil
		}
		c.applyCompletionLocked(event, p, target)
	}
	return nil
}

// insertLocked adds a request if absent; a replayed NewRequest never
// overwrites a more advanced local copy.
func (c *Coordinator) insertLocked(p Push, kind Kind, status Status) {
	if _, exists := c.byID[p.RequestID]; exists {
		c.log.Debug("ignoring replayed new-request push", "request_id", p.RequestID)
		return
	}
	createdAt := p.At
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	c.byID[p.RequestID] = &Request{
		ID:           p.RequestID,
		Kind:         kind,
		Status:       status,
		VehicleRef:   p.VehicleRef,
		Origin:       p.Origin,
		OwnerContact: p.OwnerContact,
		CreatedAt:    createdAt,
	}
}

// applyAcceptedLocked: another worker taking a pending request removes it
// from the working set; our own acceptance marks it accepted locally.
func (c *Coordinator) applyAcceptedLocked(p Push) {
	r, ok := c.byID[p.RequestID]
	if !ok {
		return
	}
	if r.Status != StatusPending {
		c.log.Debug("ignoring stale accepted push", "request_id", p.RequestID, "status", r.Status)
		return
	}
	if p.WorkerRef != c.self {
		delete(c.byID, p.RequestID)
		return
	}
	worker := p.WorkerRef
	now := time.Now()
	r.Status = StatusAccepted
	r.AssignedWorkerRef = &worker
	r.AcceptedAt = &now
}

func (c *Coordinator) applyCompletionLocked(event string, p Push, target Status) {
	r, ok := c.byID[p.RequestID]
	if !ok {
		// A self-parked vehicle may never have been pushed as a request to
		// this worker; the event itself announces the record.
		if event == EventSelfParkedCreated {
			c.insertLocked(p, KindPark, StatusSelfParked)
		}
		return
	}
	if Rank(target) <= Rank(r.Status) {
		c.log.Debug("ignoring stale push", "event", event, "request_id", p.RequestID, "status", r.Status)
		return
	}
	if !CanTransition(r.Kind, r.Status, target) {
		c.log.Warn("ignoring out-of-order push", "event", event, "request_id", p.RequestID, "from", r.Status, "to", target)
		return
	}
	c.transitionLocked(r, target)
}

func (c *Coordinator) transitionLocked(r *Request, target Status) {
	now := time.Now()
	r.Status = target
	switch target {
	case StatusAccepted:
		r.AcceptedAt = &now
	case StatusVerified:
		r.VerifiedAt = &now
	case StatusCancelled:
		r.CancelledAt = &now
	case StatusParked, StatusHandedOver, StatusSelfParked, StatusSelfPickup:
		r.CompletedAt = &now
	}
}

// ApplyLocalAction performs an optimistic transition for the current worker.
// The prior copy is stashed until ConfirmLocalAction or RollbackLocalAction
// resolves it; the REST result always wins over the optimistic guess.
func (c *Coordinator) ApplyLocalAction(id types.ID, action Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.byID[id]
	if !ok {
		return ErrNotFound
	}
	if _, pending := c.stashed[id]; pending {
		return ErrInvalidState
	}
	target, err := targetFor(r.Kind, action)
	if err != nil {
		return err
	}
	if !CanTransition(r.Kind, r.Status, target) {
		return ErrInvalidState
	}

	c.stashed[id] = r.Clone()
	c.transitionLocked(r, target)
	if action == ActionAccept {
		self := c.self
		r.AssignedWorkerRef = &self
	}
	return nil
}

func targetFor(kind Kind, action Action) (Status, error) {
	switch action {
	case ActionAccept:
		return StatusAccepted, nil
	case ActionComplete:
		if kind == KindPark {
			return StatusParked, nil
		}
		return StatusHandedOver, nil
	case ActionVerify:
		if kind != KindPickup {
			return StatusNone, ErrInvalidState
		}
		return StatusVerified, nil
	case ActionSelfPark:
		if kind != KindPark {
			return StatusNone, ErrInvalidState
		}
		return StatusSelfParked, nil
	case ActionSelfPickup:
		if kind != KindPickup {
			return StatusNone, ErrInvalidState
		}
		return StatusSelfPickup, nil
	}
	return StatusNone, ErrInvalidState
}

// ConfirmLocalAction commits an optimistic transition after the REST call
// succeeded.
func (c *Coordinator) ConfirmLocalAction(id types.ID) {
	c.mu.Lock()
	delete(c.stashed, id)
	c.mu.Unlock()
}

// RollbackLocalAction restores the pre-optimistic copy after the REST call
// failed.
func (c *Coordinator) RollbackLocalAction(id types.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.stashed[id]
	if !ok {
		return
	}
	c.byID[id] = prev
	delete(c.stashed, id)
}

// ReconcileWithSnapshot replaces the local set with server truth. The
// snapshot is authoritative and supersedes any partial optimistic state.
func (c *Coordinator) ReconcileWithSnapshot(list []*Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byID = make(map[types.ID]*Request, len(list))
	for _, r := range list {
		if r == nil || r.ID == "" {
			continue
		}
		c.byID[r.ID] = r.Clone()
	}
	c.stashed = make(map[types.ID]*Request)
}

// Get returns a copy of one request.
func (c *Coordinator) Get(id types.ID) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// FindByVehicle returns a copy of the request for the given vehicle, if any.
func (c *Coordinator) FindByVehicle(vehicleRef string) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.byID {
		if r.VehicleRef == vehicleRef {
			return r.Clone(), true
		}
	}
	return nil, false
}

// CurrentView returns a read-only snapshot ordered by creation time, then ID.
func (c *Coordinator) CurrentView() []*Request {
	c.mu.Lock()
	out := make([]*Request, 0, len(c.byID))
	for _, r := range c.byID {
		out = append(out, r.Clone())
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
