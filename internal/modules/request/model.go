// README: Request aggregate, status ranks, and per-kind transition tables.
package request

import (
	"time"

	"valetlink/internal/types"
)

type Kind string

const (
	KindPark   Kind = "park"
	KindPickup Kind = "pickup"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusVerified   Status = "verified"
	StatusParked     Status = "parked"
	StatusHandedOver Status = "handed_over"
	StatusSelfParked Status = "self_parked"
	StatusSelfPickup Status = "self_pickup"
	StatusCancelled  Status = "cancelled"
)

type Request struct {
	ID                types.ID     `json:"id"`
	Kind              Kind         `json:"kind"`
	Status            Status       `json:"status"`
	VehicleRef        string       `json:"vehicle_ref"`
	Origin            *types.Point `json:"origin,omitempty"` // required for park requests
	OwnerContact      string       `json:"owner_contact,omitempty"`
	AssignedWorkerRef *types.ID    `json:"assigned_worker_ref,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	AcceptedAt        *time.Time   `json:"accepted_at,omitempty"`
	VerifiedAt        *time.Time   `json:"verified_at,omitempty"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
	CancelledAt       *time.Time   `json:"cancelled_at,omitempty"`
}

// allowedTransitions represents the per-kind lifecycle graph as code. The
// self-service paths bypass driver assignment: a supervisor marks a vehicle
// owner-parked from Pending, or owner-picked-up once the vehicle is verified.
var allowedTransitions = map[Kind]map[Status][]Status{
	KindPark: {
		StatusPending:  {StatusAccepted, StatusCancelled, StatusSelfParked},
		StatusAccepted: {StatusParked, StatusCancelled},
	},
	KindPickup: {
		StatusPending:  {StatusAccepted, StatusCancelled},
		StatusAccepted: {StatusVerified, StatusHandedOver, StatusCancelled},
		StatusVerified: {StatusHandedOver, StatusSelfPickup},
	},
}

func CanTransition(kind Kind, from, to Status) bool {
	next, ok := allowedTransitions[kind][from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// statusRank orders the lifecycle for out-of-order push tolerance: a push
// reporting a rank at or below the current one is a no-op.
var statusRank = map[Status]int{
	StatusPending:    0,
	StatusAccepted:   1,
	StatusVerified:   2,
	StatusParked:     3,
	StatusHandedOver: 3,
	StatusSelfParked: 3,
	StatusSelfPickup: 3,
	StatusCancelled:  3,
}

func Rank(s Status) int {
	return statusRank[s]
}

func IsTerminal(s Status) bool {
	switch s {
	case StatusParked, StatusHandedOver, StatusSelfParked, StatusSelfPickup, StatusCancelled:
		return true
	}
	return false
}

func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Origin != nil {
		origin := *r.Origin
		c.Origin = &origin
	}
	if r.AssignedWorkerRef != nil {
		w := *r.AssignedWorkerRef
		c.AssignedWorkerRef = &w
	}
	c.AcceptedAt = cloneTime(r.AcceptedAt)
	c.VerifiedAt = cloneTime(r.VerifiedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
