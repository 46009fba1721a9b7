// README: Wire-level event names and push payload decoding shared with the counterpart server.
package request

import (
	"encoding/json"
	"time"

	"valetlink/internal/types"
)

// Inbound (server-pushed) event names. These must match the counterpart
// server byte for byte.
const (
	EventNewParkRequest    = "new-park-request"
	EventNewPickupRequest  = "new-pickup-request"
	EventRequestAccepted   = "request-accepted"
	EventParkCompleted     = "park-completed"
	EventPickupCompleted   = "pickup-completed"
	EventVehicleVerified   = "vehicle-verified"
	EventSelfParkedCreated = "self-parked-created"
	EventSelfPickupMarked  = "self-pickup-marked"
)

// Outbound action event names.
const (
	EventAcceptRequest       = "accept_request"
	EventCreateParkRequest   = "create_park_request"
	EventCreatePickupRequest = "create_pickup_request"
	EventVerifyVehicle       = "verify_vehicle"
	EventMarkSelfPickup      = "mark_self_pickup"
)

// InboundEvents lists every push the lifecycle coordinator consumes.
var InboundEvents = []string{
	EventNewParkRequest,
	EventNewPickupRequest,
	EventRequestAccepted,
	EventParkCompleted,
	EventPickupCompleted,
	EventVehicleVerified,
	EventSelfParkedCreated,
	EventSelfPickupMarked,
}

// Push is the decoded payload of an inbound lifecycle event. Fields beyond
// RequestID are present only on the events that carry them.
type Push struct {
	RequestID    types.ID     `json:"request_id"`
	VehicleRef   string       `json:"vehicle_ref,omitempty"`
	Origin       *types.Point `json:"origin,omitempty"`
	OwnerContact string       `json:"owner_contact,omitempty"`
	WorkerRef    types.ID     `json:"worker_id,omitempty"`
	At           time.Time    `json:"at,omitempty"`
}

func decodePush(raw json.RawMessage) (Push, error) {
	var p Push
	if err := json.Unmarshal(raw, &p); err != nil {
		return Push{}, err
	}
	return p, nil
}

// completionTarget maps a completion-family event to the status it reports.
func completionTarget(event string) (Status, bool) {
	switch event {
	case EventParkCompleted:
		return StatusParked, true
	case EventPickupCompleted:
		return StatusHandedOver, true
	case EventVehicleVerified:
		return StatusVerified, true
	case EventSelfParkedCreated:
		return StatusSelfParked, true
	case EventSelfPickupMarked:
		return StatusSelfPickup, true
	}
	return StatusNone, false
}
