// README: Common identifier, coordinate, and session identity types shared across modules.
package types

type ID string

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Role string

const (
	RoleDriver             Role = "driver"
	RoleValetSupervisor    Role = "valet_supervisor"
	RoleLocationSupervisor Role = "location_supervisor"
)

// SessionIdentity is carried in the channel handshake immediately after the
// transport opens.
type SessionIdentity struct {
	UserID ID   `json:"user_id"`
	Role   Role `json:"role"`
}
