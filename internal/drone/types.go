package drone

import "time"

// Status is the coarse availability of the session's delivery drone
type Status string

const (
	StatusAvailable Status = "available"
	StatusInTransit Status = "in_transit"
)

// Phase is one stage of a delivery run, in order
type Phase int

const (
	PhaseRequested Phase = iota
	PhaseEnRoute
	PhasePickedUp
	PhaseDelivering
	PhaseDelivered
)

var phaseNames = map[Phase]string{
	PhaseRequested:  "requested",
	PhaseEnRoute:    "en_route",
	PhasePickedUp:   "picked_up",
	PhaseDelivering: "delivering",
	PhaseDelivered:  "delivered",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return "unknown"
}

// Narrative is the status line shown alongside the floor-plan animation
func (p Phase) Narrative() string {
	switch p {
	case PhaseRequested, PhaseEnRoute:
		return "Drone en route to pharmacy"
	case PhasePickedUp:
		return "Picking up medication"
	case PhaseDelivering:
		return "Delivering to your location"
	case PhaseDelivered:
		return "Delivery completed"
	}
	return ""
}

// Point is a position on the apartment floor plan, in percent of the plan's
// width and height
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Route is the fixed flight path: in through the entry, along the hallway,
// ending at the bathroom medicine cabinet.
var Route = []Point{
	{X: 95, Y: 20}, // entry window
	{X: 80, Y: 25}, // living room
	{X: 60, Y: 35}, // hallway
	{X: 70, Y: 50}, // bathroom door
	{X: 82, Y: 60}, // medicine cabinet
}

// Snapshot is the externally visible delivery state at one instant
type Snapshot struct {
	Status    Status    `json:"status"`
	Phase     string    `json:"phase"`
	Narrative string    `json:"narrative"`
	Progress  float64   `json:"progress"`
	Position  Point     `json:"position"`
	Pickup    string    `json:"pickup,omitempty"`
	Dropoff   string    `json:"dropoff,omitempty"`
	Details   string    `json:"details,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
