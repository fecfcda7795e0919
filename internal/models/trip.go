package models

import (
	"time"
)

// Trip is one precomputed route traversal replayed by the simulation.
// Path labels only matter for their count: each label is one replay step.
type Trip struct {
	Timestamp        time.Time `json:"timestamp" bson:"timestamp"`
	FromLocation     string    `json:"fromLocation,omitempty" bson:"from_location,omitempty"`
	ToLocation       string    `json:"toLocation,omitempty" bson:"to_location,omitempty"`
	DistanceKm       float64   `json:"distanceKm" bson:"distance_km"`
	EnergyConsumedWh float64   `json:"energyConsumedWh" bson:"energy_consumed_wh"`
	SocPercentage    float64   `json:"socPercentage" bson:"soc_percentage"` // SOC at trip completion
	StartPosition    Position  `json:"startPosition" bson:"start_position"`
	EndPosition      Position  `json:"endPosition" bson:"end_position"`
	Path             []string  `json:"path" bson:"path"`
}

// Clone returns a copy of the trip that does not share the path slice.
func (t Trip) Clone() Trip {
	out := t
	if t.Path != nil {
		out.Path = append([]string(nil), t.Path...)
	}
	return out
}
