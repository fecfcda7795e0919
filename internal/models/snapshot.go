package models

import (
	"time"
)

// TrafficCondition classifies traffic from instantaneous speed.
type TrafficCondition string

const (
	TrafficCongested TrafficCondition = "CONGESTED"
	TrafficHeavy     TrafficCondition = "HEAVY"
	TrafficModerate  TrafficCondition = "MODERATE"
	TrafficLight     TrafficCondition = "LIGHT"
	// TrafficNormal is reported for vehicles that have nothing to replay.
	TrafficNormal TrafficCondition = "NORMAL"
)

// Recommendation is the tick-level driver advisory tag.
type Recommendation string

const (
	RecommendLowBattery Recommendation = "LOW_BATTERY_WARNING"
	RecommendSpeed      Recommendation = "SPEED_WARNING"
	RecommendNormal     Recommendation = "NORMAL"
)

// Snapshot is the computed telemetry for one vehicle at one point in time.
// It is transient: each tick produces a fresh value.
type Snapshot struct {
	VIN              string           `json:"vin" bson:"vin"`
	Timestamp        time.Time        `json:"timestamp" bson:"timestamp"`
	Latitude         float64          `json:"latitude" bson:"latitude"`
	Longitude        float64          `json:"longitude" bson:"longitude"`
	Speed            float64          `json:"speed" bson:"speed"`
	BatteryLevel     float64          `json:"batteryLevel" bson:"battery_level"`
	Odometer         float64          `json:"odometer" bson:"odometer"`
	State            VehicleState     `json:"state" bson:"state"`
	TrafficCondition TrafficCondition `json:"trafficCondition" bson:"traffic_condition"`
	Recommendation   Recommendation   `json:"recommendation" bson:"recommendation"`
	VehicleClass     string           `json:"vehicleClass" bson:"vehicle_class"`
	TripIndex        int              `json:"tripIndex" bson:"trip_index"`
	WaypointIndex    int              `json:"waypointIndex" bson:"waypoint_index"`
	SpeedMultiplier  float64          `json:"speedMultiplier" bson:"speed_multiplier"`
	TickID           string           `json:"tickId,omitempty" bson:"tick_id,omitempty"`
}
