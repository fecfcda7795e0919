// Package advisory classifies traffic and derives driver recommendations from
// instantaneous telemetry. Everything here is pure.
package advisory

import (
	"fmt"
	"strings"

	"github.com/ukydev/fleet-replay/internal/models"
)

const (
	CriticalBatteryLevel     = 20.0
	WarningBatteryLevel      = 30.0
	HighSpeedThreshold       = 100.0 // km/h
	HighTrafficSpeedFraction = 0.7
)

// BatteryAlert is the severity tier of a battery advisory.
type BatteryAlert string

const (
	BatteryCritical BatteryAlert = "CRITICAL"
	BatteryWarning  BatteryAlert = "WARNING"
)

// Advice action tags.
const (
	ImmediateCharging = "IMMEDIATE_CHARGING"
	PlanCharging      = "PLAN_CHARGING"
	ReduceSpeed       = "REDUCE_SPEED"
)

// TrafficFor classifies traffic from speed in km/h.
func TrafficFor(speed float64) models.TrafficCondition {
	switch {
	case speed < 20:
		return models.TrafficCongested
	case speed < 40:
		return models.TrafficHeavy
	case speed < 60:
		return models.TrafficModerate
	default:
		return models.TrafficLight
	}
}

// RecommendationFor returns the tick-level recommendation. Low battery wins over speed.
func RecommendationFor(batteryLevel, speed float64) models.Recommendation {
	if batteryLevel <= CriticalBatteryLevel {
		return models.RecommendLowBattery
	}
	if speed > HighSpeedThreshold {
		return models.RecommendSpeed
	}
	return models.RecommendNormal
}

// Input is the vehicle data the richer advisory works on.
type Input struct {
	BatteryLevel       float64 // percent
	Speed              float64 // km/h
	BatteryCapacityKWh float64
	Efficiency         float64 // kWh per 100 km
}

// Advice holds independent advisory outputs. Empty fields mean no advisory for that concern.
type Advice struct {
	BatteryAlert            BatteryAlert `json:"batteryAlert,omitempty"`
	BatteryRecommendation   string       `json:"batteryRecommendation,omitempty"`
	SpeedRecommendation     string       `json:"speedRecommendation,omitempty"`
	RecommendedSpeed        *float64     `json:"recommendedSpeed,omitempty"`
	EstimatedRemainingRange float64      `json:"estimatedRemainingRange"`
}

// Evaluate computes battery tiers, speed advice and the remaining range estimate.
func Evaluate(in Input) Advice {
	var a Advice
	switch {
	case in.BatteryLevel <= CriticalBatteryLevel:
		a.BatteryAlert = BatteryCritical
		a.BatteryRecommendation = ImmediateCharging
	case in.BatteryLevel <= WarningBatteryLevel:
		a.BatteryAlert = BatteryWarning
		a.BatteryRecommendation = PlanCharging
	}

	if in.Speed > HighSpeedThreshold {
		v := in.Speed * HighTrafficSpeedFraction
		a.SpeedRecommendation = ReduceSpeed
		a.RecommendedSpeed = &v
	}

	a.EstimatedRemainingRange = RemainingRange(in.BatteryLevel, in.BatteryCapacityKWh, in.Efficiency)
	return a
}

// RemainingRange estimates range in km. Zero or negative efficiency yields 0.
func RemainingRange(batteryLevel, capacityKWh, efficiency float64) float64 {
	if efficiency <= 0 {
		return 0
	}
	available := (batteryLevel / 100.0) * capacityKWh
	return (available / efficiency) * 100
}

// Notification renders the advisory as driver-facing text, one line per concern.
func Notification(in Input) string {
	var b strings.Builder
	switch {
	case in.BatteryLevel <= CriticalBatteryLevel:
		fmt.Fprintf(&b, "CRITICAL: Battery level at %.1f%%. Immediate charging required.\n", in.BatteryLevel)
	case in.BatteryLevel <= WarningBatteryLevel:
		fmt.Fprintf(&b, "WARNING: Battery level at %.1f%%. Plan charging soon.\n", in.BatteryLevel)
	}
	if in.Speed > HighSpeedThreshold {
		fmt.Fprintf(&b, "High speed detected: %.1f km/h. Consider reducing speed for better efficiency.\n", in.Speed)
	}
	return strings.TrimSpace(b.String())
}
