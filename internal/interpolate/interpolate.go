// Package interpolate computes intermediate telemetry along a replayed trip.
package interpolate

import (
	"math"

	"github.com/ukydev/fleet-replay/internal/models"
)

// Result is the telemetry derived for one waypoint of a trip.
type Result struct {
	Latitude      float64
	Longitude     float64
	Speed         float64 // km/h
	BatteryLevel  float64 // percent
	OdometerDelta float64 // km since trip start
	Progress      float64 // [0,1]
}

// Progress returns waypoint/pathLen clamped to [0,1]. Empty paths report 0.
func Progress(waypoint, pathLen int) float64 {
	if pathLen <= 0 {
		return 0
	}
	p := float64(waypoint) / float64(pathLen)
	return math.Max(0, math.Min(1, p))
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Interpolate derives position, speed, battery and odometer delta for the given
// waypoint of trip, elapsedSeconds after the previous tick.
// ok is false for trips with an empty path; callers keep the last known telemetry.
func Interpolate(trip models.Trip, waypoint int, elapsedSeconds float64) (Result, bool) {
	n := len(trip.Path)
	if n == 0 {
		return Result{}, false
	}
	progress := Progress(waypoint, n)
	segments := float64(n)

	var r Result
	r.Progress = progress
	r.Latitude = Lerp(trip.StartPosition.X, trip.EndPosition.X, progress)
	r.Longitude = Lerp(trip.StartPosition.Y, trip.EndPosition.Y, progress)

	if elapsedSeconds > 0 {
		r.Speed = (trip.DistanceKm / segments) / (elapsedSeconds / 3600.0)
	}

	// Wh is subtracted from a percentage with no capacity divisor. Keep as is.
	energyPerSegment := trip.EnergyConsumedWh / segments
	r.BatteryLevel = trip.SocPercentage - (energyPerSegment * float64(waypoint) / 100.0)

	r.OdometerDelta = trip.DistanceKm * float64(waypoint) / segments
	return r, true
}
