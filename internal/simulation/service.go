// Package simulation replays catalog trips for every active vehicle and
// publishes the resulting telemetry snapshots.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/advisory"
	"github.com/ukydev/fleet-replay/internal/broadcast"
	"github.com/ukydev/fleet-replay/internal/catalog"
	"github.com/ukydev/fleet-replay/internal/interpolate"
	"github.com/ukydev/fleet-replay/internal/models"
	"github.com/ukydev/fleet-replay/internal/tracker"
)

// Directory is the read side of the vehicle registry.
// FindVehicleByVIN returns a nil vehicle and a nil error when the VIN is unknown.
type Directory interface {
	ListActiveVehicles(ctx context.Context) ([]models.Vehicle, error)
	FindVehicleByVIN(ctx context.Context, vin string) (*models.Vehicle, error)
}

// Service owns the replay state and answers simulation queries.
type Service struct {
	catalog   *catalog.Catalog
	tracker   *tracker.Tracker
	directory Directory
	publisher broadcast.Publisher
	clock     Clock
	newTickID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithTickID overrides the tick id generator.
func WithTickID(f func() string) Option {
	return func(s *Service) { s.newTickID = f }
}

// NewService creates a service and starts a cursor for every catalog class.
func NewService(cat *catalog.Catalog, dir Directory, pub broadcast.Publisher, opts ...Option) *Service {
	s := &Service{
		catalog:   cat,
		directory: dir,
		publisher: pub,
		clock:     SystemClock{},
		newTickID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = broadcast.NewFanout()
	}
	s.tracker = tracker.New(cat, s.clock.Now)
	for _, class := range cat.Classes() {
		s.tracker.EnsureClass(class)
	}
	return s
}

// TickReport summarizes one tick.
type TickReport struct {
	TickID    string
	Published int
	Skipped   int
}

// Tick advances and publishes every active vehicle. A vehicle that fails is
// logged and skipped; only a directory failure fails the tick.
func (s *Service) Tick(ctx context.Context) (TickReport, error) {
	report := TickReport{TickID: s.newTickID()}
	vehicles, err := s.directory.ListActiveVehicles(ctx)
	if err != nil {
		return report, fmt.Errorf("list active vehicles: %w", err)
	}

	now := s.clock.Now()
	for _, v := range vehicles {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		snap, err := s.computeSafe(v, now, report.TickID, true)
		if err != nil {
			report.Skipped++
			log.WithFields(log.Fields{
				"vin":     v.VIN,
				"tick_id": report.TickID,
			}).WithError(err).Warn("Skipping vehicle")
			continue
		}
		if err := s.publisher.Publish(broadcast.Topic(v.VIN), snap); err != nil {
			log.WithFields(log.Fields{
				"vin":     v.VIN,
				"tick_id": report.TickID,
			}).WithError(err).Warn("Failed to publish snapshot")
		}
		report.Published++
	}

	log.WithFields(log.Fields{
		"tick_id":   report.TickID,
		"published": report.Published,
		"skipped":   report.Skipped,
	}).Debug("Tick complete")
	return report, nil
}

// Snapshot computes the vehicle's telemetry at the current cursor without advancing it.
func (s *Service) Snapshot(ctx context.Context, vin string) (models.Snapshot, error) {
	v, err := s.vehicle(ctx, vin)
	if err != nil {
		return models.Snapshot{}, err
	}
	return s.computeSafe(*v, s.clock.Now(), "", false)
}

func (s *Service) computeSafe(v models.Vehicle, now time.Time, tickID string, advance bool) (snap models.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrComputationSkip, r)
		}
	}()
	if v.VIN == "" {
		return models.Snapshot{}, fmt.Errorf("%w: vehicle has no VIN", ErrComputationSkip)
	}
	return s.compute(v, now, tickID, advance), nil
}

func (s *Service) compute(v models.Vehicle, now time.Time, tickID string, advance bool) models.Snapshot {
	class := catalog.ClassOf(v.Model)
	multiplier := s.tracker.SpeedMultiplier(v.VIN)

	snap := baseline(v, now)
	snap.VehicleClass = class
	snap.SpeedMultiplier = multiplier
	snap.TickID = tickID

	if s.catalog.TripCount(class) == 0 {
		return snap
	}

	s.tracker.EnsureClass(class)
	var cur tracker.Cursor
	if advance {
		cur, _ = s.tracker.Step(class, now)
	} else {
		cur, _ = s.tracker.Cursor(class)
	}
	snap.TripIndex = cur.TripIndex
	snap.WaypointIndex = cur.WaypointIndex

	trip, ok := s.catalog.Trip(class, cur.TripIndex)
	if !ok {
		return snap
	}
	res, ok := interpolate.Interpolate(trip, cur.WaypointIndex, now.Sub(cur.LastTickAt).Seconds())
	if !ok {
		return snap
	}

	speed := res.Speed * multiplier
	snap.Latitude = res.Latitude
	snap.Longitude = res.Longitude
	snap.Speed = speed
	snap.BatteryLevel = res.BatteryLevel
	snap.Odometer = v.Odometer + res.OdometerDelta
	snap.TrafficCondition = advisory.TrafficFor(speed)
	snap.Recommendation = advisory.RecommendationFor(res.BatteryLevel, speed)
	return snap
}

func baseline(v models.Vehicle, now time.Time) models.Snapshot {
	return models.Snapshot{
		VIN:              v.VIN,
		Timestamp:        now,
		Latitude:         v.Latitude,
		Longitude:        v.Longitude,
		Speed:            v.CurrentSpeed,
		BatteryLevel:     v.CurrentBatteryLevel,
		Odometer:         v.Odometer,
		State:            v.State,
		TrafficCondition: models.TrafficNormal,
		Recommendation:   models.RecommendNormal,
	}
}

func (s *Service) vehicle(ctx context.Context, vin string) (*models.Vehicle, error) {
	v, err := s.directory.FindVehicleByVIN(ctx, vin)
	if err != nil {
		return nil, fmt.Errorf("find vehicle %s: %w", vin, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, vin)
	}
	return v, nil
}

// Trips returns the vehicle's class trips in replay order. A nil limit returns all of them.
func (s *Service) Trips(ctx context.Context, vin string, limit *int) ([]models.Trip, error) {
	v, err := s.vehicle(ctx, vin)
	if err != nil {
		return nil, err
	}
	trips := s.catalog.Trips(catalog.ClassOf(v.Model))
	if trips == nil {
		trips = []models.Trip{}
	}
	if limit != nil {
		n := *limit
		if n < 0 {
			n = 0
		}
		if n < len(trips) {
			trips = trips[:n]
		}
	}
	return trips, nil
}

// CurrentTrip returns a copy of the trip the vehicle's class is replaying.
func (s *Service) CurrentTrip(ctx context.Context, vin string) (models.Trip, error) {
	v, err := s.vehicle(ctx, vin)
	if err != nil {
		return models.Trip{}, err
	}
	class := catalog.ClassOf(v.Model)
	if s.catalog.TripCount(class) == 0 {
		return models.Trip{}, fmt.Errorf("%w: %s", ErrNoTrips, class)
	}
	cur := s.tracker.EnsureClass(class)
	trip, ok := s.catalog.Trip(class, cur.TripIndex)
	if !ok {
		return models.Trip{}, fmt.Errorf("%w: %s", ErrNoTrips, class)
	}
	return trip, nil
}

// CurrentPath returns the waypoint labels of the current trip.
func (s *Service) CurrentPath(ctx context.Context, vin string) ([]string, error) {
	trip, err := s.CurrentTrip(ctx, vin)
	if err != nil {
		return nil, err
	}
	if trip.Path == nil {
		return []string{}, nil
	}
	return trip.Path, nil
}

// SetSpeedMultiplier stores a clamped multiplier for a registered vehicle and returns the stored value.
func (s *Service) SetSpeedMultiplier(ctx context.Context, vin string, value float64) (float64, error) {
	if _, err := s.vehicle(ctx, vin); err != nil {
		return 0, err
	}
	stored := s.tracker.SetSpeedMultiplier(vin, value)
	log.WithFields(log.Fields{
		"vin":        vin,
		"requested":  value,
		"multiplier": stored,
	}).Info("Speed multiplier updated")
	return stored, nil
}

// ResetAll rewinds every class to its first trip and clears speed multipliers.
func (s *Service) ResetAll() {
	s.tracker.Reset()
	log.Info("Simulation reset")
}

// Cursor exposes the replay position of a class.
func (s *Service) Cursor(class string) (tracker.Cursor, bool) {
	return s.tracker.Cursor(class)
}

// Statistics aggregates the catalog per class.
func (s *Service) Statistics() catalog.Statistics {
	return s.catalog.Statistics()
}

// Recommendations bundles the advisory for one vehicle.
type Recommendations struct {
	VIN          string          `json:"vin"`
	Snapshot     models.Snapshot `json:"snapshot"`
	Advice       advisory.Advice `json:"advice"`
	Notification string          `json:"notification,omitempty"`
}

// Advise evaluates the vehicle's current snapshot with the richer advisory rules.
func (s *Service) Advise(ctx context.Context, vin string) (Recommendations, error) {
	v, err := s.vehicle(ctx, vin)
	if err != nil {
		return Recommendations{}, err
	}
	snap, err := s.computeSafe(*v, s.clock.Now(), "", false)
	if err != nil {
		return Recommendations{}, err
	}
	in := advisory.Input{
		BatteryLevel:       snap.BatteryLevel,
		Speed:              snap.Speed,
		BatteryCapacityKWh: v.BatteryCapacity,
		Efficiency:         v.Efficiency,
	}
	return Recommendations{
		VIN:          vin,
		Snapshot:     snap,
		Advice:       advisory.Evaluate(in),
		Notification: advisory.Notification(in),
	}, nil
}

// ValidateVIN reports whether vin is well formed and not registered yet.
func (s *Service) ValidateVIN(ctx context.Context, vin string) (bool, error) {
	if !models.IsWellFormedVIN(vin) {
		return false, nil
	}
	v, err := s.directory.FindVehicleByVIN(ctx, vin)
	if err != nil {
		return false, fmt.Errorf("find vehicle %s: %w", vin, err)
	}
	return v == nil, nil
}
