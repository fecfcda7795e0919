package simulation

import "errors"

var (
	// ErrNotFound is returned for unknown vehicles.
	ErrNotFound = errors.New("vehicle not found")
	// ErrNoTrips is returned when the vehicle's class has nothing to replay.
	ErrNoTrips = errors.New("no trips for vehicle class")
	// ErrComputationSkip marks a vehicle whose snapshot could not be computed during a tick.
	ErrComputationSkip = errors.New("snapshot computation skipped")
)
