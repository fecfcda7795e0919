package models

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleState is the lifecycle state of a fleet vehicle.
type VehicleState string

const (
	StateAvailable    VehicleState = "AVAILABLE"
	StateInUse        VehicleState = "IN_USE"
	StateCharging     VehicleState = "CHARGING"
	StateMaintenance  VehicleState = "MAINTENANCE"
	StateOutOfService VehicleState = "OUT_OF_SERVICE"
)

// IsValidState checks if a vehicle state is one of the known lifecycle states
func IsValidState(s VehicleState) bool {
	switch s {
	case StateAvailable, StateInUse, StateCharging, StateMaintenance, StateOutOfService:
		return true
	default:
		return false
	}
}

// Vehicle represents a fleet vehicle as stored in the vehicle directory.
type Vehicle struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VIN                 string             `bson:"vin" json:"vin"`
	Name                string             `bson:"name" json:"name"`
	Make                string             `bson:"make" json:"make"`
	Model               string             `bson:"model" json:"model"`
	Type                string             `bson:"type" json:"type"`
	Year                int                `bson:"year" json:"year"`
	BatteryCapacity     float64            `bson:"battery_capacity" json:"battery_capacity"` // kWh
	CurrentBatteryLevel float64            `bson:"current_battery_level" json:"current_battery_level"`
	Efficiency          float64            `bson:"efficiency" json:"efficiency"` // kWh per 100 km
	CurrentSpeed        float64            `bson:"current_speed" json:"current_speed"`
	Latitude            float64            `bson:"latitude" json:"latitude"`
	Longitude           float64            `bson:"longitude" json:"longitude"`
	Odometer            float64            `bson:"odometer" json:"odometer"` // km
	State               VehicleState       `bson:"state" json:"state"`
	Active              bool               `bson:"active" json:"active"`
	InitialSoc          float64            `bson:"initial_soc" json:"initial_soc"`
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
}

var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// IsWellFormedVIN reports whether vin is a 17 character VIN without I, O or Q.
func IsWellFormedVIN(vin string) bool {
	return vinPattern.MatchString(vin)
}
