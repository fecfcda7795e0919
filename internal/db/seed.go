package db

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/catalog"
	"github.com/ukydev/fleet-replay/internal/models"
)

// Defaults applied to vehicles seeded from the trip catalog.
const (
	SeedMake            = "Tesla"
	SeedYear            = 2024
	SeedBatteryCapacity = 75.0 // kWh
	SeedEfficiency      = 15.0 // kWh per 100 km
	SeedLatitude        = 51.5074
	SeedLongitude       = -0.1278
)

// VehicleStore is the write side needed for seeding.
type VehicleStore interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	ExistsByVIN(ctx context.Context, vin string) (bool, error)
}

// SeedFromCatalog registers one vehicle per catalog class. VINs are numbered
// in class order (VIN001, VIN002, ...) and already registered VINs are left alone.
// It returns the number of vehicles inserted.
func SeedFromCatalog(ctx context.Context, store VehicleStore, cat *catalog.Catalog) (int, error) {
	inserted := 0
	for i, class := range cat.Classes() {
		vin := fmt.Sprintf("VIN%03d", i+1)
		exists, err := store.ExistsByVIN(ctx, vin)
		if err != nil {
			return inserted, fmt.Errorf("check vehicle %s: %w", vin, err)
		}
		if exists {
			log.WithField("vin", vin).Debug("Vehicle already registered, skipping seed")
			continue
		}

		soc, _ := cat.InitialSoc(class)
		v := models.Vehicle{
			VIN:                 vin,
			Name:                fmt.Sprintf("%s %03d", class, i+1),
			Make:                SeedMake,
			Model:               class,
			Type:                "EV",
			Year:                SeedYear,
			BatteryCapacity:     SeedBatteryCapacity,
			CurrentBatteryLevel: soc,
			Efficiency:          SeedEfficiency,
			Latitude:            SeedLatitude,
			Longitude:           SeedLongitude,
			State:               models.StateAvailable,
			Active:              true,
			InitialSoc:          soc,
			CreatedAt:           time.Now(),
		}
		if err := store.InsertVehicle(ctx, v); err != nil {
			return inserted, fmt.Errorf("insert vehicle %s: %w", vin, err)
		}
		inserted++
		log.WithFields(log.Fields{
			"vin":   vin,
			"class": class,
		}).Info("Seeded vehicle")
	}
	return inserted, nil
}
