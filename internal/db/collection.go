package db

import (
	"context"

	"github.com/ukydev/fleet-replay/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicles(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (VehicleCursor, error)
	FindVehicleByVIN(ctx context.Context, vin string) (*models.Vehicle, error)
	ExistsByVIN(ctx context.Context, vin string) (bool, error)
}

// VehicleCursor defines the interface for vehicle cursor operations.
type VehicleCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// SnapshotCollection keeps the latest simulated snapshot of each vehicle.
type SnapshotCollection interface {
	UpsertSnapshot(ctx context.Context, snap models.Snapshot) error
	FindSnapshotByVIN(ctx context.Context, vin string) (*models.Snapshot, error)
}
