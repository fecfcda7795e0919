package db

import (
	"context"
	"sort"
	"sync"

	"github.com/ukydev/fleet-replay/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryDirectory is an in-process vehicle store used when no database is configured.
type MemoryDirectory struct {
	mu       sync.RWMutex
	vehicles map[string]models.Vehicle
}

// NewMemoryDirectory creates a store holding vehicles.
func NewMemoryDirectory(vehicles ...models.Vehicle) *MemoryDirectory {
	d := &MemoryDirectory{vehicles: make(map[string]models.Vehicle)}
	for _, v := range vehicles {
		_ = d.InsertVehicle(context.Background(), v)
	}
	return d
}

// InsertVehicle adds or replaces the vehicle with the same VIN.
func (d *MemoryDirectory) InsertVehicle(_ context.Context, vehicle models.Vehicle) error {
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	d.mu.Lock()
	d.vehicles[vehicle.VIN] = vehicle
	d.mu.Unlock()
	return nil
}

// ExistsByVIN reports whether vin is stored.
func (d *MemoryDirectory) ExistsByVIN(_ context.Context, vin string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.vehicles[vin]
	return ok, nil
}

// ListActiveVehicles returns the active vehicles ordered by VIN.
func (d *MemoryDirectory) ListActiveVehicles(_ context.Context) ([]models.Vehicle, error) {
	d.mu.RLock()
	out := make([]models.Vehicle, 0, len(d.vehicles))
	for _, v := range d.vehicles {
		if v.Active {
			out = append(out, v)
		}
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].VIN < out[j].VIN })
	return out, nil
}

// FindVehicleByVIN returns a copy of the vehicle, nil when unknown.
func (d *MemoryDirectory) FindVehicleByVIN(_ context.Context, vin string) (*models.Vehicle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vehicles[vin]
	if !ok {
		return nil, nil
	}
	return &v, nil
}
