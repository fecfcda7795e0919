package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-replay/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSnapshotCollection stores one document per VIN holding its latest snapshot.
type MongoSnapshotCollection struct {
	Collection *mongo.Collection
}

// UpsertSnapshot replaces the stored snapshot of snap.VIN.
func (c *MongoSnapshotCollection) UpsertSnapshot(ctx context.Context, snap models.Snapshot) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.ReplaceOne(ctx, bson.M{"vin": snap.VIN}, snap, options.Replace().SetUpsert(true))
	return err
}

// FindSnapshotByVIN returns the latest stored snapshot of a vehicle.
func (c *MongoSnapshotCollection) FindSnapshotByVIN(ctx context.Context, vin string) (*models.Snapshot, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var snap models.Snapshot
	if err := c.Collection.FindOne(ctx, bson.M{"vin": vin}).Decode(&snap); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return &snap, nil
}

// SnapshotSink adapts a SnapshotCollection to the broadcast publisher interface.
type SnapshotSink struct {
	Snapshots SnapshotCollection
	Timeout   time.Duration
}

// Publish upserts snap, bounded by the sink timeout. The topic is ignored.
func (s *SnapshotSink) Publish(_ string, snap models.Snapshot) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Snapshots.UpsertSnapshot(ctx, snap)
}
