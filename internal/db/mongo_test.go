package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ukydev/fleet-replay/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, "mongodb://bad:uri")
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestConnectMongo_EmptyURI(t *testing.T) {
	if _, err := ConnectMongo(context.Background(), ""); err == nil {
		t.Error("expected error for empty URI")
	}
}

func TestInsertVehicle_NilCollection(t *testing.T) {
	coll := &MongoCollection{Collection: nil}
	if err := coll.InsertVehicle(context.Background(), models.Vehicle{}); err == nil {
		t.Error("expected error when collection is nil")
	}
	if _, err := coll.FindVehicleByVIN(context.Background(), "VIN001"); err == nil {
		t.Error("expected error when collection is nil")
	}
	if _, err := coll.ExistsByVIN(context.Background(), "VIN001"); err == nil {
		t.Error("expected error when collection is nil")
	}
	if _, err := coll.FindVehicles(context.Background(), bson.M{}); err == nil {
		t.Error("expected error when collection is nil")
	}
}

func TestUpsertSnapshot_NilCollection(t *testing.T) {
	coll := &MongoSnapshotCollection{Collection: nil}
	if err := coll.UpsertSnapshot(context.Background(), models.Snapshot{VIN: "VIN001"}); err == nil {
		t.Error("expected error when collection is nil")
	}
	if _, err := coll.FindSnapshotByVIN(context.Background(), "VIN001"); err == nil {
		t.Error("expected error when collection is nil")
	}
}

// Integration test (requires running MongoDB)
func TestVehicleDirectory_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	defer client.Disconnect(context.Background())

	database := client.Database("test_fleet_replay")
	vehicles := database.Collection("vehicles")
	snapshots := database.Collection("snapshots")
	_ = vehicles.Drop(ctx)
	_ = snapshots.Drop(ctx)

	coll := &MongoCollection{Collection: vehicles}
	if err := coll.InsertVehicle(ctx, models.Vehicle{VIN: "VIN001", Active: true}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := coll.InsertVehicle(ctx, models.Vehicle{VIN: "VIN002", Active: false}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dir := &VehicleDirectory{Vehicles: coll}
	active, err := dir.ListActiveVehicles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].VIN != "VIN001" {
		t.Errorf("active=%v want [VIN001]", active)
	}
	missing, err := dir.FindVehicleByVIN(ctx, "NOPE")
	if err != nil || missing != nil {
		t.Errorf("missing=%v err=%v want nil,nil", missing, err)
	}

	sink := &SnapshotSink{Snapshots: &MongoSnapshotCollection{Collection: snapshots}}
	for _, speed := range []float64{10, 20} {
		if err := sink.Publish("simulation.VIN001", models.Snapshot{VIN: "VIN001", Speed: speed}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	n, err := snapshots.CountDocuments(ctx, bson.M{"vin": "VIN001"})
	if err != nil || n != 1 {
		t.Errorf("count=%d err=%v want 1", n, err)
	}
}
