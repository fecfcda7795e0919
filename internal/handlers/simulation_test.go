package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-replay/internal/auth"
	"github.com/ukydev/fleet-replay/internal/broadcast"
	"github.com/ukydev/fleet-replay/internal/catalog"
	"github.com/ukydev/fleet-replay/internal/db"
	"github.com/ukydev/fleet-replay/internal/middleware"
	"github.com/ukydev/fleet-replay/internal/models"
	"github.com/ukydev/fleet-replay/internal/simulation"
)

type fixture struct {
	svc    *simulation.Service
	hub    *broadcast.Hub
	router http.Handler
	tokens *auth.Service
}

func newFixture(t *testing.T, withAuth bool) *fixture {
	t.Helper()
	cat, err := catalog.Load("../catalog/testdata/ev_simulation_logs.json")
	require.NoError(t, err)

	dir := db.NewMemoryDirectory(
		models.Vehicle{VIN: "VIN001", Model: catalog.ClassSUV, Active: true, State: models.StateAvailable,
			BatteryCapacity: 75, Efficiency: 15, CurrentBatteryLevel: 90},
		models.Vehicle{VIN: "VIN002", Model: "Roadster Premium", Active: true, State: models.StateAvailable},
	)
	hub := broadcast.NewHub()
	svc := simulation.NewService(cat, dir, hub)

	f := &fixture{svc: svc, hub: hub}
	opts := RouterOptions{}
	if withAuth {
		f.tokens, err = auth.NewService("test-secret", time.Hour)
		require.NoError(t, err)
		opts.Auth = middleware.NewAuthMiddleware(f.tokens)
	}
	f.router = NewRouter(NewSimulationHandler(svc, hub), opts)
	return f
}

func (f *fixture) do(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, "GET", "/api/simulation/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats catalog.Statistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.PerClass[catalog.ClassSUV].TripCount)
	assert.Equal(t, 60.0, stats.PerClass[catalog.ClassSUV].TotalDistanceKm)
}

func TestTrips(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, "GET", "/api/simulation/vehicles/VIN001/trips", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trips []models.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trips))
	assert.Len(t, trips, 2)

	w = f.do(t, "GET", "/api/simulation/vehicles/VIN001/trips?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trips))
	assert.Len(t, trips, 1)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/api/simulation/vehicles/VIN001/trips?limit=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/api/simulation/vehicles/VIN001/trips?limit=-1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/api/simulation/vehicles/NOPE/trips", "").Code)
}

func TestCurrentPositionAndPath(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, "GET", "/api/simulation/vehicles/VIN001/current-position", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trip models.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trip))
	assert.Equal(t, 40.0, trip.DistanceKm)

	w = f.do(t, "GET", "/api/simulation/vehicles/VIN001/path", "")
	require.Equal(t, http.StatusOK, w.Code)
	var path []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &path))
	assert.Equal(t, []string{"A", "B", "C", "D"}, path)

	// Premium is absent from the catalog
	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/api/simulation/vehicles/VIN002/path", "").Code)
}

func TestSnapshotAndRecommendations(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, "GET", "/api/simulation/vehicles/VIN001/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "VIN001", snap.VIN)
	assert.Equal(t, catalog.ClassSUV, snap.VehicleClass)

	w = f.do(t, "GET", "/api/simulation/vehicles/VIN001/recommendations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"estimatedRemainingRange"`)

	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/api/simulation/vehicles/NOPE/snapshot", "").Code)
}

func TestSetSpeed(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, "POST", "/api/simulation/vehicles/VIN001/speed?multiplier=50", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp speedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10.0, resp.SpeedMultiplier)

	w = f.do(t, "POST", "/api/simulation/vehicles/VIN001/speed?multiplier=-5", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.1, resp.SpeedMultiplier)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/api/simulation/vehicles/VIN001/speed?multiplier=fast", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/api/simulation/vehicles/VIN001/speed", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "POST", "/api/simulation/vehicles/NOPE/speed?multiplier=2", "").Code)
}

func TestCommands_RequireControlPermission(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, "POST", "/api/simulation/reset", "").Code)

	viewer, _ := f.tokens.GenerateToken("v", models.RoleViewer)
	assert.Equal(t, http.StatusForbidden, f.do(t, "POST", "/api/simulation/start", viewer).Code)

	driver, _ := f.tokens.GenerateToken("d", models.RoleDriver)
	for _, cmd := range []string{"start", "stop", "reset"} {
		w := f.do(t, "POST", "/api/simulation/"+cmd, driver)
		assert.Equal(t, http.StatusOK, w.Code, cmd)
	}
	assert.Equal(t, http.StatusOK, f.do(t, "POST", "/api/simulation/vehicles/VIN001/speed?multiplier=2", driver).Code)

	// queries stay open
	assert.Equal(t, http.StatusOK, f.do(t, "GET", "/api/simulation/statistics", "").Code)
}

func TestReset_RewindsCursor(t *testing.T) {
	f := newFixture(t, false)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Tick(testContext(t))
		require.NoError(t, err)
	}
	cur, _ := f.svc.Cursor(catalog.ClassSUV)
	require.Equal(t, 3, cur.WaypointIndex)

	w := f.do(t, "POST", "/api/simulation/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"reset"`)

	cur, _ = f.svc.Cursor(catalog.ClassSUV)
	assert.Equal(t, 0, cur.WaypointIndex)
}

func TestValidateVIN(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, "GET", "/api/simulation/vehicles/validate-vin/5YJ3E1EA7KF317000", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp vinValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)

	w = f.do(t, "GET", "/api/simulation/vehicles/validate-vin/5YJ3E1EA7KF31700O", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
}

func TestStream(t *testing.T) {
	f := newFixture(t, false)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/simulation/VIN001"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first models.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "VIN001", first.VIN)
	assert.Empty(t, first.TickID)

	require.Eventually(t, func() bool { return f.hub.Subscribers(broadcast.Topic("VIN001")) == 1 },
		time.Second, 5*time.Millisecond)
	report, err := f.svc.Tick(testContext(t))
	require.NoError(t, err)

	var ticked models.Snapshot
	require.NoError(t, conn.ReadJSON(&ticked))
	assert.Equal(t, report.TickID, ticked.TickID)
}

func TestStream_UnknownVehicle(t *testing.T) {
	f := newFixture(t, false)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/simulation/NOPE"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// testContext mirrors testing.T.Context (Go 1.24+): the context is
// canceled when the test's cleanup runs.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
