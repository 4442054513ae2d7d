package device

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/settings"
	"github.com/HerbHall/fleetpulse/internal/store"
)

func testMux(t *testing.T) (*http.ServeMux, *Store, *settings.Store) {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	devices, err := NewStore(ctx, db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	settingsStore, err := settings.NewStore(ctx, db, zap.NewNop())
	if err != nil {
		t.Fatalf("settings.NewStore: %v", err)
	}

	fast := settings.NewFastRefresh(settingsStore, devices, zap.NewNop())
	h := NewHandler(devices, fast, zap.NewNop())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, devices, settingsStore
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetDevice(t *testing.T) {
	mux, _, _ := testMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/devices",
		`{"name":"router","host":"10.0.0.1","method":"ping","team":"netops"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created Device
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.ID == "" || !created.Monitoring {
		t.Errorf("created device = %+v, want id set and monitoring on", created)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/devices/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}
}

func TestCreateDeviceValidation(t *testing.T) {
	mux, _, _ := testMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/devices", `{"name":"nohost","method":"ping"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing host", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestGetUnknownDevice(t *testing.T) {
	mux, _, _ := testMux(t)
	rec := doJSON(t, mux, http.MethodGet, "/api/v1/devices/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMonitoringStartStopDrivesFastRefresh(t *testing.T) {
	mux, devices, settingsStore := testMux(t)
	ctx := context.Background()

	if err := settingsStore.SetInterval(ctx, 30); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}

	// Seed one device with monitoring off so nothing is monitored yet.
	d := Device{Name: "srv", Host: "10.0.0.5", Method: MethodPing, Enabled: true, Monitoring: false}
	if err := devices.Insert(ctx, &d); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// First start: interval forced to the minimum.
	rec := doJSON(t, mux, http.MethodPost, "/api/v1/devices/"+d.ID+"/monitoring/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}
	if got := settingsStore.Interval(ctx); got != settings.MinIntervalSeconds {
		t.Errorf("Interval after first start = %d, want %d", got, settings.MinIntervalSeconds)
	}

	// Last stop: interval restored.
	rec = doJSON(t, mux, http.MethodPost, "/api/v1/devices/"+d.ID+"/monitoring/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}
	if got := settingsStore.Interval(ctx); got != 30 {
		t.Errorf("Interval after last stop = %d, want restored 30", got)
	}
}

func TestStartMonitoringUnknownDevice(t *testing.T) {
	mux, _, settingsStore := testMux(t)
	ctx := context.Background()

	if err := settingsStore.SetInterval(ctx, 25); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/devices/ghost/monitoring/start", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	// The interval override must not leak when nothing started.
	if got := settingsStore.Interval(ctx); got != 25 {
		t.Errorf("Interval after failed start = %d, want 25", got)
	}
}

func TestDeleteDevice(t *testing.T) {
	mux, devices, _ := testMux(t)
	ctx := context.Background()

	d := Device{Name: "cam", Host: "10.0.0.9", Method: MethodTCP, Port: 554, Enabled: true}
	if err := devices.Insert(ctx, &d); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rec := doJSON(t, mux, http.MethodDelete, "/api/v1/devices/"+d.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if got, _ := devices.Get(ctx, d.ID); got != nil {
		t.Error("device still present after delete")
	}
}

func TestListDevicesByTeam(t *testing.T) {
	mux, devices, _ := testMux(t)
	ctx := context.Background()

	for _, d := range []Device{
		{Name: "a", Host: "h1", Method: MethodPing, Team: "alpha", Enabled: true},
		{Name: "b", Host: "h2", Method: MethodPing, Team: "beta", Enabled: true},
	} {
		d := d
		if err := devices.Insert(ctx, &d); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/devices?team=alpha", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []Device
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 || list[0].Name != "a" {
		t.Errorf("team filter returned %+v", list)
	}
}
