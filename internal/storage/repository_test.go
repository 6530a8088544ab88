package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ricarica/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func insertTestSession(t *testing.T, repo *SQLiteRepository, vehicleID int64, date time.Time) core.ChargeSession {
	t.Helper()
	s, err := repo.InsertSession(context.Background(), core.ChargeSession{
		VehicleID:    vehicleID,
		SupplierID:   1,
		SupplierName: "Casa",
		SupplierType: core.SupplierAC,
		Date:         date,
		TotalKm:      1000,
		KWhAdded:     30,
		Cost:         7.5,
		Status:       core.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	return s
}

func TestMigrationsSeedHomeSupplierAndSettings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	suppliers, err := repo.ListSuppliers(ctx)
	if err != nil {
		t.Fatalf("ListSuppliers: %v", err)
	}
	if len(suppliers) != 1 {
		t.Fatalf("expected seeded supplier, got %d", len(suppliers))
	}
	if suppliers[0].Name != core.HomeSupplierName || !suppliers[0].IsHome() {
		t.Fatalf("seeded supplier = %+v", suppliers[0])
	}

	settings, err := repo.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if settings != core.DefaultSettings() {
		t.Fatalf("seeded settings = %+v", settings)
	}
}

func TestSessionRoundTripPreservesOptionalFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	v, err := repo.InsertVehicle(ctx, core.Vehicle{Name: "Model 3", Brand: "Tesla", CapacityKWh: 60})
	if err != nil {
		t.Fatalf("InsertVehicle: %v", err)
	}

	end := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	batteryEnd := 80.0
	kmSince := 250.0
	consumption := 14.4
	gasPrice := 1.85

	stored, err := repo.InsertSession(ctx, core.ChargeSession{
		VehicleID:    v.ID,
		SupplierID:   1,
		SupplierName: "Casa",
		SupplierType: core.SupplierAC,
		Date:         time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		EndDate:      &end,
		TotalKm:      1250,
		BatteryStart: 20,
		BatteryEnd:   &batteryEnd,
		KWhAdded:     36,
		Cost:         9,
		Status:       core.StatusCompleted,
		KmSinceLast:  &kmSince,
		Consumption:  &consumption,
		Snapshot:     core.FuelSnapshot{GasolinePrice: &gasPrice},
	})
	if err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if stored.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := repo.GetSession(ctx, stored.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Fatalf("end date = %v", got.EndDate)
	}
	if got.BatteryEnd == nil || *got.BatteryEnd != batteryEnd {
		t.Fatalf("battery end = %v", got.BatteryEnd)
	}
	if got.KmSinceLast == nil || *got.KmSinceLast != kmSince {
		t.Fatalf("km since last = %v", got.KmSinceLast)
	}
	if got.Snapshot.GasolinePrice == nil || *got.Snapshot.GasolinePrice != gasPrice {
		t.Fatalf("snapshot gasoline price = %v", got.Snapshot.GasolinePrice)
	}
	if got.Snapshot.DieselPrice != nil {
		t.Fatalf("expected nil diesel price, got %v", *got.Snapshot.DieselPrice)
	}
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	v, err := repo.InsertVehicle(ctx, core.Vehicle{Name: "500e", Brand: "Fiat", CapacityKWh: 42})
	if err != nil {
		t.Fatalf("InsertVehicle: %v", err)
	}

	old := insertTestSession(t, repo, v.ID, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))
	recent := insertTestSession(t, repo, v.ID, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))

	sessions, err := repo.ListVehicleSessions(ctx, v.ID)
	if err != nil {
		t.Fatalf("ListVehicleSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != recent.ID || sessions[1].ID != old.ID {
		t.Fatalf("wrong order: %d, %d", sessions[0].ID, sessions[1].ID)
	}
}

func TestSyncQueueLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	v, err := repo.InsertVehicle(ctx, core.Vehicle{Name: "Leaf", Brand: "Nissan", CapacityKWh: 40})
	if err != nil {
		t.Fatalf("InsertVehicle: %v", err)
	}
	s := insertTestSession(t, repo, v.ID, time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))

	pending, err := repo.GetPendingSyncSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncSessions: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != s.ID {
		t.Fatalf("pending = %+v", pending)
	}

	if err := repo.MarkSynced(ctx, s.ID, "charges:77"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	pending, err = repo.GetPendingSyncSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncSessions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue after sync, got %d", len(pending))
	}

	s2 := insertTestSession(t, repo, v.ID, time.Date(2026, 2, 11, 8, 0, 0, 0, time.UTC))
	if err := repo.MarkSyncError(ctx, s2.ID); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}
	pending, err = repo.GetPendingSyncSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncSessions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("errored session must leave the pending queue, got %d", len(pending))
	}

	retried, err := repo.RetrySyncErrors(ctx)
	if err != nil {
		t.Fatalf("RetrySyncErrors: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d, want 1", retried)
	}
	pending, err = repo.GetPendingSyncSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncSessions: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != s2.ID {
		t.Fatalf("pending after retry = %+v", pending)
	}
	if pending[0].Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", pending[0].Attempts)
	}
}

func TestInProgressSessionsAreNotQueued(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	v, err := repo.InsertVehicle(ctx, core.Vehicle{Name: "Kona", Brand: "Hyundai", CapacityKWh: 64})
	if err != nil {
		t.Fatalf("InsertVehicle: %v", err)
	}
	_, err = repo.InsertSession(ctx, core.ChargeSession{
		VehicleID:    v.ID,
		SupplierID:   1,
		SupplierName: "Casa",
		SupplierType: core.SupplierAC,
		Date:         time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
		TotalKm:      500,
		Status:       core.StatusInProgress,
	})
	if err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	pending, err := repo.GetPendingSyncSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncSessions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("in-progress session must not be queued, got %d", len(pending))
	}
}

func TestDeviceState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.GetDeviceState(ctx, DeviceKeyLastVehicle)
	if err != nil {
		t.Fatalf("GetDeviceState: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty state, got %q", got)
	}

	if err := repo.SetDeviceState(ctx, DeviceKeyLastVehicle, "3"); err != nil {
		t.Fatalf("SetDeviceState: %v", err)
	}
	if err := repo.SetDeviceState(ctx, DeviceKeyLastVehicle, "5"); err != nil {
		t.Fatalf("SetDeviceState overwrite: %v", err)
	}

	got, err = repo.GetDeviceState(ctx, DeviceKeyLastVehicle)
	if err != nil {
		t.Fatalf("GetDeviceState: %v", err)
	}
	if got != "5" {
		t.Fatalf("state = %q, want 5", got)
	}
}
