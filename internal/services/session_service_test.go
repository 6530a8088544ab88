package services

import (
	"context"
	"testing"
	"time"

	"ricarica/internal/core"
	"ricarica/internal/tablestore/memory"
)

type fakePublisher struct {
	synced  []int64
	deleted []int64
	err     error
}

func (f *fakePublisher) PublishSessionSync(ctx context.Context, id, attempts int64) error {
	if f.err != nil {
		return f.err
	}
	f.synced = append(f.synced, id)
	return nil
}

func (f *fakePublisher) PublishSessionDelete(ctx context.Context, id int64, remoteRef string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestFixture(t *testing.T) (*SessionService, *fakePublisher, int64) {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	svc := NewSessionService(store, pub)

	v, err := store.InsertVehicle(context.Background(), core.Vehicle{Name: "Model 3", Brand: "Tesla", CapacityKWh: 60})
	if err != nil {
		t.Fatalf("InsertVehicle: %v", err)
	}
	return svc, pub, v.ID
}

func fptr(v float64) *float64 { return &v }

func TestStartThenStopDerivesEverything(t *testing.T) {
	svc, pub, vehicleID := newTestFixture(t)
	ctx := context.Background()

	// Seed a completed first charge at 1000 km
	first, err := svc.SaveManual(ctx, ManualInput{
		VehicleID:  vehicleID,
		SupplierID: 1,
		Date:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Odometer:   1000,
		KWhAdded:   30,
		Cost:       fptr(7.5),
	})
	if err != nil {
		t.Fatalf("SaveManual: %v", err)
	}
	if first.KmSinceLast != nil {
		t.Fatalf("first session must have nil KmSinceLast, got %v", *first.KmSinceLast)
	}

	svc.now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	started, err := svc.Start(ctx, StartInput{
		VehicleID:    vehicleID,
		SupplierID:   1,
		Odometer:     1300,
		BatteryStart: 20,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != core.StatusInProgress {
		t.Fatalf("status = %s", started.Status)
	}
	if started.SupplierName != core.HomeSupplierName {
		t.Fatalf("supplier name = %q", started.SupplierName)
	}

	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	// No cost given: home charge, priced from settings (40 kWh * 0.25)
	stopped, err := svc.Stop(ctx, StopInput{
		SessionID:  started.ID,
		BatteryEnd: fptr(90),
		KWhAdded:   40,
	})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if stopped.Cost != 10.00 {
		t.Errorf("cost = %.2f, want 10.00", stopped.Cost)
	}
	if stopped.KmSinceLast == nil || *stopped.KmSinceLast != 300 {
		t.Errorf("km since last = %v, want 300", stopped.KmSinceLast)
	}
	if stopped.Consumption == nil || *stopped.Consumption != 13.33 {
		t.Errorf("consumption = %v, want 13.33", stopped.Consumption)
	}
	if stopped.EndDate == nil {
		t.Error("end date not set")
	}
	if stopped.Snapshot.GasolinePrice == nil || *stopped.Snapshot.GasolinePrice != 1.80 {
		t.Errorf("snapshot gasoline price = %v, want 1.80", stopped.Snapshot.GasolinePrice)
	}

	if len(pub.synced) != 2 {
		t.Errorf("expected 2 sync messages, got %d", len(pub.synced))
	}
}

func TestStartConflictsWithOpenSession(t *testing.T) {
	svc, _, vehicleID := newTestFixture(t)
	ctx := context.Background()

	if _, err := svc.Start(ctx, StartInput{VehicleID: vehicleID, SupplierID: 1, Odometer: 500}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := svc.Start(ctx, StartInput{VehicleID: vehicleID, SupplierID: 1, Odometer: 500})
	if !core.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStopCompletedSessionConflicts(t *testing.T) {
	svc, _, vehicleID := newTestFixture(t)
	ctx := context.Background()

	started, err := svc.Start(ctx, StartInput{VehicleID: vehicleID, SupplierID: 1, Odometer: 500})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Stop(ctx, StopInput{SessionID: started.ID, BatteryEnd: fptr(80), KWhAdded: 20}); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	_, err = svc.Stop(ctx, StopInput{SessionID: started.ID, BatteryEnd: fptr(80), KWhAdded: 20})
	if !core.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStopWithoutBatteryEndFailsValidation(t *testing.T) {
	svc, _, vehicleID := newTestFixture(t)
	ctx := context.Background()

	started, err := svc.Start(ctx, StartInput{VehicleID: vehicleID, SupplierID: 1, Odometer: 500})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = svc.Stop(ctx, StopInput{SessionID: started.ID, KWhAdded: 20})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The session must still be open after the rejected stop.
	got, err := svc.store.GetSession(ctx, started.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != core.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", got.Status)
	}
	if got.BatteryEnd != nil {
		t.Fatalf("battery end = %v, want nil", got.BatteryEnd)
	}
}

func TestStopUnknownSessionNotFound(t *testing.T) {
	svc, _, _ := newTestFixture(t)

	_, err := svc.Stop(context.Background(), StopInput{SessionID: 404, BatteryEnd: fptr(50), KWhAdded: 10})
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStartAndStopHonorExplicitDates(t *testing.T) {
	svc, _, vehicleID := newTestFixture(t)
	ctx := context.Background()

	startDate := time.Date(2026, 2, 20, 7, 30, 0, 0, time.UTC)
	endDate := time.Date(2026, 2, 20, 11, 0, 0, 0, time.UTC)

	started, err := svc.Start(ctx, StartInput{
		VehicleID:    vehicleID,
		SupplierID:   1,
		Odometer:     800,
		BatteryStart: 30,
		Date:         startDate,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started.Date.Equal(startDate) {
		t.Fatalf("date = %v, want %v", started.Date, startDate)
	}

	stopped, err := svc.Stop(ctx, StopInput{
		SessionID:  started.ID,
		BatteryEnd: fptr(85),
		KWhAdded:   15,
		EndDate:    &endDate,
	})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped.EndDate == nil || !stopped.EndDate.Equal(endDate) {
		t.Fatalf("end date = %v, want %v", stopped.EndDate, endDate)
	}
}

func TestExternalSupplierMissingCostIsZero(t *testing.T) {
	svc, _, vehicleID := newTestFixture(t)
	ctx := context.Background()

	store := svc.store
	external, err := store.InsertSupplier(ctx, core.Supplier{
		Name:         "Enel X",
		Type:         core.SupplierDC,
		Kind:         core.SupplierExternal,
		StandardCost: 0.50,
	})
	if err != nil {
		t.Fatalf("InsertSupplier: %v", err)
	}

	session, err := svc.SaveManual(ctx, ManualInput{
		VehicleID:  vehicleID,
		SupplierID: external.ID,
		Date:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Odometer:   2000,
		KWhAdded:   25,
	})
	if err != nil {
		t.Fatalf("SaveManual: %v", err)
	}
	if session.Cost != 0 {
		t.Errorf("cost = %.2f, want 0", session.Cost)
	}
	// Expectation was 25 kWh at 0.50, the free charge undercuts it
	if session.CostDifference == nil || *session.CostDifference != -12.5 {
		t.Errorf("cost difference = %v, want -12.5", session.CostDifference)
	}
}

func TestNonIncreasingOdometerSkipsDerivation(t *testing.T) {
	svc, _, vehicleID := newTestFixture(t)
	ctx := context.Background()

	if _, err := svc.SaveManual(ctx, ManualInput{
		VehicleID:  vehicleID,
		SupplierID: 1,
		Date:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Odometer:   1000,
		KWhAdded:   30,
	}); err != nil {
		t.Fatalf("SaveManual: %v", err)
	}

	second, err := svc.SaveManual(ctx, ManualInput{
		VehicleID:  vehicleID,
		SupplierID: 1,
		Date:       time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC),
		Odometer:   1000,
		KWhAdded:   20,
	})
	if err != nil {
		t.Fatalf("SaveManual: %v", err)
	}
	if second.KmSinceLast != nil || second.Consumption != nil {
		t.Errorf("expected nil derivation for non-increasing odometer, got %v / %v",
			second.KmSinceLast, second.Consumption)
	}
}

func TestDeletePublishesDeleteMessage(t *testing.T) {
	svc, pub, vehicleID := newTestFixture(t)
	ctx := context.Background()

	session, err := svc.SaveManual(ctx, ManualInput{
		VehicleID:  vehicleID,
		SupplierID: 1,
		Date:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Odometer:   1000,
		KWhAdded:   30,
	})
	if err != nil {
		t.Fatalf("SaveManual: %v", err)
	}

	if err := svc.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(pub.deleted) != 1 || pub.deleted[0] != session.ID {
		t.Fatalf("deleted = %v", pub.deleted)
	}

	if err := svc.Delete(ctx, session.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestPublisherFailureDoesNotFailOperation(t *testing.T) {
	svc, pub, vehicleID := newTestFixture(t)
	pub.err = context.DeadlineExceeded

	_, err := svc.SaveManual(context.Background(), ManualInput{
		VehicleID:  vehicleID,
		SupplierID: 1,
		Date:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Odometer:   1000,
		KWhAdded:   30,
	})
	if err != nil {
		t.Fatalf("SaveManual must not fail on publish error: %v", err)
	}
}

func TestOpenSessionLookup(t *testing.T) {
	svc, _, vehicleID := newTestFixture(t)
	ctx := context.Background()

	open, err := svc.OpenSession(ctx, vehicleID)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if open != nil {
		t.Fatalf("expected no open session, got %+v", open)
	}

	started, err := svc.Start(ctx, StartInput{VehicleID: vehicleID, SupplierID: 1, Odometer: 100})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	open, err = svc.OpenSession(ctx, vehicleID)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if open == nil || open.ID != started.ID {
		t.Fatalf("open = %+v, want id %d", open, started.ID)
	}
}
