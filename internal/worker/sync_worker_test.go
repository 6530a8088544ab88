package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ricarica/internal/amqp"
	"ricarica/internal/core"
	"ricarica/internal/storage"
)

type fakeRemote struct {
	appended []int64
	removed  []int64
	err      error
}

func (f *fakeRemote) AppendSession(ctx context.Context, s core.ChargeSession) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, s.ID)
	return fmt.Sprintf("charges:%d", s.ID), nil
}

func (f *fakeRemote) RemoveSession(ctx context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, id)
	return nil
}

func newWorkerFixture(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *fakeRemote) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	remote := &fakeRemote{}
	return NewSyncWorker(repo, remote, remote, 10), repo, remote
}

func seedCompletedSession(t *testing.T, repo *storage.SQLiteRepository) core.ChargeSession {
	t.Helper()
	ctx := context.Background()
	v, err := repo.InsertVehicle(ctx, core.Vehicle{Name: "Model 3", Brand: "Tesla", CapacityKWh: 60})
	if err != nil {
		t.Fatalf("InsertVehicle: %v", err)
	}
	s, err := repo.InsertSession(ctx, core.ChargeSession{
		VehicleID:    v.ID,
		SupplierID:   1,
		SupplierName: "Casa",
		SupplierType: core.SupplierAC,
		Date:         time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		TotalKm:      1300,
		KWhAdded:     40,
		Cost:         10,
		Status:       core.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	return s
}

func TestHandleSyncMessageMarksSynced(t *testing.T) {
	w, repo, remote := newWorkerFixture(t)
	ctx := context.Background()
	s := seedCompletedSession(t, repo)

	if err := w.HandleMessage(ctx, amqp.NewSessionSyncMessage(s.ID, 0)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(remote.appended) != 1 || remote.appended[0] != s.ID {
		t.Fatalf("appended = %v", remote.appended)
	}
	pending, err := repo.GetPendingSyncSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncSessions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("session should leave the queue after sync, got %d pending", len(pending))
	}
}

func TestHandleSyncMessageRemoteFailureMarksError(t *testing.T) {
	w, repo, remote := newWorkerFixture(t)
	ctx := context.Background()
	s := seedCompletedSession(t, repo)
	remote.err = errors.New("remote down")

	if err := w.HandleMessage(ctx, amqp.NewSessionSyncMessage(s.ID, 0)); err == nil {
		t.Fatal("expected error from failed remote append")
	}

	pending, err := repo.GetPendingSyncSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncSessions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatal("errored session must not stay pending")
	}

	// Startup check requeues and replays once the remote recovers
	remote.err = nil
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if len(remote.appended) != 1 || remote.appended[0] != s.ID {
		t.Fatalf("appended after recovery = %v", remote.appended)
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	w, _, remote := newWorkerFixture(t)

	if err := w.HandleMessage(context.Background(), amqp.NewSessionDeleteMessage(42, "charges:42")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(remote.removed) != 1 || remote.removed[0] != 42 {
		t.Fatalf("removed = %v", remote.removed)
	}
}

func TestHandleDeleteMessageWithoutDeleter(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	w := NewSyncWorker(repo, &fakeRemote{}, nil, 10)

	if err := w.HandleMessage(context.Background(), amqp.NewSessionDeleteMessage(42, "")); err != nil {
		t.Fatalf("delete without deleter must be a no-op, got %v", err)
	}
}

func TestProcessPendingSessionsSkipsInProgress(t *testing.T) {
	w, repo, remote := newWorkerFixture(t)
	ctx := context.Background()

	v, err := repo.InsertVehicle(ctx, core.Vehicle{Name: "Leaf", Brand: "Nissan", CapacityKWh: 40})
	if err != nil {
		t.Fatalf("InsertVehicle: %v", err)
	}
	if _, err := repo.InsertSession(ctx, core.ChargeSession{
		VehicleID:    v.ID,
		SupplierID:   1,
		SupplierName: "Casa",
		SupplierType: core.SupplierAC,
		Date:         time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		TotalKm:      500,
		Status:       core.StatusInProgress,
	}); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	if err := w.ProcessPendingSessions(ctx); err != nil {
		t.Fatalf("ProcessPendingSessions: %v", err)
	}
	if len(remote.appended) != 0 {
		t.Fatalf("in-progress session must not sync, appended = %v", remote.appended)
	}
}

func TestHandleMessageUnknownKindDropped(t *testing.T) {
	w, _, _ := newWorkerFixture(t)

	msg := &amqp.SessionSyncMessage{Kind: "mystery", ID: 1}
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("unknown kind must be dropped without error, got %v", err)
	}
}
