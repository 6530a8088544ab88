// Package worker replays locally stored charge sessions to the remote
// store. Messages arrive over AMQP, a periodic scan catches anything the
// queue missed.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ricarica/internal/amqp"
	"ricarica/internal/storage"
	"ricarica/internal/tablestore"
)

// SyncWorker handles synchronization of sessions from SQLite to the remote
// store.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	remote    tablestore.SessionWriter
	deleter   tablestore.SessionDeleter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, remote tablestore.SessionWriter, deleter tablestore.SessionDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		remote:    remote,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleMessage processes a single sync queue message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.SessionSyncMessage) error {
	switch msg.Kind {
	case amqp.KindSync:
		return w.syncSession(ctx, msg.ID)
	case amqp.KindDelete:
		return w.deleteRemote(ctx, msg.ID)
	default:
		slog.WarnContext(ctx, "Unknown message kind, dropping", "kind", msg.Kind, "id", msg.ID)
		return nil
	}
}

func (w *SyncWorker) syncSession(ctx context.Context, id int64) error {
	session, err := w.storage.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("get session from storage: %w", err)
	}

	if !session.Completed() {
		slog.InfoContext(ctx, "Session still in progress, skipping sync", "id", id)
		return nil
	}

	ref, err := w.remote.AppendSession(ctx, session)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append session to remote: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id, ref); err != nil {
		return fmt.Errorf("mark session synced: %w", err)
	}

	return nil
}

func (w *SyncWorker) deleteRemote(ctx context.Context, id int64) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No remote deleter configured, skipping remote delete", "id", id)
		return nil
	}

	if err := w.deleter.RemoveSession(ctx, id); err != nil {
		return fmt.Errorf("delete session from remote: %w", err)
	}

	slog.InfoContext(ctx, "Session deleted from remote", "id", id)
	return nil
}

// ProcessPendingSessions replays unsynced sessions. This is the backup
// mechanism for lost AMQP messages.
func (w *SyncWorker) ProcessPendingSessions(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncSessions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending sessions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending sessions", "count", len(pending))

	for _, p := range pending {
		if err := w.syncSession(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync session", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck replays pending sessions accumulated while the worker
// was down, and requeues previously errored ones.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	retried, err := w.storage.RetrySyncErrors(ctx)
	if err != nil {
		return fmt.Errorf("retry sync errors: %w", err)
	}
	if retried > 0 {
		slog.InfoContext(ctx, "Requeued errored sessions", "count", retried)
	}

	pending, err := w.storage.GetPendingSyncSessions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending sessions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending sessions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending sessions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.syncSession(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync session during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

// Run scans for pending sessions on the given interval until the context
// ends.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPendingSessions(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync scan failed", "error", err)
			}
		}
	}
}
