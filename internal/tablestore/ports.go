package tablestore

import (
	"context"

	"ricarica/internal/core"
)

// Ports for outbound adapters. Each table is an independent collection with
// no joins at the storage layer; session lists come back ordered by date
// descending.
type (
	VehicleStore interface {
		ListVehicles(ctx context.Context) ([]core.Vehicle, error)
		InsertVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error)
		DeleteVehicle(ctx context.Context, id int64) error
	}

	SupplierStore interface {
		ListSuppliers(ctx context.Context) ([]core.Supplier, error)
		InsertSupplier(ctx context.Context, s core.Supplier) (core.Supplier, error)
		UpdateSupplier(ctx context.Context, s core.Supplier) error
		DeleteSupplier(ctx context.Context, id int64) error
	}

	SessionStore interface {
		// ListSessions returns every session, most recent first.
		ListSessions(ctx context.Context) ([]core.ChargeSession, error)
		// ListVehicleSessions returns one vehicle's sessions, most recent first.
		ListVehicleSessions(ctx context.Context, vehicleID int64) ([]core.ChargeSession, error)
		GetSession(ctx context.Context, id int64) (core.ChargeSession, error)
		// InsertSession returns the stored row with its assigned id.
		InsertSession(ctx context.Context, s core.ChargeSession) (core.ChargeSession, error)
		UpdateSession(ctx context.Context, s core.ChargeSession) error
		DeleteSession(ctx context.Context, id int64) error
	}

	SettingsStore interface {
		// LoadSettings returns core.DefaultSettings() when nothing was saved yet.
		LoadSettings(ctx context.Context) (core.Settings, error)
		SaveSettings(ctx context.Context, s core.Settings) error
	}

	// SessionWriter is the sync worker's outbound port: push one completed
	// session to a remote copy, returning an opaque row reference.
	SessionWriter interface {
		AppendSession(ctx context.Context, s core.ChargeSession) (rowRef string, err error)
	}

	// SessionDeleter removes a session from the remote copy.
	SessionDeleter interface {
		RemoveSession(ctx context.Context, id int64) error
	}
)
