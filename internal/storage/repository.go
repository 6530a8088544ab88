// Package storage is the local SQLite persistence used by the sqlite backend.
// Sessions written here carry a sync status so the worker can replay them to
// the remote store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ricarica/internal/core"

	_ "modernc.org/sqlite"
)

// Sync queue states for the charges table.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// DeviceKeyLastVehicle remembers the vehicle last shown on this device.
const DeviceKeyLastVehicle = "last_vehicle_id"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, brand, capacity_kwh, image_url FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var out []core.Vehicle
	for rows.Next() {
		var v core.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Brand, &v.CapacityKWh, &v.ImageURL); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicles (name, brand, capacity_kwh, image_url) VALUES (?, ?, ?, ?)`,
		v.Name, v.Brand, v.CapacityKWh, v.ImageURL)
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("insert vehicle: %w", err)
	}
	v.ID, err = res.LastInsertId()
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("vehicle id: %w", err)
	}

	slog.InfoContext(ctx, "Vehicle saved to SQLite", "id", v.ID, "name", v.Name)
	return v, nil
}

func (r *SQLiteRepository) DeleteVehicle(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("vehicle", id)
	}
	return nil
}

func (r *SQLiteRepository) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, kind, standard_cost FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []core.Supplier
	for rows.Next() {
		var s core.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &s.Kind, &s.StandardCost); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertSupplier(ctx context.Context, s core.Supplier) (core.Supplier, error) {
	if err := s.Validate(); err != nil {
		return core.Supplier{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO suppliers (name, type, kind, standard_cost) VALUES (?, ?, ?, ?)`,
		s.Name, string(s.Type), string(s.Kind), s.StandardCost)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("insert supplier: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.Supplier{}, fmt.Errorf("supplier id: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) UpdateSupplier(ctx context.Context, s core.Supplier) error {
	if err := s.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE suppliers SET name = ?, type = ?, kind = ?, standard_cost = ? WHERE id = ?`,
		s.Name, string(s.Type), string(s.Kind), s.StandardCost, s.ID)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("supplier", s.ID)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSupplier(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("supplier", id)
	}
	return nil
}

const sessionColumns = `id, vehicle_id, supplier_id, supplier_name, supplier_type,
	date, end_date, total_km, battery_start, battery_end, kwh_added, cost,
	standard_cost, status, km_since_last, consumption, cost_difference,
	saved_gasoline_price, saved_diesel_price, saved_gasoline_consumption,
	saved_diesel_consumption`

func (r *SQLiteRepository) ListSessions(ctx context.Context) ([]core.ChargeSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM charges ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (r *SQLiteRepository) ListVehicleSessions(ctx context.Context, vehicleID int64) ([]core.ChargeSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM charges WHERE vehicle_id = ? ORDER BY date DESC`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list vehicle sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id int64) (core.ChargeSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM charges WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ChargeSession{}, core.NotFound("session", id)
	}
	if err != nil {
		return core.ChargeSession{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) InsertSession(ctx context.Context, s core.ChargeSession) (core.ChargeSession, error) {
	if err := s.Validate(); err != nil {
		return core.ChargeSession{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO charges (vehicle_id, supplier_id, supplier_name, supplier_type,
			date, end_date, total_km, battery_start, battery_end, kwh_added, cost,
			standard_cost, status, km_since_last, consumption, cost_difference,
			saved_gasoline_price, saved_diesel_price, saved_gasoline_consumption,
			saved_diesel_consumption, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.VehicleID, s.SupplierID, s.SupplierName, string(s.SupplierType),
		s.Date, s.EndDate, s.TotalKm, s.BatteryStart, s.BatteryEnd, s.KWhAdded, s.Cost,
		s.StandardCost, string(s.Status), s.KmSinceLast, s.Consumption, s.CostDifference,
		s.Snapshot.GasolinePrice, s.Snapshot.DieselPrice, s.Snapshot.GasolineConsumption,
		s.Snapshot.DieselConsumption, SyncPending)
	if err != nil {
		return core.ChargeSession{}, fmt.Errorf("insert session: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.ChargeSession{}, fmt.Errorf("session id: %w", err)
	}

	slog.InfoContext(ctx, "Session saved to SQLite",
		"id", s.ID,
		"vehicle_id", s.VehicleID,
		"supplier", s.SupplierName,
		"kwh", s.KWhAdded)

	return s, nil
}

func (r *SQLiteRepository) UpdateSession(ctx context.Context, s core.ChargeSession) error {
	if err := s.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE charges SET vehicle_id = ?, supplier_id = ?, supplier_name = ?,
			supplier_type = ?, date = ?, end_date = ?, total_km = ?, battery_start = ?,
			battery_end = ?, kwh_added = ?, cost = ?, standard_cost = ?, status = ?,
			km_since_last = ?, consumption = ?, cost_difference = ?,
			saved_gasoline_price = ?, saved_diesel_price = ?,
			saved_gasoline_consumption = ?, saved_diesel_consumption = ?,
			sync_status = ?
		 WHERE id = ?`,
		s.VehicleID, s.SupplierID, s.SupplierName, string(s.SupplierType),
		s.Date, s.EndDate, s.TotalKm, s.BatteryStart, s.BatteryEnd, s.KWhAdded, s.Cost,
		s.StandardCost, string(s.Status), s.KmSinceLast, s.Consumption, s.CostDifference,
		s.Snapshot.GasolinePrice, s.Snapshot.DieselPrice, s.Snapshot.GasolineConsumption,
		s.Snapshot.DieselConsumption, SyncPending, s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("session", s.ID)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM charges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("session", id)
	}
	return nil
}

func (r *SQLiteRepository) LoadSettings(ctx context.Context) (core.Settings, error) {
	var s core.Settings
	err := r.db.QueryRowContext(ctx,
		`SELECT gasoline_price, gasoline_consumption, diesel_price, diesel_consumption,
			home_electricity_price FROM settings WHERE id = 1`).
		Scan(&s.GasolinePrice, &s.GasolineConsumption, &s.DieselPrice,
			&s.DieselConsumption, &s.HomeElectricityPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (id, gasoline_price, gasoline_consumption, diesel_price,
			diesel_consumption, home_electricity_price)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			gasoline_price = excluded.gasoline_price,
			gasoline_consumption = excluded.gasoline_consumption,
			diesel_price = excluded.diesel_price,
			diesel_consumption = excluded.diesel_consumption,
			home_electricity_price = excluded.home_electricity_price`,
		s.GasolinePrice, s.GasolineConsumption, s.DieselPrice,
		s.DieselConsumption, s.HomeElectricityPrice)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// PendingSyncSession is the minimal row the worker needs to build a sync
// queue message.
type PendingSyncSession struct {
	ID        int64
	Attempts  int64
	CreatedAt time.Time
}

// GetPendingSyncSessions returns completed sessions not yet replayed to the
// remote store.
func (r *SQLiteRepository) GetPendingSyncSessions(ctx context.Context, limit int) ([]PendingSyncSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sync_attempts, created_at FROM charges
		 WHERE sync_status = ? AND status = ?
		 ORDER BY created_at ASC LIMIT ?`,
		SyncPending, string(core.StatusCompleted), limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync sessions: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncSession
	for rows.Next() {
		var p PendingSyncSession
		if err := rows.Scan(&p.ID, &p.Attempts, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending session: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records a successful sync together with the remote row reference.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, remoteRef string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE charges SET sync_status = ?, synced_at = ?, remote_ref = ? WHERE id = ?`,
		SyncDone, time.Now().UTC(), remoteRef, id)
	if err != nil {
		return fmt.Errorf("mark session synced: %w", err)
	}

	slog.InfoContext(ctx, "Session marked as synced", "id", id, "remote_ref", remoteRef)
	return nil
}

// MarkSyncError flags a failed sync attempt and bumps the retry counter.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE charges SET sync_status = ?, sync_attempts = sync_attempts + 1 WHERE id = ?`,
		SyncError, id)
	if err != nil {
		return fmt.Errorf("mark session sync error: %w", err)
	}

	slog.WarnContext(ctx, "Session marked with sync error", "id", id)
	return nil
}

// RetrySyncErrors moves errored sessions back to pending so the worker
// picks them up again.
func (r *SQLiteRepository) RetrySyncErrors(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE charges SET sync_status = ? WHERE sync_status = ?`, SyncPending, SyncError)
	if err != nil {
		return 0, fmt.Errorf("retry sync errors: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetDeviceState reads a per-device key, empty string when unset.
func (r *SQLiteRepository) GetDeviceState(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM device_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get device state: %w", err)
	}
	return value, nil
}

func (r *SQLiteRepository) SetDeviceState(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set device state: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (core.ChargeSession, error) {
	var (
		s            core.ChargeSession
		endDate      sql.NullTime
		batteryEnd   sql.NullFloat64
		kmSinceLast  sql.NullFloat64
		consumption  sql.NullFloat64
		costDiff     sql.NullFloat64
		gasPrice     sql.NullFloat64
		dieselPrice  sql.NullFloat64
		gasCons      sql.NullFloat64
		dieselCons   sql.NullFloat64
		supplierType string
		status       string
	)

	err := row.Scan(&s.ID, &s.VehicleID, &s.SupplierID, &s.SupplierName, &supplierType,
		&s.Date, &endDate, &s.TotalKm, &s.BatteryStart, &batteryEnd, &s.KWhAdded, &s.Cost,
		&s.StandardCost, &status, &kmSinceLast, &consumption, &costDiff,
		&gasPrice, &dieselPrice, &gasCons, &dieselCons)
	if err != nil {
		return core.ChargeSession{}, err
	}

	s.SupplierType = core.SupplierType(supplierType)
	s.Status = core.SessionStatus(status)
	if endDate.Valid {
		t := endDate.Time
		s.EndDate = &t
	}
	s.BatteryEnd = nullFloat(batteryEnd)
	s.KmSinceLast = nullFloat(kmSinceLast)
	s.Consumption = nullFloat(consumption)
	s.CostDifference = nullFloat(costDiff)
	s.Snapshot = core.FuelSnapshot{
		GasolinePrice:       nullFloat(gasPrice),
		DieselPrice:         nullFloat(dieselPrice),
		GasolineConsumption: nullFloat(gasCons),
		DieselConsumption:   nullFloat(dieselCons),
	}
	return s, nil
}

func collectSessions(rows *sql.Rows) ([]core.ChargeSession, error) {
	var out []core.ChargeSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
