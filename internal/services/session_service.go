// Package services orchestrates the domain operations on top of the
// configured backend: session lifecycle, supplier management, settings.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ricarica/internal/backend"
	"ricarica/internal/core"
)

// SyncPublisher pushes session changes onto the sync queue. Nil disables
// queue publishing, sessions then wait for the worker's periodic scan.
type SyncPublisher interface {
	PublishSessionSync(ctx context.Context, id, attempts int64) error
	PublishSessionDelete(ctx context.Context, id int64, remoteRef string) error
}

// SessionService drives the charge session lifecycle.
type SessionService struct {
	store     backend.Backend
	publisher SyncPublisher
	now       func() time.Time
}

func NewSessionService(store backend.Backend, publisher SyncPublisher) *SessionService {
	return &SessionService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// StartInput begins a session: only the odometer and battery level are known
// at plug-in time. A zero Date means now.
type StartInput struct {
	VehicleID    int64
	SupplierID   int64
	Odometer     float64
	BatteryStart float64
	Date         time.Time
}

// StopInput completes a session. BatteryEnd is required; cost is optional,
// home charges fall back to the configured electricity price. EndDate nil
// means now.
type StopInput struct {
	SessionID  int64
	BatteryEnd *float64
	KWhAdded   float64
	Cost       *float64
	EndDate    *time.Time
}

// ManualInput records a completed session in one step, for charges logged
// after the fact.
type ManualInput struct {
	VehicleID    int64
	SupplierID   int64
	Date         time.Time
	EndDate      *time.Time
	Odometer     float64
	BatteryStart float64
	BatteryEnd   *float64
	KWhAdded     float64
	Cost         *float64
}

// Start creates an in-progress session for the vehicle. A vehicle can have
// at most one open session.
func (s *SessionService) Start(ctx context.Context, in StartInput) (core.ChargeSession, error) {
	open, err := s.OpenSession(ctx, in.VehicleID)
	if err != nil {
		return core.ChargeSession{}, err
	}
	if open != nil {
		return core.ChargeSession{}, core.Conflict("vehicle already has a session in progress")
	}

	supplier, err := s.findSupplier(ctx, in.SupplierID)
	if err != nil {
		return core.ChargeSession{}, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	session := core.ChargeSession{
		VehicleID:    in.VehicleID,
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
		SupplierType: supplier.Type,
		Date:         date,
		TotalKm:      in.Odometer,
		BatteryStart: in.BatteryStart,
		StandardCost: supplier.StandardCost,
		Status:       core.StatusInProgress,
	}
	if err := session.Validate(); err != nil {
		return core.ChargeSession{}, err
	}

	stored, err := s.store.InsertSession(ctx, session)
	if err != nil {
		return core.ChargeSession{}, fmt.Errorf("start session: %w", err)
	}

	slog.InfoContext(ctx, "Session started",
		"id", stored.ID,
		"vehicle_id", stored.VehicleID,
		"supplier", stored.SupplierName)

	return stored, nil
}

// Stop completes an in-progress session, deriving cost and the per-session
// figures.
func (s *SessionService) Stop(ctx context.Context, in StopInput) (core.ChargeSession, error) {
	if in.BatteryEnd == nil {
		return core.ChargeSession{}, core.Invalid("battery_end", "missing value")
	}

	session, err := s.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return core.ChargeSession{}, err
	}
	if session.Completed() {
		return core.ChargeSession{}, core.Conflict("session is already completed")
	}

	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return core.ChargeSession{}, fmt.Errorf("load settings: %w", err)
	}

	end := s.now()
	if in.EndDate != nil {
		end = *in.EndDate
	}
	session.EndDate = &end
	session.BatteryEnd = in.BatteryEnd
	session.KWhAdded = in.KWhAdded
	session.Cost = s.resolveCost(ctx, session, in.Cost, in.KWhAdded, settings)
	session.Status = core.StatusCompleted

	if err := s.finalize(ctx, &session, settings); err != nil {
		return core.ChargeSession{}, err
	}
	if err := session.Validate(); err != nil {
		return core.ChargeSession{}, err
	}

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return core.ChargeSession{}, fmt.Errorf("stop session: %w", err)
	}

	slog.InfoContext(ctx, "Session completed",
		"id", session.ID,
		"kwh", session.KWhAdded,
		"cost", session.Cost)

	s.publishSync(ctx, session.ID)
	return session, nil
}

// SaveManual records an already finished session.
func (s *SessionService) SaveManual(ctx context.Context, in ManualInput) (core.ChargeSession, error) {
	supplier, err := s.findSupplier(ctx, in.SupplierID)
	if err != nil {
		return core.ChargeSession{}, err
	}

	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return core.ChargeSession{}, fmt.Errorf("load settings: %w", err)
	}

	session := core.ChargeSession{
		VehicleID:    in.VehicleID,
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
		SupplierType: supplier.Type,
		Date:         in.Date,
		EndDate:      in.EndDate,
		TotalKm:      in.Odometer,
		BatteryStart: in.BatteryStart,
		BatteryEnd:   in.BatteryEnd,
		KWhAdded:     in.KWhAdded,
		StandardCost: supplier.StandardCost,
		Status:       core.StatusCompleted,
	}
	session.Cost = s.resolveCost(ctx, session, in.Cost, in.KWhAdded, settings)

	if err := s.finalize(ctx, &session, settings); err != nil {
		return core.ChargeSession{}, err
	}
	if err := session.Validate(); err != nil {
		return core.ChargeSession{}, err
	}

	stored, err := s.store.InsertSession(ctx, session)
	if err != nil {
		return core.ChargeSession{}, fmt.Errorf("save session: %w", err)
	}

	slog.InfoContext(ctx, "Manual session saved",
		"id", stored.ID,
		"vehicle_id", stored.VehicleID,
		"date", stored.Date)

	s.publishSync(ctx, stored.ID)
	return stored, nil
}

// Delete removes a session and notifies the sync queue.
func (s *SessionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSessionDelete(ctx, id, ""); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message",
				"id", id, "error", err)
			// Local delete already happened, the periodic scan reconciles
		}
	}
	return nil
}

// OpenSession returns the vehicle's in-progress session, nil when the
// vehicle is not charging.
func (s *SessionService) OpenSession(ctx context.Context, vehicleID int64) (*core.ChargeSession, error) {
	sessions, err := s.store.ListVehicleSessions(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].Status == core.StatusInProgress {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

// VehicleSessions lists the vehicle's sessions, most recent first.
func (s *SessionService) VehicleSessions(ctx context.Context, vehicleID int64) ([]core.ChargeSession, error) {
	return s.store.ListVehicleSessions(ctx, vehicleID)
}

// resolveCost fills a missing cost: home charges are priced from the
// configured electricity price, anything else defaults to zero.
func (s *SessionService) resolveCost(ctx context.Context, session core.ChargeSession, cost *float64, kwh float64, settings core.Settings) float64 {
	if cost != nil {
		return core.Round2(*cost)
	}
	if s.isHomeSupplier(ctx, session.SupplierID) {
		return core.Round2(kwh * settings.HomeElectricityPrice)
	}
	return 0
}

func (s *SessionService) isHomeSupplier(ctx context.Context, supplierID int64) bool {
	suppliers, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return false
	}
	for _, sup := range suppliers {
		if sup.ID == supplierID {
			return sup.IsHome()
		}
	}
	return false
}

// finalize derives the completion-time figures: distance since the previous
// charge, consumption, cost difference and the fuel snapshot.
func (s *SessionService) finalize(ctx context.Context, session *core.ChargeSession, settings core.Settings) error {
	sessions, err := s.store.ListVehicleSessions(ctx, session.VehicleID)
	if err != nil {
		return fmt.Errorf("list vehicle sessions: %w", err)
	}

	var previousKm *float64
	for _, prev := range sessions {
		if prev.ID == session.ID || !prev.Completed() {
			continue
		}
		if prev.Date.Before(session.Date) {
			km := prev.TotalKm
			previousKm = &km
			break
		}
	}

	delta := core.ComputeDelta(session.TotalKm, previousKm, session.KWhAdded)
	session.KmSinceLast = delta.KmSinceLast
	session.Consumption = delta.Consumption

	diff := core.Round2(session.Cost - session.KWhAdded*session.StandardCost)
	session.CostDifference = &diff

	session.Snapshot = settings.Snapshot()
	return nil
}

func (s *SessionService) findSupplier(ctx context.Context, id int64) (core.Supplier, error) {
	suppliers, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("list suppliers: %w", err)
	}
	for _, sup := range suppliers {
		if sup.ID == id {
			return sup, nil
		}
	}
	return core.Supplier{}, core.NotFound("supplier", id)
}

func (s *SessionService) publishSync(ctx context.Context, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSessionSync(ctx, id, 0); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Session is saved locally, the periodic scan picks it up
	}
}
