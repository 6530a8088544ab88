package services

import (
	"context"
	"fmt"
	"log/slog"

	"ricarica/internal/backend"
	"ricarica/internal/core"
)

// VehicleService manages the garage.
type VehicleService struct {
	store backend.Backend
}

func NewVehicleService(store backend.Backend) *VehicleService {
	return &VehicleService{store: store}
}

func (s *VehicleService) List(ctx context.Context) ([]core.Vehicle, error) {
	return s.store.ListVehicles(ctx)
}

func (s *VehicleService) Create(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	stored, err := s.store.InsertVehicle(ctx, v)
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}

	slog.InfoContext(ctx, "Vehicle created", "id", stored.ID, "name", stored.Name)
	return stored, nil
}

// Delete removes a vehicle and its whole charging history.
func (s *VehicleService) Delete(ctx context.Context, id int64) error {
	sessions, err := s.store.ListVehicleSessions(ctx, id)
	if err != nil {
		return fmt.Errorf("list vehicle sessions: %w", err)
	}
	for _, session := range sessions {
		if err := s.store.DeleteSession(ctx, session.ID); err != nil {
			return fmt.Errorf("delete session %d: %w", session.ID, err)
		}
	}
	return s.store.DeleteVehicle(ctx, id)
}
