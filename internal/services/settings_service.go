package services

import (
	"context"
	"fmt"
	"log/slog"

	"ricarica/internal/core"
	"ricarica/internal/tablestore"
)

// SettingsService loads and saves the global fuel comparison settings.
type SettingsService struct {
	store tablestore.SettingsStore
}

func NewSettingsService(store tablestore.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) Load(ctx context.Context) (core.Settings, error) {
	return s.store.LoadSettings(ctx)
}

// Save persists new settings. Existing sessions keep their snapshots, only
// future completions pick up the new values.
func (s *SettingsService) Save(ctx context.Context, settings core.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	slog.InfoContext(ctx, "Settings saved",
		"gasoline_price", settings.GasolinePrice,
		"diesel_price", settings.DieselPrice,
		"home_electricity_price", settings.HomeElectricityPrice)

	return nil
}
