package core

import (
	"testing"
	"time"
)

func TestVehicleValidate(t *testing.T) {
	good := Vehicle{Name: "Panda", Brand: "Fiat", CapacityKWh: 42}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Vehicle{
		{Name: "", CapacityKWh: 42},
		{Name: "  ", CapacityKWh: 42},
		{Name: "Panda", CapacityKWh: 0},
		{Name: "Panda", CapacityKWh: -1},
	}
	for i, v := range bads {
		if err := v.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSupplierValidate(t *testing.T) {
	good := Supplier{Name: "Enel X", Type: SupplierAC, Kind: SupplierExternal, StandardCost: 0.45}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Supplier{Name: HomeSupplierName, Type: SupplierAC, Kind: SupplierHome}).Validate(); err != nil {
		t.Fatalf("home supplier with zero cost should validate, got %v", err)
	}

	bads := []Supplier{
		{Name: "", Type: SupplierAC, Kind: SupplierExternal},
		{Name: "X", Type: "EV", Kind: SupplierExternal},
		{Name: "X", Type: SupplierDC, Kind: "remote"},
		{Name: "X", Type: SupplierDC, Kind: SupplierExternal, StandardCost: -0.1},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSettingsSnapshotIsByValue(t *testing.T) {
	st := DefaultSettings()
	snap := st.Snapshot()

	st.GasolinePrice = 9.99
	st.DieselConsumption = 1

	if *snap.GasolinePrice == 9.99 {
		t.Fatalf("snapshot must not alias the settings")
	}
	if *snap.GasolinePrice != 1.80 {
		t.Fatalf("snapshot gasoline price = %v, want 1.80", *snap.GasolinePrice)
	}
	if *snap.DieselConsumption != 18.0 {
		t.Fatalf("snapshot diesel consumption = %v, want 18.0", *snap.DieselConsumption)
	}
}

func TestChargeSessionValidate(t *testing.T) {
	end := 80.0
	good := ChargeSession{
		VehicleID:    1,
		SupplierID:   1,
		Date:         time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		TotalKm:      1000,
		BatteryStart: 20,
		BatteryEnd:   &end,
		KWhAdded:     30,
		Cost:         12,
		Status:       StatusCompleted,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	over := 120.0
	bads := []ChargeSession{
		{TotalKm: 10, BatteryStart: 20}, // zero date
		{Date: good.Date, TotalKm: -1, BatteryStart: 20},
		{Date: good.Date, TotalKm: 10, BatteryStart: 101},
		{Date: good.Date, TotalKm: 10, BatteryStart: 20, BatteryEnd: &over},
		{Date: good.Date, TotalKm: 10, BatteryStart: 20, KWhAdded: -1},
		{Date: good.Date, TotalKm: 10, BatteryStart: 20, Cost: -0.01},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
