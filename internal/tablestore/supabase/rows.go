package supabase

import (
	"time"

	"ricarica/internal/core"
)

// Row types mirror the PostgREST column names. IDs carry omitempty so that
// inserts leave assignment to the serial column.

type vehicleRow struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	CapacityKWh float64 `json:"capacity_kwh"`
	ImageURL    string  `json:"image_url"`
}

func newVehicleRow(v core.Vehicle) vehicleRow {
	return vehicleRow{
		ID:          v.ID,
		Name:        v.Name,
		Brand:       v.Brand,
		CapacityKWh: v.CapacityKWh,
		ImageURL:    v.ImageURL,
	}
}

func (r vehicleRow) domain() core.Vehicle {
	return core.Vehicle{
		ID:          r.ID,
		Name:        r.Name,
		Brand:       r.Brand,
		CapacityKWh: r.CapacityKWh,
		ImageURL:    r.ImageURL,
	}
}

type supplierRow struct {
	ID           int64   `json:"id,omitempty"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Kind         string  `json:"kind"`
	StandardCost float64 `json:"standard_cost"`
}

func newSupplierRow(s core.Supplier) supplierRow {
	return supplierRow{
		ID:           s.ID,
		Name:         s.Name,
		Type:         string(s.Type),
		Kind:         string(s.Kind),
		StandardCost: s.StandardCost,
	}
}

func (r supplierRow) domain() core.Supplier {
	return core.Supplier{
		ID:           r.ID,
		Name:         r.Name,
		Type:         core.SupplierType(r.Type),
		Kind:         core.SupplierKind(r.Kind),
		StandardCost: r.StandardCost,
	}
}

type chargeRow struct {
	ID                        int64      `json:"id,omitempty"`
	VehicleID                 int64      `json:"vehicle_id"`
	SupplierID                int64      `json:"supplier_id"`
	SupplierName              string     `json:"supplier_name"`
	SupplierType              string     `json:"supplier_type"`
	Date                      time.Time  `json:"date"`
	EndDate                   *time.Time `json:"end_date"`
	TotalKm                   float64    `json:"total_km"`
	BatteryStart              float64    `json:"battery_start"`
	BatteryEnd                *float64   `json:"battery_end"`
	KWhAdded                  float64    `json:"kwh_added"`
	Cost                      float64    `json:"cost"`
	StandardCost              float64    `json:"standard_cost"`
	Status                    string     `json:"status"`
	KmSinceLast               *float64   `json:"km_since_last"`
	Consumption               *float64   `json:"consumption"`
	CostDifference            *float64   `json:"cost_difference"`
	SavedGasolinePrice        *float64   `json:"saved_gasoline_price"`
	SavedDieselPrice          *float64   `json:"saved_diesel_price"`
	SavedGasolineConsumption  *float64   `json:"saved_gasoline_consumption"`
	SavedDieselConsumption    *float64   `json:"saved_diesel_consumption"`
}

func newChargeRow(s core.ChargeSession) chargeRow {
	return chargeRow{
		ID:                       s.ID,
		VehicleID:                s.VehicleID,
		SupplierID:               s.SupplierID,
		SupplierName:             s.SupplierName,
		SupplierType:             string(s.SupplierType),
		Date:                     s.Date,
		EndDate:                  s.EndDate,
		TotalKm:                  s.TotalKm,
		BatteryStart:             s.BatteryStart,
		BatteryEnd:               s.BatteryEnd,
		KWhAdded:                 s.KWhAdded,
		Cost:                     s.Cost,
		StandardCost:             s.StandardCost,
		Status:                   string(s.Status),
		KmSinceLast:              s.KmSinceLast,
		Consumption:              s.Consumption,
		CostDifference:           s.CostDifference,
		SavedGasolinePrice:       s.Snapshot.GasolinePrice,
		SavedDieselPrice:         s.Snapshot.DieselPrice,
		SavedGasolineConsumption: s.Snapshot.GasolineConsumption,
		SavedDieselConsumption:   s.Snapshot.DieselConsumption,
	}
}

func (r chargeRow) domain() core.ChargeSession {
	return core.ChargeSession{
		ID:             r.ID,
		VehicleID:      r.VehicleID,
		SupplierID:     r.SupplierID,
		SupplierName:   r.SupplierName,
		SupplierType:   core.SupplierType(r.SupplierType),
		Date:           r.Date,
		EndDate:        r.EndDate,
		TotalKm:        r.TotalKm,
		BatteryStart:   r.BatteryStart,
		BatteryEnd:     r.BatteryEnd,
		KWhAdded:       r.KWhAdded,
		Cost:           r.Cost,
		StandardCost:   r.StandardCost,
		Status:         core.SessionStatus(r.Status),
		KmSinceLast:    r.KmSinceLast,
		Consumption:    r.Consumption,
		CostDifference: r.CostDifference,
		Snapshot: core.FuelSnapshot{
			GasolinePrice:       r.SavedGasolinePrice,
			DieselPrice:         r.SavedDieselPrice,
			GasolineConsumption: r.SavedGasolineConsumption,
			DieselConsumption:   r.SavedDieselConsumption,
		},
	}
}

type settingsRow struct {
	ID                  int64   `json:"id"`
	GasolinePrice       float64 `json:"gasoline_price"`
	GasolineConsumption float64 `json:"gasoline_consumption"`
	DieselPrice         float64 `json:"diesel_price"`
	DieselConsumption   float64 `json:"diesel_consumption"`
	HomeElectricityPrice float64 `json:"home_electricity_price"`
}

func newSettingsRow(s core.Settings) settingsRow {
	return settingsRow{
		ID:                   settingsRowID,
		GasolinePrice:        s.GasolinePrice,
		GasolineConsumption:  s.GasolineConsumption,
		DieselPrice:          s.DieselPrice,
		DieselConsumption:    s.DieselConsumption,
		HomeElectricityPrice: s.HomeElectricityPrice,
	}
}

func (r settingsRow) domain() core.Settings {
	return core.Settings{
		GasolinePrice:        r.GasolinePrice,
		GasolineConsumption:  r.GasolineConsumption,
		DieselPrice:          r.DieselPrice,
		DieselConsumption:    r.DieselConsumption,
		HomeElectricityPrice: r.HomeElectricityPrice,
	}
}
