package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SupplierAC SupplierType = "AC"
	SupplierDC SupplierType = "DC"

	SupplierHome     SupplierKind = "home"
	SupplierExternal SupplierKind = "external"

	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// HomeSupplierName is the display name of the seeded home supplier.
// Identity checks go through Supplier.Kind, never through this string.
const HomeSupplierName = "Casa"

type (
	SupplierType  string
	SupplierKind  string
	SessionStatus string

	Vehicle struct {
		ID          int64
		Name        string
		Brand       string
		CapacityKWh float64
		ImageURL    string
	}

	Supplier struct {
		ID           int64
		Name         string
		Type         SupplierType
		Kind         SupplierKind
		StandardCost float64 // €/kWh
	}

	// Settings is the global configuration: fuel reference prices and the
	// home electricity price. Mutated only via explicit save.
	Settings struct {
		GasolinePrice        float64 // €/L
		GasolineConsumption  float64 // km/L
		DieselPrice          float64 // €/L
		DieselConsumption    float64 // km/L
		HomeElectricityPrice float64 // €/kWh
	}

	// FuelSnapshot freezes the fuel prices and consumption figures in effect
	// when a session completed, so historical comparisons stay stable under
	// later settings edits.
	FuelSnapshot struct {
		GasolinePrice       *float64
		DieselPrice         *float64
		GasolineConsumption *float64
		DieselConsumption   *float64
	}

	ChargeSession struct {
		ID           int64
		VehicleID    int64
		SupplierID   int64
		SupplierName string       // denormalized at creation time
		SupplierType SupplierType // denormalized at creation time
		Date         time.Time
		EndDate      *time.Time
		TotalKm      float64 // odometer reading at start
		BatteryStart float64 // percent, 0-100
		BatteryEnd   *float64
		KWhAdded     float64
		Cost         float64 // €
		StandardCost float64 // supplier €/kWh at creation time
		Status       SessionStatus

		// Derived at completion time, nil for a vehicle's first session or
		// a non-increasing odometer.
		KmSinceLast    *float64
		Consumption    *float64 // kWh/100km
		CostDifference *float64 // cost vs standard-cost expectation

		Snapshot FuelSnapshot
	}
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidCapacity     = errors.New("battery capacity must be positive")
	ErrInvalidSupplierType = errors.New("invalid supplier type")
	ErrInvalidSupplierKind = errors.New("invalid supplier kind")
	ErrInvalidStandardCost = errors.New("standard cost cannot be negative")
	ErrInvalidBattery      = errors.New("battery percentage out of range")
	ErrInvalidOdometer     = errors.New("odometer reading cannot be negative")
	ErrInvalidKWh          = errors.New("kwh added cannot be negative")
	ErrInvalidCost         = errors.New("cost cannot be negative")
	ErrInvalidPrice        = errors.New("price cannot be negative")
	ErrZeroDate            = errors.New("date cannot be zero")
)

func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrEmptyName
	}
	if v.CapacityKWh <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}

func (s Supplier) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	switch s.Type {
	case SupplierAC, SupplierDC:
	default:
		return ErrInvalidSupplierType
	}
	switch s.Kind {
	case SupplierHome, SupplierExternal:
	default:
		return ErrInvalidSupplierKind
	}
	if s.StandardCost < 0 {
		return ErrInvalidStandardCost
	}
	return nil
}

// IsHome reports whether this is the protected home supplier.
func (s Supplier) IsHome() bool {
	return s.Kind == SupplierHome
}

func (st Settings) Validate() error {
	for _, p := range []float64{
		st.GasolinePrice, st.GasolineConsumption,
		st.DieselPrice, st.DieselConsumption,
		st.HomeElectricityPrice,
	} {
		if p < 0 {
			return ErrInvalidPrice
		}
	}
	return nil
}

// DefaultSettings returns the values used before the user saves their own.
func DefaultSettings() Settings {
	return Settings{
		GasolinePrice:        1.80,
		GasolineConsumption:  15.0,
		DieselPrice:          1.70,
		DieselConsumption:    18.0,
		HomeElectricityPrice: 0.25,
	}
}

// Snapshot copies the fuel figures into a FuelSnapshot, by value.
func (st Settings) Snapshot() FuelSnapshot {
	gp, dp := st.GasolinePrice, st.DieselPrice
	gc, dc := st.GasolineConsumption, st.DieselConsumption
	return FuelSnapshot{
		GasolinePrice:       &gp,
		DieselPrice:         &dp,
		GasolineConsumption: &gc,
		DieselConsumption:   &dc,
	}
}

// gasolinePriceOr and friends fall back to the current settings when the
// session carries no snapshot for that figure.
func (fs FuelSnapshot) gasolinePriceOr(st Settings) float64 {
	if fs.GasolinePrice != nil {
		return *fs.GasolinePrice
	}
	return st.GasolinePrice
}

func (fs FuelSnapshot) dieselPriceOr(st Settings) float64 {
	if fs.DieselPrice != nil {
		return *fs.DieselPrice
	}
	return st.DieselPrice
}

func (fs FuelSnapshot) gasolineConsumptionOr(st Settings) float64 {
	if fs.GasolineConsumption != nil {
		return *fs.GasolineConsumption
	}
	return st.GasolineConsumption
}

func (fs FuelSnapshot) dieselConsumptionOr(st Settings) float64 {
	if fs.DieselConsumption != nil {
		return *fs.DieselConsumption
	}
	return st.DieselConsumption
}

func (c ChargeSession) Validate() error {
	if c.Date.IsZero() {
		return ErrZeroDate
	}
	if c.TotalKm < 0 {
		return ErrInvalidOdometer
	}
	if c.BatteryStart < 0 || c.BatteryStart > 100 {
		return ErrInvalidBattery
	}
	if c.BatteryEnd != nil && (*c.BatteryEnd < 0 || *c.BatteryEnd > 100) {
		return ErrInvalidBattery
	}
	if c.KWhAdded < 0 {
		return ErrInvalidKWh
	}
	if c.Cost < 0 {
		return ErrInvalidCost
	}
	return nil
}

// Completed reports whether the session reached its final state.
func (c ChargeSession) Completed() bool {
	return c.Status == StatusCompleted
}
