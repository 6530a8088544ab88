package core

// Reference figures for the ecological estimate: an average combustion car
// emits ~100 g CO2 per km more than the (assumed zero-emission) EV, and one
// tree absorbs ~20 kg CO2 per year.
const (
	co2SavedPerKm  = 0.10 // kg
	co2PerTreeYear = 20.0 // kg
)

// Stats aggregates a list of completed sessions into the ledger's headline
// figures. Consumption here is recomputed globally from totals and is
// independent of each session's stored per-session consumption.
type Stats struct {
	Sessions        int
	TotalKWh        float64
	TotalCost       float64
	AvgCostPerKWh   float64
	KmDriven        float64
	Consumption     float64 // kWh/100km over the whole range
	GasolineCost    float64
	DieselCost      float64
	GasolineSavings float64 // may be negative
	DieselSavings   float64 // may be negative
	CO2SavedKg      float64
	TreesSaved      float64
}

// CalculateStats returns nil when sessions is empty. Fuel cost estimates use
// each session's stored snapshot figures when present, falling back to the
// current settings.
func CalculateStats(sessions []ChargeSession, settings Settings) *Stats {
	if len(sessions) == 0 {
		return nil
	}

	var totalKWh, totalCost float64
	minKm, maxKm := sessions[0].TotalKm, sessions[0].TotalKm
	for _, s := range sessions {
		totalKWh += s.KWhAdded
		totalCost += s.Cost
		if s.TotalKm < minKm {
			minKm = s.TotalKm
		}
		if s.TotalKm > maxKm {
			maxKm = s.TotalKm
		}
	}

	avgCostPerKWh := 0.0
	if totalKWh > 0 {
		avgCostPerKWh = totalCost / totalKWh
	}

	kmDriven := maxKm - minKm
	if kmDriven < 0 {
		kmDriven = 0
	}

	consumption := 0.0
	if kmDriven > 0 {
		consumption = totalKWh / kmDriven * 100
	}

	var gasolineCost, dieselCost float64
	for _, s := range sessions {
		estimatedKm := 0.0
		if consumption > 0 {
			estimatedKm = s.KWhAdded / (consumption / 100)
		}
		if gc := s.Snapshot.gasolineConsumptionOr(settings); gc > 0 {
			gasolineCost += estimatedKm / gc * s.Snapshot.gasolinePriceOr(settings)
		}
		if dc := s.Snapshot.dieselConsumptionOr(settings); dc > 0 {
			dieselCost += estimatedKm / dc * s.Snapshot.dieselPriceOr(settings)
		}
	}

	co2Saved := kmDriven * co2SavedPerKm

	return &Stats{
		Sessions:        len(sessions),
		TotalKWh:        Round2(totalKWh),
		TotalCost:       Round2(totalCost),
		AvgCostPerKWh:   Round3(avgCostPerKWh),
		KmDriven:        Round0(kmDriven),
		Consumption:     Round2(consumption),
		GasolineCost:    Round2(gasolineCost),
		DieselCost:      Round2(dieselCost),
		GasolineSavings: Round2(gasolineCost - totalCost),
		DieselSavings:   Round2(dieselCost - totalCost),
		CO2SavedKg:      Round1(co2Saved),
		TreesSaved:      Round1(co2Saved / co2PerTreeYear),
	}
}
