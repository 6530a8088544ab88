package core

// Delta holds the per-session figures derived from the previous completed
// session of the same vehicle. Both fields are nil when there is no previous
// session or the odometer did not strictly increase.
type Delta struct {
	KmSinceLast *float64
	Consumption *float64 // kWh/100km
}

// ComputeDelta derives distance and consumption from two odometer readings.
// The odometer must strictly increase: a missing previous reading, an equal
// one or a regression yields an empty Delta, never a zero or negative
// distance.
func ComputeDelta(currentKm float64, previousKm *float64, kwhAdded float64) Delta {
	if previousKm == nil || currentKm <= *previousKm {
		return Delta{}
	}
	km := currentKm - *previousKm
	cons := Round2(kwhAdded / km * 100)
	return Delta{KmSinceLast: &km, Consumption: &cons}
}
