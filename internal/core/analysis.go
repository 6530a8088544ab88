package core

// Analysis describes the consumption trend over the sessions that carry a
// valid derived consumption (km_since_last > 0).
type Analysis struct {
	Best       float64 // lowest kWh/100km
	Worst      float64 // highest kWh/100km
	Avg        float64
	AvgLast5   float64
	Trend      float64 // negative = recent consumption below historical average
	Efficiency float64 // 0-100
	Comment    string
}

// CalculateAdvancedAnalysis expects sessions ordered most-recent-first and
// returns nil when no session qualifies.
func CalculateAdvancedAnalysis(sessions []ChargeSession) *Analysis {
	var cons []float64
	for _, s := range sessions {
		if s.Consumption != nil && s.KmSinceLast != nil && *s.KmSinceLast > 0 {
			cons = append(cons, *s.Consumption)
		}
	}
	if len(cons) == 0 {
		return nil
	}

	best, worst, sum := cons[0], cons[0], 0.0
	for _, c := range cons {
		if c < best {
			best = c
		}
		if c > worst {
			worst = c
		}
		sum += c
	}
	avg := sum / float64(len(cons))

	n := len(cons)
	if n > 5 {
		n = 5
	}
	sumLast5 := 0.0
	for _, c := range cons[:n] {
		sumLast5 += c
	}
	avgLast5 := sumLast5 / float64(n)

	trend := avgLast5 - avg

	// worst == best means perfectly consistent consumption; the ratio below
	// would divide by zero.
	efficiency := 100.0
	if worst > best {
		efficiency = 100 - (avgLast5-best)/(worst-best)*100
		if efficiency < 0 {
			efficiency = 0
		}
		if efficiency > 100 {
			efficiency = 100
		}
	}

	var comment string
	switch {
	case trend < -0.5:
		comment = "netto miglioramento"
	case trend < 0:
		comment = "lieve miglioramento"
	case trend < 0.5:
		comment = "stabile"
	default:
		comment = "lieve peggioramento"
	}

	return &Analysis{
		Best:       Round2(best),
		Worst:      Round2(worst),
		Avg:        Round2(avg),
		AvgLast5:   Round2(avgLast5),
		Trend:      Round2(trend),
		Efficiency: Round0(efficiency),
		Comment:    comment,
	}
}
