package core

import "time"

// forecastCadence is the assumed number of charging sessions per month.
const forecastCadence = 8

// Forecast projects next-month cost, energy and distance from the sessions
// of the last 30 days.
type Forecast struct {
	AvgCost      float64 // per session, last 30 days
	AvgKWh       float64
	AvgKm        float64
	AvgCostLast5 float64
	Trend        float64 // positive = rising cost
	Cost         float64 // projected month
	KWh          float64
	Km           float64
	Comment      string
}

// CalculateForecast expects sessions ordered most-recent-first. It returns
// nil when no session falls within 30 days of now, even if older sessions
// exist.
func CalculateForecast(sessions []ChargeSession, now time.Time) *Forecast {
	cutoff := now.AddDate(0, 0, -30)

	var recent []ChargeSession
	for _, s := range sessions {
		if !s.Date.Before(cutoff) {
			recent = append(recent, s)
		}
	}
	if len(recent) == 0 {
		return nil
	}

	var sumCost, sumKWh, sumKm float64
	for _, s := range recent {
		sumCost += s.Cost
		sumKWh += s.KWhAdded
		if s.KmSinceLast != nil {
			sumKm += *s.KmSinceLast
		}
	}
	n := float64(len(recent))
	avgCost := sumCost / n
	avgKWh := sumKWh / n
	avgKm := sumKm / n

	n5 := len(sessions)
	if n5 > 5 {
		n5 = 5
	}
	sumLast5 := 0.0
	for _, s := range sessions[:n5] {
		sumLast5 += s.Cost
	}
	avgCostLast5 := sumLast5 / float64(n5)

	trend := avgCostLast5 - avgCost

	var comment string
	switch {
	case trend < -0.5:
		comment = "costi in diminuzione"
	case trend < 0.2:
		comment = "stabile"
	default:
		comment = "costi in aumento"
	}

	return &Forecast{
		AvgCost:      Round2(avgCost),
		AvgKWh:       Round2(avgKWh),
		AvgKm:        Round0(avgKm),
		AvgCostLast5: Round2(avgCostLast5),
		Trend:        Round2(trend),
		Cost:         Round2(avgCost*forecastCadence + trend*2),
		KWh:          Round2(avgKWh * forecastCadence),
		Km:           Round0(avgKm * forecastCadence),
		Comment:      comment,
	}
}
