package core

import (
	"testing"
	"time"
)

// qualifying builds a completed session carrying a derived consumption.
func qualifying(day int, consumption float64) ChargeSession {
	km := 100.0
	c := consumption
	return ChargeSession{
		Date:        time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
		Status:      StatusCompleted,
		KmSinceLast: &km,
		Consumption: &c,
	}
}

func TestAnalysisNilWhenNothingQualifies(t *testing.T) {
	zeroKm := 0.0
	cons := 15.0
	sessions := []ChargeSession{
		{Status: StatusCompleted}, // no derived fields at all
		{Status: StatusCompleted, KmSinceLast: &zeroKm, Consumption: &cons},
	}
	if a := CalculateAdvancedAnalysis(sessions); a != nil {
		t.Fatalf("expected nil, got %+v", a)
	}
}

func TestAnalysisBestWorstAvg(t *testing.T) {
	// Most-recent-first: 12, 14, 16, 18, 20, 22.
	sessions := []ChargeSession{
		qualifying(30, 12), qualifying(25, 14), qualifying(20, 16),
		qualifying(15, 18), qualifying(10, 20), qualifying(5, 22),
	}
	a := CalculateAdvancedAnalysis(sessions)
	if a == nil {
		t.Fatal("expected analysis")
	}
	if a.Best != 12 || a.Worst != 22 || a.Avg != 17 {
		t.Fatalf("best/worst/avg = %v/%v/%v", a.Best, a.Worst, a.Avg)
	}
	// Last 5 qualifying: 12..20, mean 16.
	if a.AvgLast5 != 16 {
		t.Fatalf("avgLast5 = %v, want 16", a.AvgLast5)
	}
	if a.Trend != -1 {
		t.Fatalf("trend = %v, want -1", a.Trend)
	}
	if a.Comment != "netto miglioramento" {
		t.Fatalf("comment = %q", a.Comment)
	}
}

func TestAnalysisEfficiencyConstantConsumption(t *testing.T) {
	sessions := []ChargeSession{qualifying(1, 15), qualifying(2, 15), qualifying(3, 15)}
	a := CalculateAdvancedAnalysis(sessions)
	if a.Efficiency != 100 {
		t.Fatalf("efficiency with best==worst = %v, want exactly 100", a.Efficiency)
	}
	if a.Trend != 0 || a.Comment != "stabile" {
		t.Fatalf("trend/comment = %v/%q", a.Trend, a.Comment)
	}
}

func TestAnalysisFewerThanFiveSessions(t *testing.T) {
	sessions := []ChargeSession{qualifying(2, 14), qualifying(1, 18)}
	a := CalculateAdvancedAnalysis(sessions)
	if a.AvgLast5 != 16 {
		t.Fatalf("avgLast5 over 2 sessions = %v, want 16", a.AvgLast5)
	}
}

func TestAnalysisCommentThresholds(t *testing.T) {
	// Build a 7-session history where avgLast5 diverges from avg.
	mk := func(last5, older float64) *Analysis {
		var ss []ChargeSession
		for i := 0; i < 5; i++ {
			ss = append(ss, qualifying(30-i, last5))
		}
		ss = append(ss, qualifying(3, older), qualifying(1, older))
		return CalculateAdvancedAnalysis(ss)
	}

	if a := mk(14, 18); a.Comment != "netto miglioramento" {
		t.Fatalf("strongly improving: %q (trend %v)", a.Comment, a.Trend)
	}
	if a := mk(15.9, 16.2); a.Comment != "lieve miglioramento" {
		t.Fatalf("slightly improving: %q (trend %v)", a.Comment, a.Trend)
	}
	if a := mk(16, 16); a.Comment != "stabile" {
		t.Fatalf("flat: %q (trend %v)", a.Comment, a.Trend)
	}
	if a := mk(20, 14); a.Comment != "lieve peggioramento" {
		t.Fatalf("regressing: %q (trend %v)", a.Comment, a.Trend)
	}
}
