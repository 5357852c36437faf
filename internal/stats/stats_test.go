package stats

import (
	"math"
	"testing"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
)

func TestWilsonInterval_50PercentConversion(t *testing.T) {
	lower, upper := WilsonInterval(50, 100, 0.95)

	if lower < 0.38 || lower > 0.42 {
		t.Errorf("lower bound %f not in expected range [0.38, 0.42]", lower)
	}
	if upper < 0.58 || upper > 0.62 {
		t.Errorf("upper bound %f not in expected range [0.58, 0.62]", upper)
	}
}

func TestWilsonInterval_ZeroTrials(t *testing.T) {
	lower, upper := WilsonInterval(0, 0, 0.95)
	if lower != 0 || upper != 0 {
		t.Errorf("expected [0, 0], got [%f, %f]", lower, upper)
	}
}

func TestWilsonInterval_Clamped(t *testing.T) {
	lower, upper := WilsonInterval(12, 10, 0.95)
	if lower < 0 || upper > 1 {
		t.Errorf("interval escaped [0, 1]: [%f, %f]", lower, upper)
	}
}

func TestSignificanceTest(t *testing.T) {
	if got := SignificanceTest(0, 0, 10, 100); got != 0.5 {
		t.Errorf("no data on one side: got %f, want 0.5", got)
	}

	got := SignificanceTest(30, 100, 10, 100)
	if got < 0.99 {
		t.Errorf("30%% vs 10%% should be highly significant, got %f", got)
	}

	got = SignificanceTest(10, 100, 30, 100)
	if got > 0.01 {
		t.Errorf("10%% vs 30%% should be near zero, got %f", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(5, 0); got != 0 {
		t.Errorf("Percent(5, 0) = %f, want 0", got)
	}
	if got := Percent(1, 4); got != 25 {
		t.Errorf("Percent(1, 4) = %f, want 25", got)
	}
}

func TestChange(t *testing.T) {
	if Change(10, 0) != nil {
		t.Error("expected nil change from zero")
	}
	c := Change(150, 100)
	if c == nil || math.Abs(*c-50) > 1e-9 {
		t.Errorf("Change(150, 100) = %v, want 50", c)
	}
	c = Change(50, 100)
	if c == nil || math.Abs(*c+50) > 1e-9 {
		t.Errorf("Change(50, 100) = %v, want -50", c)
	}
}

func TestCompare(t *testing.T) {
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	points := []modal.DailyPoint{
		{Date: end.Add(-10 * day), Views: 100, Conversions: 10, Revenue: 50},
		{Date: end.Add(-1 * day), Views: 100, Conversions: 10, Revenue: 50},
		{Date: end.Add(-20 * day), Views: 100, Conversions: 5, Revenue: 25},
		{Date: end.Add(-40 * day), Views: 1000, Conversions: 1, Revenue: 1},
	}

	c := Compare(points, end, 14*day)

	if c.Current.Views != 200 || c.Current.Conversions != 20 {
		t.Errorf("current = %+v", c.Current)
	}
	if c.Previous.Views != 100 || c.Previous.Conversions != 5 {
		t.Errorf("previous = %+v", c.Previous)
	}
	if c.ViewsChange == nil || *c.ViewsChange != 100 {
		t.Errorf("views change = %v, want 100", c.ViewsChange)
	}
	if c.RevenueChange == nil || *c.RevenueChange != 300 {
		t.Errorf("revenue change = %v, want 300", c.RevenueChange)
	}
}
