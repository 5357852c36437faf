package stats

import (
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
)

// Percent returns part/total*100, or 0 when total is not positive.
func Percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

// Change returns the signed percentage change from prev to cur. It is nil
// when prev is zero, since no meaningful ratio exists.
func Change(cur, prev float64) *float64 {
	if prev == 0 {
		return nil
	}
	v := (cur - prev) / prev * 100
	return &v
}

type Totals struct {
	Views       int64
	Conversions int64
	Revenue     float64
}

func (t Totals) Rate() float64 {
	return modal.ConversionRate(t.Views, t.Conversions)
}

// Sum adds up the daily points whose date falls in [from, to).
func Sum(points []modal.DailyPoint, from, to time.Time) Totals {
	var t Totals
	for _, p := range points {
		if p.Date.Before(from) || !p.Date.Before(to) {
			continue
		}
		t.Views += p.Views
		t.Conversions += p.Conversions
		t.Revenue += p.Revenue
	}
	return t
}

// Comparison is one period measured against the period right before it.
type Comparison struct {
	Current  Totals
	Previous Totals

	ViewsChange       *float64
	ConversionsChange *float64
	RateChange        *float64
	RevenueChange     *float64

	// Confidence that the current conversion rate beats the previous one.
	Confidence float64
}

// Compare measures the span ending at end against the span before it.
func Compare(points []modal.DailyPoint, end time.Time, span time.Duration) Comparison {
	start := end.Add(-span)
	cur := Sum(points, start, end)
	prev := Sum(points, start.Add(-span), start)

	return Comparison{
		Current:           cur,
		Previous:          prev,
		ViewsChange:       Change(float64(cur.Views), float64(prev.Views)),
		ConversionsChange: Change(float64(cur.Conversions), float64(prev.Conversions)),
		RateChange:        Change(cur.Rate(), prev.Rate()),
		RevenueChange:     Change(cur.Revenue, prev.Revenue),
		Confidence:        SignificanceTest(cur.Conversions, cur.Views, prev.Conversions, prev.Views),
	}
}
