// Package dashboard holds the read-only view models of the merchant
// dashboard. They read through the controller and never touch its
// collection directly.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/stats"
	"github.com/dustin/go-humanize"
)

// NoDataMessage is shown instead of charts when a modal has no analytics.
const NoDataMessage = "No analytics recorded yet"

type Range string

const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
	Range1y  Range = "1y"
)

var Ranges = []Range{Range7d, Range30d, Range90d, Range1y}

// ParseRange accepts 7d, 30d, 90d or 1y. Empty means 30d.
func ParseRange(s string) (Range, error) {
	if s == "" {
		return Range30d, nil
	}
	for _, r := range Ranges {
		if Range(s) == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown range %q (want 7d, 30d, 90d or 1y)", s)
}

func (r Range) Days() int {
	switch r {
	case Range7d:
		return 7
	case Range90d:
		return 90
	case Range1y:
		return 365
	default:
		return 30
	}
}

func (r Range) Label() string {
	if r == Range1y {
		return "last 12 months"
	}
	return fmt.Sprintf("last %d days", r.Days())
}

// AnalyticsSource is the read side of the controller.
type AnalyticsSource interface {
	FetchAnalytics(ctx context.Context, modalID string) (modal.Analytics, error)
	RefreshAnalytics(ctx context.Context, modalID string) (modal.Analytics, error)
}

// Share is one row of a breakdown, with its percentage of the total.
type Share struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// Summary is everything the analytics view displays for one range.
type Summary struct {
	ModalID string `json:"modalId"`
	Range   Range  `json:"range"`
	Empty   bool   `json:"empty"`

	Views          int64   `json:"views"`
	Conversions    int64   `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversionRate"`
	// 95% Wilson interval of the conversion rate, in percent.
	RateLow  float64 `json:"rateLow"`
	RateHigh float64 `json:"rateHigh"`

	ViewsChange          *float64 `json:"viewsChange,omitempty"`
	ConversionsChange    *float64 `json:"conversionsChange,omitempty"`
	ConversionRateChange *float64 `json:"conversionRateChange,omitempty"`
	RevenueChange        *float64 `json:"revenueChange,omitempty"`
	// Confidence, in percent, that this range's conversion rate beats the
	// previous range's. Nil unless both ranges have views.
	RateConfidence *float64 `json:"rateConfidence,omitempty"`

	RevenueByToken  []Share `json:"revenueByToken"`
	Devices         []Share `json:"devices"`
	TopCountries    []Share `json:"topCountries"`
	ReferralSources []Share `json:"referralSources"`

	Daily []modal.DailyPoint `json:"daily"`
}

type AnalyticsView struct {
	src     AnalyticsSource
	modalID string
	now     func() time.Time

	mu     sync.Mutex
	rng    Range
	data   modal.Analytics
	loaded bool
	err    error
}

func NewAnalyticsView(src AnalyticsSource, modalID string) *AnalyticsView {
	return &AnalyticsView{src: src, modalID: modalID, now: time.Now, rng: Range30d}
}

// Load fetches analytics, possibly from cache.
func (v *AnalyticsView) Load(ctx context.Context) error {
	return v.apply(v.src.FetchAnalytics(ctx, v.modalID))
}

// Refresh re-fetches analytics from the backend.
func (v *AnalyticsView) Refresh(ctx context.Context) error {
	return v.apply(v.src.RefreshAnalytics(ctx, v.modalID))
}

func (v *AnalyticsView) apply(a modal.Analytics, err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.err = err
	if err != nil {
		return err
	}
	v.data = a
	v.loaded = true
	return nil
}

// Err is the error of the last load, if it failed. Earlier data stays shown.
func (v *AnalyticsView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// SetRange changes the displayed range. It does not refetch.
func (v *AnalyticsView) SetRange(r Range) {
	v.mu.Lock()
	v.rng = r
	v.mu.Unlock()
}

func (v *AnalyticsView) Range() Range {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rng
}

// Summary recomputes the displayed aggregates for the selected range.
func (v *AnalyticsView) Summary() Summary {
	v.mu.Lock()
	a, rng, now := v.data, v.rng, v.now()
	v.mu.Unlock()

	return Summarize(v.modalID, a, rng, now)
}

// Summarize derives the range view of a. When a carries a daily series the
// totals and deltas come from it; otherwise the lifetime totals are used.
func Summarize(modalID string, a modal.Analytics, rng Range, now time.Time) Summary {
	s := Summary{
		ModalID:         modalID,
		Range:           rng,
		Empty:           a.Empty(),
		RevenueByToken:  revenueShares(a.RevenueByToken, a.TotalRevenue),
		Devices:         countShares(a.DeviceBreakdown, a.TotalViews),
		TopCountries:    rankedShares(a.TopCountries, a.TotalViews),
		ReferralSources: rankedShares(a.ReferralSources, a.TotalViews),
		Daily:           []modal.DailyPoint{},
	}

	if len(a.Daily) == 0 {
		s.Views, s.Conversions, s.Revenue = a.TotalViews, a.TotalConversions, a.TotalRevenue
		s.ViewsChange, s.ConversionsChange = a.ViewsChange, a.ConversionsChange
		s.ConversionRateChange, s.RevenueChange = a.ConversionRateChange, a.RevenueChange
	} else {
		y, m, d := now.UTC().Date()
		end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		span := time.Duration(rng.Days()) * 24 * time.Hour
		cmp := stats.Compare(a.Daily, end, span)

		s.Views, s.Conversions, s.Revenue = cmp.Current.Views, cmp.Current.Conversions, cmp.Current.Revenue
		s.ViewsChange, s.ConversionsChange = cmp.ViewsChange, cmp.ConversionsChange
		s.ConversionRateChange, s.RevenueChange = cmp.RateChange, cmp.RevenueChange
		if cmp.Current.Views > 0 && cmp.Previous.Views > 0 {
			conf := cmp.Confidence * 100
			s.RateConfidence = &conf
		}

		start := end.Add(-span)
		for _, p := range a.Daily {
			if !p.Date.Before(start) && p.Date.Before(end) {
				s.Daily = append(s.Daily, p)
			}
		}
	}

	s.ConversionRate = modal.ConversionRate(s.Views, s.Conversions)
	lo, hi := stats.WilsonInterval(s.Conversions, s.Views, 0.95)
	s.RateLow, s.RateHigh = lo*100, hi*100
	return s
}

// Export returns the displayed summary as indented JSON.
func (v *AnalyticsView) Export() ([]byte, error) {
	return json.MarshalIndent(v.Summary(), "", "  ")
}

// Render draws the summary as plain text.
func (v *AnalyticsView) Render() string {
	return RenderSummary(v.Summary())
}

func RenderSummary(s Summary) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Analytics for %s (%s)\n\n", s.ModalID, s.Range.Label())

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Views\t%s\t%s\n", humanize.Comma(s.Views), FormatChange(s.ViewsChange))
	fmt.Fprintf(w, "Conversions\t%s\t%s\n", humanize.Comma(s.Conversions), FormatChange(s.ConversionsChange))
	fmt.Fprintf(w, "Conversion rate\t%s\t%s\n", FormatPercent(s.ConversionRate), FormatChange(s.ConversionRateChange))
	fmt.Fprintf(w, "Revenue\t%s\t%s\n", FormatAmount(s.Revenue), FormatChange(s.RevenueChange))
	w.Flush()

	if s.Empty {
		fmt.Fprintf(&buf, "\n%s\n", NoDataMessage)
		return buf.String()
	}

	if s.Views > 0 {
		fmt.Fprintf(&buf, "\n95%% interval: %s to %s\n", FormatPercent(s.RateLow), FormatPercent(s.RateHigh))
	}
	if s.RateConfidence != nil {
		fmt.Fprintf(&buf, "Confidence the rate beats the previous period: %s\n", FormatPercent(*s.RateConfidence))
	}

	section := func(title string, rows []Share, amounts bool) {
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(&buf, "\n%s\n", title)
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		for _, r := range rows {
			value := humanize.Comma(int64(r.Value))
			if amounts {
				value = FormatAmount(r.Value)
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", r.Label, value, FormatPercent(r.Percent))
		}
		w.Flush()
	}
	section("Revenue by token", s.RevenueByToken, true)
	section("Devices", s.Devices, false)
	section("Top countries", s.TopCountries, false)
	section("Referral sources", s.ReferralSources, false)

	return buf.String()
}

// FormatPercent always prints one decimal, so an empty modal shows "0.0%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatChange renders a signed delta, or "n/a" when there is no baseline.
func FormatChange(c *float64) string {
	if c == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *c)
}

func FormatAmount(v float64) string {
	return humanize.CommafWithDigits(v, 4)
}

func revenueShares(m map[string]float64, total float64) []Share {
	out := make([]Share, 0, len(m))
	for label, v := range m {
		out = append(out, Share{Label: label, Value: v, Percent: stats.Percent(v, total)})
	}
	sortShares(out)
	return out
}

func countShares(m map[string]int64, totalViews int64) []Share {
	out := make([]Share, 0, len(m))
	for label, v := range m {
		out = append(out, Share{Label: label, Value: float64(v), Percent: stats.Percent(float64(v), float64(totalViews))})
	}
	sortShares(out)
	return out
}

func rankedShares(rows []modal.RankedCount, totalViews int64) []Share {
	out := make([]Share, 0, len(rows))
	for _, r := range rows {
		out = append(out, Share{Label: r.Label, Value: float64(r.Views), Percent: stats.Percent(float64(r.Views), float64(totalViews))})
	}
	return out
}

func sortShares(s []Share) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Value != s[j].Value {
			return s[i].Value > s[j].Value
		}
		return strings.Compare(s[i].Label, s[j].Label) < 0
	})
}
