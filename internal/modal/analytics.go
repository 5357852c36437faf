package modal

import (
	"maps"
	"slices"
	"time"
)

// Analytics is the derived, read-only usage record of one modal.
type Analytics struct {
	ModalID          string  `json:"modalId"`
	TotalViews       int64   `json:"totalViews"`
	TotalConversions int64   `json:"totalConversions"`
	TotalRevenue     float64 `json:"totalRevenue"`
	ConversionRate   float64 `json:"conversionRate"`

	ViewsChange          *float64 `json:"viewsChange,omitempty"`
	ConversionsChange    *float64 `json:"conversionsChange,omitempty"`
	ConversionRateChange *float64 `json:"conversionRateChange,omitempty"`
	RevenueChange        *float64 `json:"revenueChange,omitempty"`

	RevenueByToken  map[string]float64 `json:"revenueByToken"`
	DeviceBreakdown map[string]int64   `json:"deviceBreakdown"`
	TopCountries    []RankedCount      `json:"topCountries"`
	ReferralSources []RankedCount      `json:"referralSources"`

	Daily []DailyPoint `json:"daily"`
}

type RankedCount struct {
	Label string `json:"label"`
	Views int64  `json:"views"`
}

// DailyPoint aggregates one UTC day.
type DailyPoint struct {
	Date        time.Time `json:"date"`
	Views       int64     `json:"views"`
	Conversions int64     `json:"conversions"`
	Revenue     float64   `json:"revenue"`
}

// ConversionRate returns conversions/views*100, or 0 when there are no views.
func ConversionRate(views, conversions int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(conversions) / float64(views) * 100
}

// Empty reports whether nothing has ever been recorded for the modal.
func (a Analytics) Empty() bool {
	return a.TotalViews == 0 && a.TotalConversions == 0 && a.TotalRevenue == 0 && len(a.Daily) == 0
}

// Clone returns a copy that shares no maps, slices or pointers with a.
func (a Analytics) Clone() Analytics {
	out := a
	out.ViewsChange = clonePtr(a.ViewsChange)
	out.ConversionsChange = clonePtr(a.ConversionsChange)
	out.ConversionRateChange = clonePtr(a.ConversionRateChange)
	out.RevenueChange = clonePtr(a.RevenueChange)
	out.RevenueByToken = maps.Clone(a.RevenueByToken)
	out.DeviceBreakdown = maps.Clone(a.DeviceBreakdown)
	out.TopCountries = slices.Clone(a.TopCountries)
	out.ReferralSources = slices.Clone(a.ReferralSources)
	out.Daily = slices.Clone(a.Daily)
	return out
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
