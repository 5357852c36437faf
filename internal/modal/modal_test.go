package modal

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestConversionRate_ZeroViews(t *testing.T) {
	if got := ConversionRate(0, 0); got != 0 {
		t.Errorf("ConversionRate(0, 0) = %v, want 0", got)
	}
	if got := ConversionRate(0, 5); got != 0 {
		t.Errorf("ConversionRate(0, 5) = %v, want 0", got)
	}
}

func TestConversionRate(t *testing.T) {
	if got := ConversionRate(200, 50); got != 25 {
		t.Errorf("ConversionRate(200, 50) = %v, want 25", got)
	}
}

func TestDraftClone_NoSharedState(t *testing.T) {
	min := 10.0
	d := Draft{
		AllowedTokens: []string{"ICP"},
		MinimumAmount: &min,
		CustomFields: []CustomField{
			{ID: "a", Name: "size", Type: FieldSelect, Options: []string{"S", "M"}},
		},
	}

	c := d.Clone()
	c.AllowedTokens[0] = "ckBTC"
	*c.MinimumAmount = 99
	c.CustomFields[0].Name = "colour"
	c.CustomFields[0].Options[0] = "XL"

	if d.AllowedTokens[0] != "ICP" {
		t.Errorf("tokens shared: %v", d.AllowedTokens)
	}
	if *d.MinimumAmount != 10 {
		t.Errorf("minimum amount shared: %v", *d.MinimumAmount)
	}
	if d.CustomFields[0].Name != "size" || d.CustomFields[0].Options[0] != "S" {
		t.Errorf("custom fields shared: %+v", d.CustomFields[0])
	}
}

func TestAnalyticsClone_NoSharedState(t *testing.T) {
	change := 5.0
	a := Analytics{
		ViewsChange:     &change,
		RevenueByToken:  map[string]float64{"ICP": 10},
		DeviceBreakdown: map[string]int64{"mobile": 3},
		TopCountries:    []RankedCount{{Label: "DE", Views: 3}},
		Daily:           []DailyPoint{{Views: 3}},
	}

	c := a.Clone()
	*c.ViewsChange = 50
	c.RevenueByToken["ICP"] = 99
	c.DeviceBreakdown["desktop"] = 1
	c.TopCountries[0].Views = 99
	c.Daily[0].Views = 99

	if *a.ViewsChange != 5 {
		t.Errorf("views change shared: %v", *a.ViewsChange)
	}
	if a.RevenueByToken["ICP"] != 10 || len(a.DeviceBreakdown) != 1 {
		t.Errorf("maps shared: %v %v", a.RevenueByToken, a.DeviceBreakdown)
	}
	if a.TopCountries[0].Views != 3 || a.Daily[0].Views != 3 {
		t.Errorf("slices shared: %+v %+v", a.TopCountries, a.Daily)
	}
}

func TestPublic_OmitsWebhook(t *testing.T) {
	c := Config{
		ID: "m-1",
		Draft: Draft{
			Name:          "Checkout",
			CompanyName:   "Acme",
			AllowedTokens: []string{"ICP"},
			WebhookURL:    "https://hooks.acme.test/secret-path",
			Theme:         DefaultTheme(),
		},
	}

	data, err := json.Marshal(c.Public())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret-path") {
		t.Errorf("public projection leaked webhook url: %s", data)
	}
	if !strings.Contains(string(data), `"customFields":[]`) {
		t.Errorf("expected empty customFields array, got %s", data)
	}
}

func TestDecodeDraft_LegacyNestedTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"camel", `{"name":"n","paymentOptions":{"allowedTokens":["ICP","ckBTC"],"requireEmail":true}}`},
		{"snake", `{"name":"n","payment_options":{"allowed_tokens":["ICP","ckBTC"],"require_email":true}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := DecodeDraft([]byte(tc.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(d.AllowedTokens) != 2 || d.AllowedTokens[1] != "ckBTC" {
				t.Errorf("tokens = %v", d.AllowedTokens)
			}
			if !d.RequireEmail {
				t.Error("expected requireEmail folded from payment options")
			}
		})
	}
}

func TestDecodeDraft_FlatWins(t *testing.T) {
	d, err := DecodeDraft([]byte(`{"allowedTokens":["ckETH"],"paymentOptions":{"allowedTokens":["ICP"]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.AllowedTokens) != 1 || d.AllowedTokens[0] != "ckETH" {
		t.Errorf("tokens = %v, want [ckETH]", d.AllowedTokens)
	}
}

func TestDecodeConfig_KeepsIdentity(t *testing.T) {
	c, err := DecodeConfig([]byte(`{"modalId":"m-9","isActive":true,"name":"x","payment_options":{"allowed_tokens":["ICP"]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != "m-9" || !c.IsActive || c.Name != "x" {
		t.Errorf("identity lost: %+v", c)
	}
	if len(c.AllowedTokens) != 1 {
		t.Errorf("tokens = %v", c.AllowedTokens)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: FieldErrors{"name": "is required", "companyName": "is required"}}
	want := "validation failed: companyName: is required; name: is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
