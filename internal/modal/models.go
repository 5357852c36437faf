package modal

import "time"

type ButtonStyle string

const (
	ButtonSolid   ButtonStyle = "solid"
	ButtonOutline ButtonStyle = "outline"
	ButtonGhost   ButtonStyle = "ghost"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

// FontOption is one entry of the font allow-list.
type FontOption struct {
	Label string
	Value string
}

var FontFamilies = []FontOption{
	{Label: "Inter", Value: "Inter, system-ui, sans-serif"},
	{Label: "System UI", Value: "system-ui, sans-serif"},
	{Label: "Georgia", Value: "Georgia, serif"},
	{Label: "Times", Value: "Times, serif"},
	{Label: "Courier New", Value: `"Courier New", monospace`},
	{Label: "Arial", Value: "Arial, sans-serif"},
	{Label: "Helvetica", Value: `"Helvetica Neue", sans-serif`},
}

// IsAllowedFont reports whether v is one of FontFamilies.
func IsAllowedFont(v string) bool {
	for _, f := range FontFamilies {
		if f.Value == v {
			return true
		}
	}
	return false
}

type Theme struct {
	PrimaryColor    string      `json:"primaryColor" validate:"required,color"`
	BackgroundColor string      `json:"backgroundColor" validate:"required,color"`
	TextColor       string      `json:"textColor" validate:"required,color"`
	FontFamily      string      `json:"fontFamily" validate:"required,font"`
	BorderRadius    int         `json:"borderRadius" validate:"min=0,max=50"`
	ButtonStyle     ButtonStyle `json:"buttonStyle" validate:"required,oneof=solid outline ghost"`
}

// ThemePresets are the built-in starting points offered by the builder.
var ThemePresets = map[string]Theme{
	"light": {
		PrimaryColor:    "#3b82f6",
		BackgroundColor: "#ffffff",
		TextColor:       "#1f2937",
		FontFamily:      "Inter, system-ui, sans-serif",
		BorderRadius:    8,
		ButtonStyle:     ButtonSolid,
	},
	"dark": {
		PrimaryColor:    "#6366f1",
		BackgroundColor: "#1f2937",
		TextColor:       "#f9fafb",
		FontFamily:      "Inter, system-ui, sans-serif",
		BorderRadius:    8,
		ButtonStyle:     ButtonSolid,
	},
	"minimal": {
		PrimaryColor:    "#000000",
		BackgroundColor: "#ffffff",
		TextColor:       "#374151",
		FontFamily:      "system-ui, sans-serif",
		BorderRadius:    0,
		ButtonStyle:     ButtonOutline,
	},
	"colorful": {
		PrimaryColor:    "#f59e0b",
		BackgroundColor: "#fef3c7",
		TextColor:       "#92400e",
		FontFamily:      "Inter, system-ui, sans-serif",
		BorderRadius:    12,
		ButtonStyle:     ButtonSolid,
	},
}

// DefaultTheme returns the "light" preset.
func DefaultTheme() Theme {
	return ThemePresets["light"]
}

type CustomField struct {
	ID       string    `json:"id"` // row identity, stable across edits
	Name     string    `json:"name" validate:"required,max=64"`
	Label    string    `json:"label" validate:"required,max=100"`
	Type     FieldType `json:"type" validate:"required,oneof=text email number select checkbox"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty" validate:"omitempty,dive,required"`
}

// Draft holds every merchant-editable field of a modal configuration.
type Draft struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`

	CompanyName string `json:"companyName" validate:"required,max=100"`
	CompanyLogo string `json:"companyLogo,omitempty" validate:"omitempty,weburl"`
	WebsiteURL  string `json:"websiteUrl,omitempty" validate:"omitempty,weburl"`
	SupportURL  string `json:"supportUrl,omitempty" validate:"omitempty,weburl"`
	TermsURL    string `json:"termsUrl,omitempty" validate:"omitempty,weburl"`

	AllowedTokens       []string `json:"allowedTokens" validate:"required,min=1,dive,required"`
	MinimumAmount       *float64 `json:"minimumAmount,omitempty" validate:"omitempty,min=0"`
	MaximumAmount       *float64 `json:"maximumAmount,omitempty" validate:"omitempty,min=0"`
	RequireEmail        bool     `json:"requireEmail"`
	RequireShipping     bool     `json:"requireShipping"`
	ShowAmountBreakdown bool     `json:"showAmountBreakdown"`
	EnableTips          bool     `json:"enableTips"`

	SuccessURL string `json:"successUrl,omitempty" validate:"omitempty,weburl"`
	CancelURL  string `json:"cancelUrl,omitempty" validate:"omitempty,weburl"`
	WebhookURL string `json:"webhookUrl,omitempty" validate:"omitempty,weburl"`

	Theme        Theme         `json:"theme"`
	CustomFields []CustomField `json:"customFields" validate:"dive"`
}

// Clone returns a deep copy so callers never share slices or pointers.
func (d Draft) Clone() Draft {
	out := d
	out.AllowedTokens = append([]string(nil), d.AllowedTokens...)
	if d.MinimumAmount != nil {
		v := *d.MinimumAmount
		out.MinimumAmount = &v
	}
	if d.MaximumAmount != nil {
		v := *d.MaximumAmount
		out.MaximumAmount = &v
	}
	if d.CustomFields != nil {
		out.CustomFields = make([]CustomField, len(d.CustomFields))
		for i, f := range d.CustomFields {
			f.Options = append([]string(nil), f.Options...)
			out.CustomFields[i] = f
		}
	}
	return out
}

// Config is a persisted modal configuration.
type Config struct {
	ID         string `json:"modalId"`
	InstanceID string `json:"instanceId,omitempty"`
	Draft
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone deep-copies the configuration.
func (c Config) Clone() Config {
	out := c
	out.Draft = c.Draft.Clone()
	return out
}

// Public is the projection of a configuration that is safe to hand to a
// third-party page. It carries no webhook URL.
type Public struct {
	ID                  string        `json:"modalId"`
	Name                string        `json:"name"`
	Description         string        `json:"description,omitempty"`
	CompanyName         string        `json:"companyName"`
	CompanyLogo         string        `json:"companyLogo,omitempty"`
	WebsiteURL          string        `json:"websiteUrl,omitempty"`
	SupportURL          string        `json:"supportUrl,omitempty"`
	TermsURL            string        `json:"termsUrl,omitempty"`
	AllowedTokens       []string      `json:"allowedTokens"`
	MinimumAmount       *float64      `json:"minimumAmount,omitempty"`
	MaximumAmount       *float64      `json:"maximumAmount,omitempty"`
	RequireEmail        bool          `json:"requireEmail"`
	RequireShipping     bool          `json:"requireShipping"`
	ShowAmountBreakdown bool          `json:"showAmountBreakdown"`
	EnableTips          bool          `json:"enableTips"`
	SuccessURL          string        `json:"successUrl,omitempty"`
	CancelURL           string        `json:"cancelUrl,omitempty"`
	Theme               Theme         `json:"theme"`
	CustomFields        []CustomField `json:"customFields"`
}

func (c Config) Public() Public {
	d := c.Draft.Clone()
	fields := d.CustomFields
	if fields == nil {
		fields = []CustomField{}
	}
	return Public{
		ID:                  c.ID,
		Name:                d.Name,
		Description:         d.Description,
		CompanyName:         d.CompanyName,
		CompanyLogo:         d.CompanyLogo,
		WebsiteURL:          d.WebsiteURL,
		SupportURL:          d.SupportURL,
		TermsURL:            d.TermsURL,
		AllowedTokens:       d.AllowedTokens,
		MinimumAmount:       d.MinimumAmount,
		MaximumAmount:       d.MaximumAmount,
		RequireEmail:        d.RequireEmail,
		RequireShipping:     d.RequireShipping,
		ShowAmountBreakdown: d.ShowAmountBreakdown,
		EnableTips:          d.EnableTips,
		SuccessURL:          d.SuccessURL,
		CancelURL:           d.CancelURL,
		Theme:               d.Theme,
		CustomFields:        fields,
	}
}
