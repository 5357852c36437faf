package snippets

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/validate"
)

type Viewport string

const (
	ViewportDesktop Viewport = "desktop"
	ViewportTablet  Viewport = "tablet"
	ViewportMobile  Viewport = "mobile"
)

var Viewports = []Viewport{ViewportDesktop, ViewportTablet, ViewportMobile}

// ParseViewport accepts a viewport name. Empty means desktop.
func ParseViewport(s string) (Viewport, error) {
	if s == "" {
		return ViewportDesktop, nil
	}
	for _, v := range Viewports {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown viewport %q (want desktop, tablet or mobile)", s)
}

// MaxWidth is the modal's maximum width in pixels on this viewport.
func (v Viewport) MaxWidth() int {
	switch v {
	case ViewportTablet:
		return 448
	case ViewportMobile:
		return 384
	default:
		return 512
	}
}

type previewField struct {
	Name     string
	Label    string
	Type     string
	Required bool
	Options  []string
}

type previewData struct {
	Viewport       string
	Config         modal.Public
	ContainerStyle template.CSS
	ButtonCSS      template.CSS
	AmountHint     string
	Fields         []previewField
}

var previewTemplate = template.Must(template.New("preview").Parse(`<div class="ckpay-preview" data-viewport="{{.Viewport}}" style="{{.ContainerStyle}}">
  <header class="ckpay-header">
    {{- if .Config.CompanyLogo}}
    <img class="ckpay-logo" src="{{.Config.CompanyLogo}}" alt="{{.Config.CompanyName}}" height="32">
    {{- end}}
    <span class="ckpay-company">{{.Config.CompanyName}}</span>
  </header>
  <h2 class="ckpay-title">{{.Config.Name}}</h2>
  {{- if .Config.Description}}
  <p class="ckpay-description">{{.Config.Description}}</p>
  {{- end}}
  <form class="ckpay-form" onsubmit="return false">
    <label>Amount<input type="number" name="amount" min="0" step="any"></label>
    {{- if .AmountHint}}
    <small class="ckpay-limits">{{.AmountHint}}</small>
    {{- end}}
    <label>Token<select name="token">
      {{- range .Config.AllowedTokens}}
      <option value="{{.}}">{{.}}</option>
      {{- end}}
    </select></label>
    {{- if .Config.EnableTips}}
    <label>Tip<input type="number" name="tip" min="0" step="any"></label>
    {{- end}}
    {{- if .Config.RequireEmail}}
    <label>Email<input type="email" name="email" required></label>
    {{- end}}
    {{- if .Config.RequireShipping}}
    <label>Shipping address<textarea name="shipping" required></textarea></label>
    {{- end}}
    {{- range .Fields}}
    {{- if eq .Type "select"}}
    <label>{{.Label}}<select name="{{.Name}}"{{if .Required}} required{{end}}>
      {{- range .Options}}
      <option value="{{.}}">{{.}}</option>
      {{- end}}
    </select></label>
    {{- else if eq .Type "checkbox"}}
    <label><input type="checkbox" name="{{.Name}}"{{if .Required}} required{{end}}> {{.Label}}</label>
    {{- else}}
    <label>{{.Label}}<input type="{{.Type}}" name="{{.Name}}"{{if .Required}} required{{end}}></label>
    {{- end}}
    {{- end}}
    {{- if .Config.ShowAmountBreakdown}}
    <dl class="ckpay-breakdown"><dt>Subtotal</dt><dd>0</dd>{{if .Config.EnableTips}}<dt>Tip</dt><dd>0</dd>{{end}}<dt>Total</dt><dd>0</dd></dl>
    {{- end}}
    <button type="submit" class="ckpay-pay ckpay-pay-{{.Config.Theme.ButtonStyle}}" style="{{.ButtonCSS}}">Pay</button>
  </form>
  {{- if or .Config.SupportURL .Config.TermsURL}}
  <footer class="ckpay-footer">
    {{- if .Config.SupportURL}}
    <a href="{{.Config.SupportURL}}" target="_blank" rel="noopener">Support</a>
    {{- end}}
    {{- if .Config.TermsURL}}
    <a href="{{.Config.TermsURL}}" target="_blank" rel="noopener">Terms</a>
    {{- end}}
  </footer>
  {{- end}}
</div>
`))

// RenderPreview renders the modal as the SDK would show it on the given
// viewport. The output depends only on its inputs and omits every value that
// is not public.
func RenderPreview(cfg modal.Config, viewport Viewport) (string, error) {
	pub := cfg.Public()
	theme := safeTheme(pub.Theme)
	pub.Theme = theme

	data := previewData{
		Viewport:   string(viewport),
		Config:     pub,
		AmountHint: amountHint(pub.MinimumAmount, pub.MaximumAmount),
	}

	// Styles are assembled from sanitised values only, so they can be
	// trusted as CSS even while the draft is invalid.
	data.ContainerStyle = template.CSS(fmt.Sprintf(
		"max-width:%dpx;margin:0 auto;background:%s;color:%s;font-family:%s;border-radius:%dpx;padding:24px",
		viewport.MaxWidth(), theme.BackgroundColor, theme.TextColor, theme.FontFamily, theme.BorderRadius,
	))

	bg, fg, line := theme.PrimaryColor, "#ffffff", theme.PrimaryColor
	switch theme.ButtonStyle {
	case modal.ButtonOutline:
		bg, fg = "transparent", theme.PrimaryColor
	case modal.ButtonGhost:
		bg, fg, line = "transparent", theme.PrimaryColor, "transparent"
	}
	data.ButtonCSS = template.CSS(fmt.Sprintf(
		"background:%s;color:%s;border:1px solid %s;border-radius:%dpx",
		bg, fg, line, theme.BorderRadius,
	))

	for _, f := range pub.CustomFields {
		data.Fields = append(data.Fields, previewField{
			Name:     f.Name,
			Label:    f.Label,
			Type:     string(f.Type),
			Required: f.Required,
			Options:  f.Options,
		})
	}

	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return buf.String(), nil
}

// safeTheme replaces any out-of-range theme value with the default's.
func safeTheme(t modal.Theme) modal.Theme {
	def := modal.DefaultTheme()
	if !validate.IsColor(t.PrimaryColor) {
		t.PrimaryColor = def.PrimaryColor
	}
	if !validate.IsColor(t.BackgroundColor) {
		t.BackgroundColor = def.BackgroundColor
	}
	if !validate.IsColor(t.TextColor) {
		t.TextColor = def.TextColor
	}
	if !modal.IsAllowedFont(t.FontFamily) {
		t.FontFamily = def.FontFamily
	}
	if t.BorderRadius < 0 {
		t.BorderRadius = 0
	}
	if t.BorderRadius > 50 {
		t.BorderRadius = 50
	}
	switch t.ButtonStyle {
	case modal.ButtonSolid, modal.ButtonOutline, modal.ButtonGhost:
	default:
		t.ButtonStyle = modal.ButtonSolid
	}
	return t
}

func amountHint(min, max *float64) string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switch {
	case min != nil && max != nil:
		return "Between " + format(*min) + " and " + format(*max)
	case min != nil:
		return "Minimum " + format(*min)
	case max != nil:
		return "Maximum " + format(*max)
	}
	return ""
}
