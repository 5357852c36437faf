package snippets

import (
	"strings"
	"testing"

	"github.com/ckpayment/ckmodal/internal/modal"
)

func testConfig() modal.Config {
	min, max := 1.0, 250.5
	return modal.Config{
		ID: "9f0c2d1e-modal",
		Draft: modal.Draft{
			Name:          "Pro plan",
			Description:   "Monthly subscription",
			CompanyName:   "Acme & Co",
			SupportURL:    "https://acme.test/help",
			AllowedTokens: []string{"ICP", "ckBTC"},
			MinimumAmount: &min,
			MaximumAmount: &max,
			RequireEmail:  true,
			WebhookURL:    "https://hooks.acme.test/very-secret",
			SuccessURL:    "https://acme.test/thanks",
			Theme:         modal.ThemePresets["dark"],
			CustomFields: []modal.CustomField{
				{ID: "r1", Name: "size", Label: "Size", Type: modal.FieldSelect, Options: []string{"S", "M"}},
				{ID: "r2", Name: "agree", Label: "I agree", Type: modal.FieldCheckbox, Required: true},
			},
		},
	}
}

func TestEmbedCode_ContainsInitAndNoSecrets(t *testing.T) {
	code := EmbedCode(testConfig(), EmbedOptions{SDKURL: "https://cdn.test/ckpay.js"})

	for _, want := range []string{
		`<script src="https://cdn.test/ckpay.js"></script>`,
		`ckPay.init({ modalId: "9f0c2d1e-modal" });`,
		`<button type="button" data-ckpay-modal="9f0c2d1e-modal"`,
		DefaultButtonText,
	} {
		if !strings.Contains(code, want) {
			t.Errorf("embed code missing %q:\n%s", want, code)
		}
	}

	for _, leak := range []string{"very-secret", "hooks.acme.test", "thanks", "Pro plan"} {
		if strings.Contains(code, leak) {
			t.Errorf("embed code leaked %q", leak)
		}
	}
}

func TestEmbedCode_Deterministic(t *testing.T) {
	a := EmbedCode(testConfig(), EmbedOptions{})
	b := EmbedCode(testConfig(), EmbedOptions{})
	if a != b {
		t.Error("embed code should be identical for identical input")
	}
	if !strings.Contains(a, DefaultSDKURL) {
		t.Errorf("expected default SDK url, got:\n%s", a)
	}
}

func TestEmbedCode_EscapesModalID(t *testing.T) {
	cfg := testConfig()
	cfg.ID = `x"});alert(1);//`
	code := EmbedCode(cfg, EmbedOptions{})
	if !strings.Contains(code, `modalId: "x\"});alert(1);//" });`) {
		t.Errorf("modal id not escaped inside the script:\n%s", code)
	}
	if !strings.Contains(code, `data-ckpay-modal="x&#34;});alert(1);//"`) {
		t.Errorf("modal id not escaped inside the attribute:\n%s", code)
	}
}

func TestGenerate_Frameworks(t *testing.T) {
	tests := []struct {
		framework Framework
		files     []string
	}{
		{FrameworkHTML, []string{"ckpay-modal.html"}},
		{FrameworkReact, []string{"CkPayButton.tsx", "usage.tsx"}},
		{FrameworkVue, []string{"CkPayButton.vue"}},
		{"svelte", []string{"ckpay-modal.html"}},
	}

	for _, tc := range tests {
		t.Run(string(tc.framework), func(t *testing.T) {
			files, err := Generate(tc.framework, testConfig(), EmbedOptions{})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if len(files) != len(tc.files) {
				t.Fatalf("got %d files, want %d", len(files), len(tc.files))
			}
			var all strings.Builder
			for i, f := range files {
				if f.Filename != tc.files[i] {
					t.Errorf("file %d = %s, want %s", i, f.Filename, tc.files[i])
				}
				all.WriteString(f.Content)
			}
			if !strings.Contains(files[0].Content, "9f0c2d1e-modal") {
				t.Errorf("first file does not reference the modal id:\n%s", files[0].Content)
			}
			if strings.Contains(all.String(), "very-secret") {
				t.Error("snippet leaked webhook url")
			}
		})
	}
}

func TestParseFramework(t *testing.T) {
	if f, err := ParseFramework(""); err != nil || f != FrameworkHTML {
		t.Errorf("empty: got %s, %v", f, err)
	}
	if f, err := ParseFramework("React"); err != nil || f != FrameworkReact {
		t.Errorf("React: got %s, %v", f, err)
	}
	if _, err := ParseFramework("angular"); err == nil {
		t.Error("expected error for unsupported framework")
	}
}

func TestRenderPreview_Viewports(t *testing.T) {
	for _, vp := range Viewports {
		t.Run(string(vp), func(t *testing.T) {
			html, err := RenderPreview(testConfig(), vp)
			if err != nil {
				t.Fatalf("RenderPreview: %v", err)
			}
			if !strings.Contains(html, `data-viewport="`+string(vp)+`"`) {
				t.Errorf("missing viewport marker")
			}
			if !strings.Contains(html, "max-width:") {
				t.Errorf("missing width style")
			}
		})
	}

	desktop, _ := RenderPreview(testConfig(), ViewportDesktop)
	mobile, _ := RenderPreview(testConfig(), ViewportMobile)
	if !strings.Contains(desktop, "max-width:512px") || !strings.Contains(mobile, "max-width:384px") {
		t.Error("viewport widths not applied")
	}
}

func TestRenderPreview_Content(t *testing.T) {
	html, err := RenderPreview(testConfig(), ViewportDesktop)
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}

	for _, want := range []string{
		"Pro plan",
		"Acme &amp; Co",
		`<option value="ckBTC">ckBTC</option>`,
		`<input type="email" name="email" required>`,
		`<select name="size">`,
		`<input type="checkbox" name="agree" required> I agree`,
		"Between 1 and 250.5",
		`href="https://acme.test/help"`,
		"background:#1f2937",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("preview missing %q", want)
		}
	}
	if strings.Contains(html, "very-secret") {
		t.Error("preview leaked webhook url")
	}
}

func TestRenderPreview_DeterministicAndPure(t *testing.T) {
	cfg := testConfig()
	a, _ := RenderPreview(cfg, ViewportTablet)
	b, _ := RenderPreview(cfg, ViewportTablet)
	if a != b {
		t.Error("preview should be deterministic")
	}
	if cfg.Theme != modal.ThemePresets["dark"] || len(cfg.CustomFields) != 2 {
		t.Error("preview mutated its input")
	}
}

func TestRenderPreview_InvalidThemeFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.Theme.PrimaryColor = "red;}</style><script>"
	cfg.Theme.FontFamily = "Comic Sans"
	cfg.Theme.BorderRadius = 99

	html, err := RenderPreview(cfg, ViewportDesktop)
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("invalid color reached the output")
	}
	if !strings.Contains(html, "border-radius:50px") {
		t.Error("radius not clamped")
	}
	if !strings.Contains(html, modal.DefaultTheme().FontFamily) {
		t.Error("font did not fall back to the default")
	}
}

func TestParseViewport(t *testing.T) {
	if v, err := ParseViewport(""); err != nil || v != ViewportDesktop {
		t.Errorf("empty: got %s, %v", v, err)
	}
	if _, err := ParseViewport("watch"); err == nil {
		t.Error("expected error")
	}
}
