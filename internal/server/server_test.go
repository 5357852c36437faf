package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ckpayment/ckmodal/internal/dashboard"
	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/ckpayment/ckmodal/internal/testutil"
	"github.com/sirupsen/logrus"
)

const testToken = "secret-token"

func setupServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	s := testutil.SetupTestStore(t)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(s, Options{Token: testToken, Logger: logrus.NewEntry(log)}), s
}

func do(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if strings.HasPrefix(path, "/dashboard") {
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: testToken})
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func createModal(t *testing.T, srv *Server, d modal.Draft) modal.Config {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/dashboard/api/instances/inst-1/modals", d)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rec.Code, rec.Body.String())
	}
	var cfg modal.Config
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)

	rec := do(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.InstancesCount != 1 {
		t.Errorf("got %+v", resp)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := setupServer(t)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		path   string
		status int
	}{
		{"no credentials", func(r *http.Request) {}, "/dashboard/api/instances", http.StatusUnauthorized},
		{"wrong cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "nope"})
		}, "/dashboard/api/instances", http.StatusUnauthorized},
		{"bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+testToken)
		}, "/dashboard/api/instances", http.StatusOK},
		{"wrong bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
		}, "/dashboard/api/instances", http.StatusUnauthorized},
		{"query token redirects", func(r *http.Request) {}, "/dashboard?token=" + testToken, http.StatusFound},
		{"bad query token", func(r *http.Request) {}, "/dashboard?token=nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("got %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestModalLifecycle(t *testing.T) {
	srv, _ := setupServer(t)

	d := testutil.ValidDraft("Checkout")
	d.WebhookURL = "https://acme.test/hooks/secret"
	created := createModal(t, srv, d)
	if created.ID == "" || !created.IsActive {
		t.Fatalf("got %+v", created)
	}

	rec := do(t, srv, http.MethodGet, "/dashboard/api/instances/inst-1/modals", nil)
	var list modalListResponse
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Modals) != 1 {
		t.Fatalf("got %d modals, want 1", len(list.Modals))
	}

	d.Name = "Checkout v2"
	rec = do(t, srv, http.MethodPut, "/dashboard/api/instances/inst-1/modals/"+created.ID, d)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Checkout v2") {
		t.Errorf("update: got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/dashboard/api/instances/inst-1/modals/"+created.ID+"/toggle", nil)
	var toggled modal.Config
	json.Unmarshal(rec.Body.Bytes(), &toggled)
	if rec.Code != http.StatusOK || toggled.IsActive {
		t.Errorf("toggle: got %d active=%v", rec.Code, toggled.IsActive)
	}

	rec = do(t, srv, http.MethodDelete, "/dashboard/api/instances/inst-1/modals/"+created.ID, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete without confirm: got %d, want 400", rec.Code)
	}

	rec = do(t, srv, http.MethodDelete, "/dashboard/api/instances/inst-1/modals/"+created.ID+"?confirm=true", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/dashboard/api/instances/inst-1/modals/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: got %d, want 404", rec.Code)
	}
}

func TestCreate_ValidationIs422(t *testing.T) {
	srv, s := setupServer(t)

	d := testutil.ValidDraft("Bad")
	d.AllowedTokens = []string{}
	rec := do(t, srv, http.MethodPost, "/dashboard/api/instances/inst-1/modals", d)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", rec.Code)
	}

	var body errorBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	if _, ok := body.Fields["allowedTokens"]; !ok {
		t.Errorf("expected allowedTokens field error, got %+v", body)
	}

	list, _ := s.List(context.Background(), "inst-1")
	if len(list) != 0 {
		t.Error("invalid draft reached the store")
	}
}

func TestUnknownInstanceAndModal(t *testing.T) {
	srv, _ := setupServer(t)

	if rec := do(t, srv, http.MethodGet, "/dashboard/api/instances/nope/modals", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown instance: got %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/dashboard/api/instances/inst-1/modals/nope/toggle", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown modal: got %d, want 404", rec.Code)
	}
}

func TestPublicModal(t *testing.T) {
	srv, _ := setupServer(t)
	d := testutil.ValidDraft("Public")
	d.WebhookURL = "https://acme.test/hooks/secret"
	created := createModal(t, srv, d)

	rec := do(t, srv, http.MethodGet, "/m/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hooks/secret") {
		t.Error("public config leaks the webhook URL")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header")
	}

	do(t, srv, http.MethodPost, "/dashboard/api/instances/inst-1/modals/"+created.ID+"/toggle", nil)
	if rec := do(t, srv, http.MethodGet, "/m/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("inactive modal: got %d, want 404", rec.Code)
	}
}

func TestBeaconFeedsAnalytics(t *testing.T) {
	srv, _ := setupServer(t)
	created := createModal(t, srv, testutil.ValidDraft("Tracked"))

	beacons := []BeaconRequest{
		{ModalID: created.ID, EventType: "view", VisitorID: "v1", Device: "Mobile", Referrer: "https://www.google.com/search?q=x"},
		{ModalID: created.ID, EventType: "view", VisitorID: "v1"},
		{ModalID: created.ID, EventType: "view", VisitorID: "v2", Country: "de"},
		{ModalID: created.ID, EventType: "convert", VisitorID: "v2", Token: "ICP", Amount: 12.5},
	}
	for _, b := range beacons {
		if rec := do(t, srv, http.MethodPost, "/b", b); rec.Code != http.StatusNoContent {
			t.Fatalf("beacon %+v: got %d", b, rec.Code)
		}
	}

	rec := do(t, srv, http.MethodGet, "/dashboard/api/instances/inst-1/modals/"+created.ID+"/analytics?range=7d&refresh=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics: got %d: %s", rec.Code, rec.Body.String())
	}
	var sum dashboard.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Views != 2 || sum.Conversions != 1 || sum.Revenue != 12.5 || sum.ConversionRate != 50 {
		t.Errorf("got %+v", sum)
	}
	if sum.Range != dashboard.Range7d {
		t.Errorf("range = %s", sum.Range)
	}
}

func TestBeaconRejects(t *testing.T) {
	srv, _ := setupServer(t)
	created := createModal(t, srv, testutil.ValidDraft("Tracked"))

	tests := []struct {
		name   string
		body   BeaconRequest
		status int
	}{
		{"missing visitor", BeaconRequest{ModalID: created.ID, EventType: "view"}, http.StatusBadRequest},
		{"bad type", BeaconRequest{ModalID: created.ID, EventType: "click", VisitorID: "v"}, http.StatusBadRequest},
		{"negative amount", BeaconRequest{ModalID: created.ID, EventType: "convert", VisitorID: "v", Amount: -1}, http.StatusBadRequest},
		{"unknown modal", BeaconRequest{ModalID: "nope", EventType: "view", VisitorID: "v"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, srv, http.MethodPost, "/b", tt.body); rec.Code != tt.status {
				t.Errorf("got %d, want %d", rec.Code, tt.status)
			}
		})
	}

	req := httptest.NewRequest(http.MethodOptions, "/b", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight: got %d", rec.Code)
	}
}

func TestEmbedAndPreview(t *testing.T) {
	srv, _ := setupServer(t)
	created := createModal(t, srv, testutil.ValidDraft("Embeddable"))
	base := "/dashboard/api/instances/inst-1/modals/" + created.ID

	rec := do(t, srv, http.MethodGet, base+"/embed?framework=react", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("embed: got %d", rec.Code)
	}
	var resp embedResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !strings.Contains(resp.Code, created.ID) || len(resp.Files) == 0 {
		t.Errorf("got %+v", resp)
	}

	if rec := do(t, srv, http.MethodGet, base+"/embed?framework=svelte", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown framework: got %d, want 400", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, base+"/preview?viewport=mobile", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Embeddable") {
		t.Errorf("preview: got %d", rec.Code)
	}
}

func TestEmbed_LoadsOwnSDK(t *testing.T) {
	s := testutil.SetupTestStore(t)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	srv := New(s, Options{Token: testToken, Logger: logrus.NewEntry(log), PublicURL: "https://pay.example.com/"})
	created := createModal(t, srv, testutil.ValidDraft("Own SDK"))

	rec := do(t, srv, http.MethodGet, "/dashboard/api/instances/inst-1/modals/"+created.ID+"/embed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("embed: got %d", rec.Code)
	}
	var resp embedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Code, `src="https://pay.example.com/ckpay.js"`) {
		t.Errorf("embed code should load the server's ckpay.js:\n%s", resp.Code)
	}
}

func TestRenderModal(t *testing.T) {
	srv, _ := setupServer(t)
	d := testutil.ValidDraft("Rendered")
	minAmount := 5.0
	d.MinimumAmount = &minAmount
	d.RequireEmail = true
	d.CustomFields = []modal.CustomField{{Name: "order_ref", Label: "Order reference", Type: modal.FieldText, Required: true}}
	created := createModal(t, srv, d)

	rec := do(t, srv, http.MethodGet, "/m/"+created.ID+"/render?viewport=mobile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("render: got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="order_ref"`, "Order reference", `name="email"`, "Minimum 5", `data-viewport="mobile"`, "ckpay-pay"} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered modal missing %q:\n%s", want, body)
		}
	}

	if rec := do(t, srv, http.MethodGet, "/m/"+created.ID+"/render?viewport=watch", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown viewport: got %d, want 400", rec.Code)
	}

	do(t, srv, http.MethodPost, "/dashboard/api/instances/inst-1/modals/"+created.ID+"/toggle", nil)
	if rec := do(t, srv, http.MethodGet, "/m/"+created.ID+"/render", nil); rec.Code != http.StatusNotFound {
		t.Errorf("inactive modal: got %d, want 404", rec.Code)
	}
}

func TestDashboardPages(t *testing.T) {
	srv, _ := setupServer(t)
	createModal(t, srv, testutil.ValidDraft("Listed"))

	rec := do(t, srv, http.MethodGet, "/dashboard", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/dashboard/instances/inst-1") {
		t.Errorf("instances page: got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/dashboard/instances/inst-1", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Listed") {
		t.Errorf("modals page: got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSDKScript(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ckpay.js", nil)
	req.Host = "pay.example.com"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"http://pay.example.com"`) || !strings.Contains(body, "ckPay") {
		t.Errorf("unexpected script:\n%s", body)
	}
	for _, want := range []string{"/render?viewport=", "innerHTML", "ckpay:submit", "minimumAmount"} {
		if !strings.Contains(body, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestReferrerHost(t *testing.T) {
	tests := map[string]string{
		"":                               "",
		"https://www.Google.com/search?q": "google.com",
		"http://news.ycombinator.com":     "news.ycombinator.com",
		"example.org/path":                "example.org",
	}
	for in, want := range tests {
		if got := referrerHost(in); got != want {
			t.Errorf("referrerHost(%q) = %q, want %q", in, got, want)
		}
	}
}
