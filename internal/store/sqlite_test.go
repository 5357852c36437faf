package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.CreateInstance(context.Background(), "inst-1", "Main", []string{"ICP", "ckBTC"}); err != nil {
		t.Fatalf("failed to create instance: %v", err)
	}
	return s
}

func draft(name string) modal.Draft {
	return modal.Draft{
		Name:          name,
		CompanyName:   "Acme",
		AllowedTokens: []string{"ICP"},
		Theme:         modal.DefaultTheme(),
		CustomFields: []modal.CustomField{
			{ID: "r1", Name: "email", Label: "Email", Type: modal.FieldEmail},
		},
	}
}

func TestInstancesAndTokens(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	instances, err := s.ListInstances(ctx)
	if err != nil {
		t.Fatalf("failed to list instances: %v", err)
	}
	if len(instances) != 1 || instances[0].ID != "inst-1" || instances[0].Name != "Main" {
		t.Fatalf("got instances %+v", instances)
	}

	if err := s.SetToken(ctx, "inst-1", "ckBTC", false); err != nil {
		t.Fatalf("failed to set token: %v", err)
	}
	if err := s.SetToken(ctx, "inst-1", "ckETH", true); err != nil {
		t.Fatalf("failed to add token: %v", err)
	}

	tokens, err := s.ListTokens(ctx, "inst-1")
	if err != nil {
		t.Fatalf("failed to list tokens: %v", err)
	}
	want := []Token{{"ICP", true}, {"ckBTC", false}, {"ckETH", true}}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, tokens[i], want[i])
		}
	}

	if _, err := s.ListTokens(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCreateAndList(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "inst-1", draft("Checkout"))
	if err != nil {
		t.Fatalf("failed to create modal: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an assigned modal id")
	}
	if !created.IsActive {
		t.Error("new modals should start active")
	}

	list, err := s.List(ctx, "inst-1")
	if err != nil {
		t.Fatalf("failed to list modals: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d modals, want 1", len(list))
	}
	got := list[0]
	if got.ID != created.ID || got.Name != "Checkout" || got.InstanceID != "inst-1" {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt %v != %v", got.CreatedAt, created.CreatedAt)
	}
	if len(got.CustomFields) != 1 || got.CustomFields[0].ID != "r1" {
		t.Errorf("custom fields not round-tripped: %+v", got.CustomFields)
	}
}

func TestCreate_UnknownInstance(t *testing.T) {
	s := setupTestDB(t)

	_, err := s.Create(context.Background(), "nope", draft("x"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	created, err := s.Create(ctx, "inst-1", draft("Before"))
	if err != nil {
		t.Fatalf("failed to create modal: %v", err)
	}

	s.now = func() time.Time { return base.Add(time.Hour) }
	updated, err := s.Update(ctx, "inst-1", created.ID, draft("After"))
	if err != nil {
		t.Fatalf("failed to update modal: %v", err)
	}
	if updated.Name != "After" {
		t.Errorf("got Name %s, want After", updated.Name)
	}
	if !updated.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("got UpdatedAt %v", updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt changed to %v", updated.CreatedAt)
	}

	// A clock that went backwards never produces updatedAt < createdAt.
	s.now = func() time.Time { return base.Add(-time.Hour) }
	updated, err = s.Update(ctx, "inst-1", created.ID, draft("Again"))
	if err != nil {
		t.Fatalf("failed to update modal: %v", err)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Errorf("updatedAt %v before createdAt %v", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestUpdate_WrongInstance(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.CreateInstance(ctx, "inst-2", "Other", nil); err != nil {
		t.Fatalf("failed to create instance: %v", err)
	}
	created, _ := s.Create(ctx, "inst-1", draft("Checkout"))

	if _, err := s.Update(ctx, "inst-2", created.ID, draft("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSetActive(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, "inst-1", draft("Checkout"))

	c, err := s.SetActive(ctx, "inst-1", created.ID, false)
	if err != nil {
		t.Fatalf("failed to deactivate: %v", err)
	}
	if c.IsActive {
		t.Error("expected inactive")
	}

	got, err := s.GetModal(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to get modal: %v", err)
	}
	if got.IsActive {
		t.Error("status change not persisted")
	}

	if _, err := s.SetActive(ctx, "inst-1", "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, "inst-1", draft("Checkout"))
	if err := s.RecordEvent(ctx, Event{ModalID: created.ID, Type: EventView, VisitorID: "v1"}); err != nil {
		t.Fatalf("failed to record event: %v", err)
	}

	if err := s.Delete(ctx, "inst-1", created.ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := s.GetModal(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after delete", err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM events WHERE modal_id = ?`, created.ID).Scan(&n); err != nil {
		t.Fatalf("failed to count events: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d orphaned events", n)
	}

	if err := s.Delete(ctx, "inst-1", created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestLegacyRowDecodes(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.DB().Exec(
		`INSERT INTO modals (id, instance_id, name, config, is_active, created_at, updated_at)
		 VALUES ('old', 'inst-1', 'Old', ?, 1, 0, 0)`,
		`{"name":"Old","companyName":"Acme","payment_options":{"allowed_tokens":["ckBTC"]}}`,
	)
	if err != nil {
		t.Fatalf("failed to insert legacy row: %v", err)
	}

	c, err := s.GetModal(ctx, "old")
	if err != nil {
		t.Fatalf("failed to get modal: %v", err)
	}
	if len(c.AllowedTokens) != 1 || c.AllowedTokens[0] != "ckBTC" {
		t.Errorf("got tokens %v, want [ckBTC]", c.AllowedTokens)
	}
}

func TestRecordEvent_DedupesViewsPerDay(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, "inst-1", draft("Checkout"))
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := s.RecordEvent(ctx, Event{ModalID: created.ID, Type: EventView, VisitorID: "v1", CreatedAt: day.Add(time.Duration(i) * time.Hour)})
		if err != nil {
			t.Fatalf("failed to record view: %v", err)
		}
	}
	// Next day counts again.
	s.RecordEvent(ctx, Event{ModalID: created.ID, Type: EventView, VisitorID: "v1", CreatedAt: day.AddDate(0, 0, 1)})
	// Conversions are never deduplicated.
	s.RecordEvent(ctx, Event{ModalID: created.ID, Type: EventConvert, VisitorID: "v1", Token: "ICP", Amount: 5, CreatedAt: day})
	s.RecordEvent(ctx, Event{ModalID: created.ID, Type: EventConvert, VisitorID: "v1", Token: "ICP", Amount: 5, CreatedAt: day})

	s.now = func() time.Time { return day.AddDate(0, 0, 1) }
	a, err := s.Analytics(ctx, "inst-1", created.ID)
	if err != nil {
		t.Fatalf("failed to get analytics: %v", err)
	}
	if a.TotalViews != 2 {
		t.Errorf("got %d views, want 2", a.TotalViews)
	}
	if a.TotalConversions != 2 {
		t.Errorf("got %d conversions, want 2", a.TotalConversions)
	}
}

func TestRecordEvent_Invalid(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if err := s.RecordEvent(ctx, Event{ModalID: "missing", Type: EventView}); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	created, _ := s.Create(ctx, "inst-1", draft("Checkout"))
	if err := s.RecordEvent(ctx, Event{ModalID: created.ID, Type: "click"}); err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestAnalytics_Empty(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, "inst-1", draft("Checkout"))
	a, err := s.Analytics(ctx, "inst-1", created.ID)
	if err != nil {
		t.Fatalf("failed to get analytics: %v", err)
	}
	if !a.Empty() {
		t.Errorf("expected empty analytics, got %+v", a)
	}
	if a.ConversionRate != 0 {
		t.Errorf("got rate %v, want 0", a.ConversionRate)
	}
	if a.RevenueByToken == nil || a.DeviceBreakdown == nil || a.TopCountries == nil {
		t.Error("breakdowns should be empty, not nil")
	}
	if a.ViewsChange != nil {
		t.Error("expected no delta without history")
	}
}

func TestAnalytics_Aggregates(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, "inst-1", draft("Checkout"))
	now := time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	record := func(e Event) {
		t.Helper()
		e.ModalID = created.ID
		if err := s.RecordEvent(ctx, e); err != nil {
			t.Fatalf("failed to record event: %v", err)
		}
	}

	// Previous 30-day window: 2 views, 1 conversion.
	prev := now.AddDate(0, 0, -40)
	record(Event{Type: EventView, VisitorID: "p1", Device: "desktop", Country: "DE", CreatedAt: prev})
	record(Event{Type: EventView, VisitorID: "p2", Device: "desktop", Country: "DE", CreatedAt: prev})
	record(Event{Type: EventConvert, VisitorID: "p1", Token: "ICP", Amount: 10, CreatedAt: prev})

	// Current window: 4 views, 2 conversions.
	cur := now.AddDate(0, 0, -1)
	record(Event{Type: EventView, VisitorID: "c1", Device: "mobile", Country: "US", Referrer: "twitter.com", CreatedAt: cur})
	record(Event{Type: EventView, VisitorID: "c2", Device: "mobile", Country: "US", CreatedAt: cur})
	record(Event{Type: EventView, VisitorID: "c3", Device: "tablet", Country: "FR", CreatedAt: now})
	record(Event{Type: EventView, VisitorID: "c4", CreatedAt: now})
	record(Event{Type: EventConvert, VisitorID: "c1", Token: "ICP", Amount: 20, CreatedAt: cur})
	record(Event{Type: EventConvert, VisitorID: "c2", Token: "ckBTC", Amount: 10, CreatedAt: now})

	a, err := s.Analytics(ctx, "inst-1", created.ID)
	if err != nil {
		t.Fatalf("failed to get analytics: %v", err)
	}

	if a.TotalViews != 6 || a.TotalConversions != 3 {
		t.Errorf("got %d views / %d conversions, want 6 / 3", a.TotalViews, a.TotalConversions)
	}
	if a.TotalRevenue != 40 {
		t.Errorf("got revenue %v, want 40", a.TotalRevenue)
	}
	if a.ConversionRate != 50 {
		t.Errorf("got rate %v, want 50", a.ConversionRate)
	}
	if a.RevenueByToken["ICP"] != 30 || a.RevenueByToken["ckBTC"] != 10 {
		t.Errorf("got revenue by token %v", a.RevenueByToken)
	}
	if a.DeviceBreakdown["desktop"] != 2 || a.DeviceBreakdown["mobile"] != 2 || a.DeviceBreakdown["unknown"] != 1 {
		t.Errorf("got devices %v", a.DeviceBreakdown)
	}
	if len(a.TopCountries) == 0 || a.TopCountries[0].Label != "DE" || a.TopCountries[0].Views != 2 {
		t.Errorf("got countries %v", a.TopCountries)
	}
	if len(a.ReferralSources) == 0 || a.ReferralSources[0].Label != "Direct" {
		t.Errorf("got referrers %v", a.ReferralSources)
	}
	if len(a.Daily) != 3 {
		t.Errorf("got %d daily points, want 3", len(a.Daily))
	}

	if a.ViewsChange == nil || *a.ViewsChange != 100 {
		t.Errorf("got views change %v, want +100%%", a.ViewsChange)
	}
	if a.RevenueChange == nil || *a.RevenueChange != 200 {
		t.Errorf("got revenue change %v, want +200%%", a.RevenueChange)
	}
}

func TestAnalytics_WrongInstance(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, "inst-1", draft("Checkout"))
	if _, err := s.Analytics(ctx, "inst-2", created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListEvents(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	m, err := s.Create(ctx, "inst-1", draft("Exported"))
	if err != nil {
		t.Fatalf("failed to create modal: %v", err)
	}

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{ModalID: m.ID, Type: EventView, VisitorID: "v1", Device: "mobile", CreatedAt: at},
		{ModalID: m.ID, Type: EventConvert, VisitorID: "v1", Token: "ICP", Amount: 3, CreatedAt: at.Add(time.Minute)},
	}
	for _, e := range events {
		if err := s.RecordEvent(ctx, e); err != nil {
			t.Fatalf("failed to record event: %v", err)
		}
	}

	got, err := s.ListEvents(ctx, "inst-1", m.ID)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Type != EventView || got[0].Device != "mobile" || !got[0].CreatedAt.Equal(at) {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Type != EventConvert || got[1].Token != "ICP" || got[1].Amount != 3 {
		t.Errorf("second event = %+v", got[1])
	}

	if _, err := s.ListEvents(ctx, "other", m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
