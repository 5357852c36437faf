// Package testutil holds shared test fixtures.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/store"
)

// SetupTestStore creates a test database with one instance, "inst-1",
// supporting ICP, ckBTC and ckETH.
// Uses t.TempDir() for automatic cleanup on test completion.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	if _, err := s.CreateInstance(context.Background(), "inst-1", "Main", []string{"ICP", "ckBTC", "ckETH"}); err != nil {
		t.Fatalf("failed to create instance: %v", err)
	}

	return s
}

// ValidDraft returns a draft that passes validation against ICP/ckBTC/ckETH.
func ValidDraft(name string) modal.Draft {
	return modal.Draft{
		Name:          name,
		CompanyName:   "Acme",
		WebsiteURL:    "https://acme.test",
		AllowedTokens: []string{"ICP"},
		Theme:         modal.DefaultTheme(),
		CustomFields:  []modal.CustomField{},
	}
}

var ErrBackendDown = errors.New("backend unavailable")

// FakeClient is an in-memory store.ModalClient and store.TokenLister that
// counts calls and can be told to fail or block.
type FakeClient struct {
	mu      sync.Mutex
	modals  map[string][]modal.Config
	tokens  []store.Token
	calls   map[string]int
	errs    map[string]error
	gates   map[string]chan struct{}
	entered map[string]chan struct{}
	nextID  int
	Now     func() time.Time

	AnalyticsResult modal.Analytics
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		modals:  map[string][]modal.Config{},
		tokens:  []store.Token{{Symbol: "ICP", IsActive: true}, {Symbol: "ckBTC", IsActive: true}, {Symbol: "ckETH", IsActive: true}},
		calls:   map[string]int{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
		entered: map[string]chan struct{}{},
		Now:     time.Now,
	}
}

// Seed puts configs straight into the fake backend.
func (f *FakeClient) Seed(instanceID string, cfgs ...modal.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range cfgs {
		c.InstanceID = instanceID
		f.modals[instanceID] = append(f.modals[instanceID], c.Clone())
	}
}

// SetTokens replaces the token list.
func (f *FakeClient) SetTokens(tokens ...store.Token) {
	f.mu.Lock()
	f.tokens = tokens
	f.mu.Unlock()
}

// Fail makes op return err until cleared with a nil err.
func (f *FakeClient) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Block makes the next calls to op wait until the returned release func is
// called. The returned channel is closed once a call has entered op.
func (f *FakeClient) Block(op string) (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{})
	f.gates[op] = gate
	f.entered[op] = in
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}

// Calls returns how many times op was invoked.
func (f *FakeClient) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls counts every modal-service call.
func (f *FakeClient) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for op, c := range f.calls {
		if op != "ListTokens" {
			n += c
		}
	}
	return n
}

func (f *FakeClient) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate, in := f.gates[op], f.entered[op]
	delete(f.entered, op)
	f.mu.Unlock()

	if in != nil {
		close(in)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

func (f *FakeClient) ListTokens(_ context.Context, _ string) ([]store.Token, error) {
	if err := f.enter("ListTokens"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Token(nil), f.tokens...), nil
}

func (f *FakeClient) List(_ context.Context, instanceID string) ([]modal.Config, error) {
	if err := f.enter("List"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []modal.Config{}
	for _, c := range f.modals[instanceID] {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (f *FakeClient) Create(_ context.Context, instanceID string, d modal.Draft) (modal.Config, error) {
	if err := f.enter("Create"); err != nil {
		return modal.Config{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	now := f.Now().UTC()
	c := modal.Config{
		ID:         fmt.Sprintf("modal-%d", f.nextID),
		InstanceID: instanceID,
		Draft:      d.Clone(),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.modals[instanceID] = append(f.modals[instanceID], c)
	return c.Clone(), nil
}

func (f *FakeClient) Update(_ context.Context, instanceID, modalID string, d modal.Draft) (modal.Config, error) {
	if err := f.enter("Update"); err != nil {
		return modal.Config{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.modals[instanceID] {
		if c.ID == modalID {
			c.Draft = d.Clone()
			c.UpdatedAt = f.Now().UTC()
			f.modals[instanceID][i] = c
			return c.Clone(), nil
		}
	}
	return modal.Config{}, store.ErrNotFound
}

func (f *FakeClient) SetActive(_ context.Context, instanceID, modalID string, active bool) (modal.Config, error) {
	if err := f.enter("SetActive"); err != nil {
		return modal.Config{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.modals[instanceID] {
		if c.ID == modalID {
			c.IsActive = active
			c.UpdatedAt = f.Now().UTC()
			f.modals[instanceID][i] = c
			return c.Clone(), nil
		}
	}
	return modal.Config{}, store.ErrNotFound
}

func (f *FakeClient) Delete(_ context.Context, instanceID, modalID string) error {
	if err := f.enter("Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.modals[instanceID]
	for i, c := range list {
		if c.ID == modalID {
			f.modals[instanceID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *FakeClient) Analytics(_ context.Context, instanceID, modalID string) (modal.Analytics, error) {
	if err := f.enter("Analytics"); err != nil {
		return modal.Analytics{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.modals[instanceID] {
		if c.ID == modalID {
			a := f.AnalyticsResult
			a.ModalID = modalID
			return a, nil
		}
	}
	return modal.Analytics{}, store.ErrNotFound
}
