package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
)

type memoryEntry struct {
	value   modal.Analytics
	expires time.Time
}

// Memory is a process-local Analytics cache. Values are copied in and out
// so callers never share maps with the cache.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (m *Memory) Get(_ context.Context, instanceID, modalID string) (modal.Analytics, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(instanceID, modalID)
	e, ok := m.entries[k]
	if !ok {
		return modal.Analytics{}, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, k)
		return modal.Analytics{}, false, nil
	}
	return e.value.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, instanceID, modalID string, a modal.Analytics) error {
	m.mu.Lock()
	m.entries[key(instanceID, modalID)] = memoryEntry{value: a.Clone(), expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, instanceID, modalID string) error {
	m.mu.Lock()
	delete(m.entries, key(instanceID, modalID))
	m.mu.Unlock()
	return nil
}
