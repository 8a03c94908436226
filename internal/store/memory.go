package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// entry stores a raw JSON value with an optional expiry.
type entry struct {
	value     []byte
	expiresAt time.Time // zero: no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process Store. Expired keys are dropped lazily on access.
// MaxItems > 0 caps the map on writes: expired keys go first, then arbitrary
// ones other than the key being written.
type Memory struct {
	TTL      time.Duration
	MaxItems int

	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewMemory(ttl time.Duration, maxItems int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{TTL: ttl, MaxItems: maxItems, items: make(map[string]entry), now: time.Now}
}

// lookup returns the live entry for key. Caller holds m.mu.
func (m *Memory) lookup(key string) (entry, bool) {
	if m.items == nil {
		m.items = make(map[string]entry)
	}
	if m.now == nil {
		m.now = time.Now
	}
	e, ok := m.items[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(m.now()) {
		delete(m.items, key)
		return entry{}, false
	}
	return e, true
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	e, ok := m.lookup(key)
	m.mu.Unlock()
	if !ok || len(e.value) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(e.value, dst); err != nil {
		return false, wrap("get", key, fmt.Errorf("failed to unmarshal value: %w", err))
	}
	return true, nil
}

func (m *Memory) SetIfAbsent(_ context.Context, key string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, wrap("setnx", key, fmt.Errorf("failed to marshal value: %w", err))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.items[key] = entry{value: data}
	m.evict(key)
	return true, nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration, onlyIfNoExpiry bool) (bool, error) {
	if ttl <= 0 {
		ttl = m.TTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return false, nil
	}
	if onlyIfNoExpiry && !e.expiresAt.IsZero() {
		return false, nil
	}
	e.expiresAt = m.now().Add(ttl)
	m.items[key] = e
	return true, nil
}

// TTLOf reports the remaining ttl of key; ok is false for a missing key and
// ttl is zero when the key never expires.
func (m *Memory) TTLOf(key string) (ttl time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok || e.expiresAt.IsZero() {
		return 0, ok
	}
	return e.expiresAt.Sub(m.now()), true
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) { return m.add(key, 1, "incr") }

func (m *Memory) Decr(_ context.Context, key string) (int64, error) { return m.add(key, -1, "decr") }

func (m *Memory) add(key string, delta int64, op string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, _ := m.lookup(key)
	var n int64
	if len(e.value) > 0 {
		v, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, wrap(op, key, fmt.Errorf("value is not an integer"))
		}
		n = v
	}
	n += delta
	e.value = []byte(strconv.FormatInt(n, 10))
	m.items[key] = e
	m.evict(key)
	return n, nil
}

// evict keeps the map under MaxItems without touching keep. Caller holds m.mu.
func (m *Memory) evict(keep string) {
	if m.MaxItems <= 0 || len(m.items) <= m.MaxItems {
		return
	}
	now := m.now()
	for k, v := range m.items {
		if v.expired(now) {
			delete(m.items, k)
		}
		if len(m.items) <= m.MaxItems {
			return
		}
	}
	for k := range m.items {
		if len(m.items) <= m.MaxItems {
			break
		}
		if k == keep {
			continue
		}
		delete(m.items, k)
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
