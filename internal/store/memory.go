package store

import (
	"context"
	"log"
	"sync"
	"time"
)

// MemoryKV is the in-process fallback backend with the same TTL
// semantics as Redis. It is a single-process development fallback only:
// state is lost on restart and cannot be shared across processes.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string]memoryItem
	sets  map[string]map[string]struct{}
	lists map[string][]string
	// ttls tracks expiry for sets and lists, which live outside items.
	ttls map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// NewMemoryKV creates an empty in-process store and logs the
// deployment caveat.
func NewMemoryKV() *MemoryKV {
	log.Printf("[store] WARNING: using in-memory state store; unsuitable for multi-process deployment")
	return &MemoryKV{
		items: make(map[string]memoryItem),
		sets:  make(map[string]map[string]struct{}),
		lists: make(map[string][]string),
		ttls:  make(map[string]time.Time),
		now:   time.Now,
	}
}

func (m *MemoryKV) expired(key string) bool {
	if item, ok := m.items[key]; ok {
		if !item.expiresAt.IsZero() && m.now().After(item.expiresAt) {
			delete(m.items, key)
			return true
		}
		return false
	}
	if exp, ok := m.ttls[key]; ok {
		if !exp.IsZero() && m.now().After(exp) {
			delete(m.sets, key)
			delete(m.lists, key)
			delete(m.ttls, key)
			return true
		}
	}
	return false
}

// Get returns the value at key, or ErrNotFound.
func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.expired(key) {
		return "", ErrNotFound
	}
	item, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return item.value, nil
}

// Set writes key with a TTL.
func (m *MemoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = memoryItem{value: value, expiresAt: m.deadline(ttl)}
	return nil
}

// SetNX writes key only if it does not exist.
func (m *MemoryKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.expired(key) {
		if _, ok := m.items[key]; ok {
			return false, nil
		}
	}
	m.items[key] = memoryItem{value: value, expiresAt: m.deadline(ttl)}
	return true, nil
}

// Delete removes key.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	delete(m.sets, key)
	delete(m.lists, key)
	delete(m.ttls, key)
	return nil
}

// GetDel atomically reads and removes key.
func (m *MemoryKV) GetDel(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.expired(key) {
		return "", ErrNotFound
	}
	item, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	delete(m.items, key)
	return item.value, nil
}

// MGet returns values for keys; missing entries are "".
func (m *MemoryKV) MGet(ctx context.Context, keys ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(keys))
	for i, key := range keys {
		if m.expired(key) {
			continue
		}
		if item, ok := m.items[key]; ok {
			out[i] = item.value
		}
	}
	return out, nil
}

// SAdd adds members to the set at key.
func (m *MemoryKV) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expired(key)
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

// SMembers returns all members of the set at key.
func (m *MemoryKV) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.expired(key) {
		return nil, nil
	}
	var members []string
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

// SRem removes members from the set at key.
func (m *MemoryKV) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(set, member)
	}
	return nil
}

// RPush appends values to the list at key.
func (m *MemoryKV) RPush(ctx context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expired(key)
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

// LRange returns list entries in [start, stop], Redis-style inclusive
// with -1 meaning the last element.
func (m *MemoryKV) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.expired(key) {
		return nil, nil
	}
	list := m.lists[key]
	n := int64(len(list))
	if n == 0 {
		return nil, nil
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

// Expire refreshes the TTL on key.
func (m *MemoryKV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[key]; ok {
		item.expiresAt = m.deadline(ttl)
		m.items[key] = item
		return nil
	}
	if _, ok := m.sets[key]; ok {
		m.ttls[key] = m.deadline(ttl)
		return nil
	}
	if _, ok := m.lists[key]; ok {
		m.ttls[key] = m.deadline(ttl)
	}
	return nil
}

// Ping always succeeds for the in-process store.
func (m *MemoryKV) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryKV) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}
