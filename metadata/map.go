// File: metadata/map.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-owner metadata container: mutex-guarded slots in insertion order,
// with expired transient entries evicted by whichever traversal reaches
// them first.

package metadata

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-meta/api"
)

// Map is the metadata container of one owner. The zero value is not usable;
// call New. All methods are safe for concurrent use.
type Map struct {
	mu    sync.Mutex
	slots []*slot          // insertion order, walked by traversals
	index map[string]*slot // by key id, same set as slots

	evictions atomic.Uint64
}

// slot holds either a plain value or a transient wrapper, never both.
type slot struct {
	key       Descriptor
	value     any
	transient expiring
}

func (s *slot) expired() bool {
	return s.transient != nil && s.transient.shouldExpire()
}

// load unboxes the stored value, consulting the transient policy once.
func (s *slot) load() (any, bool) {
	if s.transient == nil {
		return s.value, true
	}
	return s.transient.load()
}

// check is load when read is set. Otherwise it tests expiry without
// touching the policy and returns no value.
func (s *slot) check(read bool) (any, bool) {
	if read {
		return s.load()
	}
	return nil, !s.expired()
}

func (s *slot) raw() any {
	if s.transient != nil {
		return s.transient
	}
	return s.value
}

// Entry is one raw stored object in a snapshot. Value is either the plain
// value or the *Transient wrapper, possibly already expired.
type Entry struct {
	Key   Descriptor
	Value any
}

// Stats summarizes a Map.
type Stats struct {
	Entries   int    // raw entries, including not yet evicted ones
	Evictions uint64 // expired entries removed since creation
}

// New creates an empty Map.
func New() *Map {
	return &Map{index: make(map[string]*slot)}
}

// Has reports whether a live entry whose declared type matches key exists.
// Expired entries passed on the way are evicted. Has does not count as an
// access for idle policies. A nil key reports false.
func (m *Map) Has(key Descriptor) bool {
	if key == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.scanLocked(key.ID(), false)
	return s != nil && s.key.Type() == key.Type()
}

// Remove drops the entry under key's id regardless of its declared type.
// Reports whether an entry was present.
func (m *Map) Remove(key Descriptor) bool {
	if key == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.index[key.ID()]
	if !ok {
		return false
	}
	m.removeLocked(s)
	return true
}

// Clear empties the map.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.slots)
	m.slots = m.slots[:0]
	clear(m.index)
}

// AsMap returns a read-only copy of the raw contents keyed by id. Expired
// entries that no traversal has reached yet are still listed.
func (m *Map) AsMap() map[string]Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Entry, len(m.slots))
	for _, s := range m.slots {
		out[s.key.ID()] = Entry{Key: s.key, Value: s.raw()}
	}
	return out
}

// Keys returns the descriptors currently stored, in insertion order.
func (m *Map) Keys() []Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]Descriptor, len(m.slots))
	for i, s := range m.slots {
		keys[i] = s.key
	}
	return keys
}

// Len returns the raw entry count without sweeping.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// IsEmpty sweeps expired entries, then reports whether none remain.
func (m *Map) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	return len(m.slots) == 0
}

// Cleanup evicts every expired transient entry and returns how many were
// removed.
func (m *Map) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

// Stats returns entry and eviction counters.
func (m *Map) Stats() Stats {
	m.mu.Lock()
	n := len(m.slots)
	m.mu.Unlock()
	return Stats{Entries: n, Evictions: m.evictions.Load()}
}

// scanLocked walks slots in order looking for id, evicting every expired
// entry it passes. It stops at the target. The target itself is unboxed
// with a single policy evaluation; if that reports expiry the target is
// evicted too and nil is returned.
func (m *Map) scanLocked(id string, read bool) (*slot, any) {
	var (
		found *slot
		value any
	)
	live := m.slots[:0]
	i := 0
	for ; i < len(m.slots); i++ {
		s := m.slots[i]
		if s.key.ID() == id {
			if v, ok := s.check(read); ok {
				found, value = s, v
				live = append(live, s)
			} else {
				m.evictLocked(s)
			}
			i++
			break
		}
		if s.expired() {
			m.evictLocked(s)
			continue
		}
		live = append(live, s)
	}
	m.compactLocked(live, i)
	return found, value
}

// sweepLocked evicts every expired entry.
func (m *Map) sweepLocked() int {
	before := len(m.slots)
	live := m.slots[:0]
	for _, s := range m.slots {
		if s.expired() {
			m.evictLocked(s)
			continue
		}
		live = append(live, s)
	}
	m.compactLocked(live, len(m.slots))
	return before - len(m.slots)
}

// compactLocked keeps live followed by the unvisited tail slots[from:].
func (m *Map) compactLocked(live []*slot, from int) {
	if len(live) == from {
		return
	}
	live = append(live, m.slots[from:]...)
	clear(m.slots[len(live):])
	m.slots = live
}

func (m *Map) evictLocked(s *slot) {
	delete(m.index, s.key.ID())
	m.evictions.Add(1)
}

// store writes s under its key id. Unless force is set, an existing live
// entry declared with a different type rejects the write. An expired
// entry under the same id is evicted first and never blocks the write.
func (m *Map) store(s *slot, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := s.key.ID()
	existing, ok := m.index[id]
	if ok && existing.expired() {
		m.removeLocked(existing)
		m.evictions.Add(1)
		ok = false
	}
	if !ok {
		m.insertLocked(s)
		return nil
	}
	if !force && existing.key.Type() != s.key.Type() {
		return typeMismatch(s.key, existing.key.Type())
	}
	existing.key, existing.value, existing.transient = s.key, s.value, s.transient
	return nil
}

// storeIfAbsent sweeps, then inserts s only when no live entry holds its
// id, whatever that entry's declared type.
func (m *Map) storeIfAbsent(s *slot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	if _, ok := m.index[s.key.ID()]; ok {
		return false
	}
	m.insertLocked(s)
	return true
}

// lookup finds the live value stored under key, checking its declared type.
func (m *Map) lookup(key Descriptor) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupLocked(key)
}

func (m *Map) lookupLocked(key Descriptor) (any, bool, error) {
	s, v := m.scanLocked(key.ID(), true)
	if s == nil {
		return nil, false, nil
	}
	if s.key.Type() != key.Type() {
		return nil, false, typeMismatch(key, s.key.Type())
	}
	return v, true, nil
}

// loadOrStore returns the live value under s's id if there is one;
// otherwise inserts s and returns its unboxed value. This is the
// compare-and-insert half of GetOrPut: the first writer wins.
func (m *Map) loadOrStore(s *slot) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok, err := m.lookupLocked(s.key)
	if err != nil || ok {
		return v, err
	}
	v, ok = s.load()
	if !ok {
		return nil, api.Errorf(api.ErrCodeInvalidSupplier,
			"metadata: supplied transient value for %q already expired", s.key.ID()).
			WithContext("key", s.key.ID())
	}
	m.insertLocked(s)
	return v, nil
}

func (m *Map) insertLocked(s *slot) {
	m.index[s.key.ID()] = s
	m.slots = append(m.slots, s)
}

func (m *Map) removeLocked(s *slot) {
	delete(m.index, s.key.ID())
	for i, cur := range m.slots {
		if cur == s {
			copy(m.slots[i:], m.slots[i+1:])
			m.slots[len(m.slots)-1] = nil
			m.slots = m.slots[:len(m.slots)-1]
			return
		}
	}
}
