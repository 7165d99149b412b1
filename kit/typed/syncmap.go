package typed

import "sync"

// SyncMap is a typed concurrent map holding at most limit entries. Storing
// a new key into a full map evicts the oldest stored key. A limit of zero
// or less means unbounded.
type SyncMap[K comparable, V any] struct {
	mu    sync.RWMutex
	m     map[K]V
	order []K // insertion order, oldest first
	limit int
}

func NewSyncMap[K comparable, V any](limit int) *SyncMap[K, V] {
	return &SyncMap[K, V]{m: make(map[K]V), limit: limit}
}

func (sm *SyncMap[K, V]) Load(key K) (value V, ok bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	value, ok = sm.m[key]
	return value, ok
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores value, evicting the oldest entry when full, and returns it.
// loaded reports whether the value was already present.
func (sm *SyncMap[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if v, ok := sm.m[key]; ok {
		return v, true
	}
	if sm.limit > 0 && len(sm.m) >= sm.limit {
		oldest := sm.order[0]
		sm.order = sm.order[1:]
		delete(sm.m, oldest)
	}
	sm.m[key] = value
	sm.order = append(sm.order, key)
	return value, false
}

func (sm *SyncMap[K, V]) Delete(key K) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.m[key]; !ok {
		return
	}
	delete(sm.m, key)
	for i, k := range sm.order {
		if k == key {
			sm.order = append(sm.order[:i], sm.order[i+1:]...)
			break
		}
	}
}

func (sm *SyncMap[K, V]) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.m)
}

// Range calls f for each entry, oldest first, until f returns false. f must
// not modify the map.
func (sm *SyncMap[K, V]) Range(f func(key K, value V) bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for _, k := range sm.order {
		if !f(k, sm.m[k]) {
			return
		}
	}
}
