package arena

import (
	"sort"
	"sync"
)

// keyLocks serializes rating updates per (modelId, scope) key. Concurrent
// votes touching the same key apply one at a time; disjoint keys proceed in
// parallel. Locks are acquired in sorted order to avoid deadlock when a vote
// touches several keys.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if m, ok := k.locks[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	k.locks[key] = m
	return m
}

// lockAll acquires every key's lock in sorted order and returns the unlock
// function. Duplicate keys are collapsed.
func (k *keyLocks) lockAll(keys []string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var held []*sync.Mutex
	var last string
	for i, key := range sorted {
		if i > 0 && key == last {
			continue
		}
		last = key
		m := k.get(key)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
