package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process ReplicatedStore. It backs the degraded
// single-user mode when no replication backend is configured, and tests.
// Delivery is synchronous and in write order, which makes it the
// strictest backend to converge against in tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	subs   map[int]*memorySub
	nextID int
}

type memorySub struct {
	prefix string
	fn     ChangeFunc
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		subs:   make(map[int]*memorySub),
	}
}

// Put writes value at path; a nil value tombstones the key. Subscribers
// are notified synchronously.
func (s *MemoryStore) Put(ctx context.Context, path []string, value []byte) error {
	key := JoinPath(path)

	s.mu.Lock()
	if value == nil {
		delete(s.values, key)
	} else {
		cp := make([]byte, len(value))
		copy(cp, value)
		s.values[key] = cp
	}
	subs := make([]*memorySub, 0, len(s.subs))
	for _, sub := range s.subs {
		if matchesPrefix(key, sub.prefix) {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(value, LastSegment(key))
	}
	return nil
}

// Subscribe registers fn for every key under path, replaying the
// current value of each existing key first.
func (s *MemoryStore) Subscribe(path []string, fn ChangeFunc) (CancelFunc, error) {
	prefix := JoinPath(path)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &memorySub{prefix: prefix, fn: fn}

	type replay struct {
		value []byte
		key   string
	}
	var replays []replay
	for key, value := range s.values {
		if matchesPrefix(key, prefix) {
			replays = append(replays, replay{value: value, key: LastSegment(key)})
		}
	}
	s.mu.Unlock()

	for _, r := range replays {
		fn(r.value, r.key)
	}

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

// Close drops all subscriptions.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.subs = make(map[int]*memorySub)
	s.mu.Unlock()
	return nil
}

func matchesPrefix(key, prefix string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}
