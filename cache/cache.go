// Package cache keeps fetched calendar data for a bounded freshness window so
// repeated renders do not hit the Calendar API.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value   V
	fetched time.Time
}

// Store is a string-keyed cache. A zero TTL keeps entries for the lifetime of
// the Store.
type Store[V any] struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
	loads   singleflight.Group
}

func New[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{TTL: ttl, Now: time.Now, entries: make(map[string]entry[V])}
}

func (s *Store[V]) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Get returns the value for key if present and still fresh.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if s.TTL > 0 && s.now().Sub(e.fetched) >= s.TTL {
		delete(s.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) Put(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[string]entry[V])
	}
	s.entries[key] = entry[V]{value: value, fetched: s.now()}
}

func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Purge drops every entry.
func (s *Store[V]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry[V])
}

// GetOrLoad returns the cached value for key or calls load and caches its
// result. Concurrent misses on one key share a single load. Failed loads are
// not cached.
func (s *Store[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}
	res, err, _ := s.loads.Do(key, func() (interface{}, error) {
		if v, ok := s.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		s.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
