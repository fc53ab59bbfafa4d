// Package memstore is an in-memory store.Documents used by tests and local
// development. Documents round-trip through JSON so the behavior of typed
// reads matches the real adapter closely enough for handler-level tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/myerscreative/flowdoors-tracking/internal/store"
)

type Store struct {
	mu    sync.Mutex
	colls map[string]map[string]map[string]any
	// FailWrites forces Insert/UpdateFields/Upsert to fail; used to test
	// persistence-failure paths.
	FailWrites bool
}

func New() *Store {
	return &Store{colls: make(map[string]map[string]map[string]any)}
}

var errForcedFailure = fmt.Errorf("memstore: forced write failure")

func (s *Store) coll(name string) map[string]map[string]any {
	c, ok := s.colls[name]
	if !ok {
		c = make(map[string]map[string]any)
		s.colls[name] = c
	}
	return c
}

func (s *Store) Insert(ctx context.Context, collection, id string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errForcedFailure
	}
	m, err := toMap(doc)
	if err != nil {
		return err
	}
	s.coll(collection)[id] = m
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.coll(collection)[id]
	if !ok {
		return store.ErrNotFound
	}
	return fromMap(m, out)
}

func (s *Store) UpdateFields(ctx context.Context, collection, id string, u store.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errForcedFailure
	}
	m, ok := s.coll(collection)[id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range u.Set {
		m[k] = v
	}
	for k, v := range u.SetIfUnset {
		if cur, exists := m[k]; !exists || cur == nil {
			m[k] = v
		}
	}
	for k, by := range u.Inc {
		m[k] = asInt64(m[k]) + by
	}
	return nil
}

func (s *Store) FindByField(ctx context.Context, collection, field string, value any, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := fmt.Sprintf("%v", value)
	for _, m := range s.coll(collection) {
		if got, ok := m[field]; ok && fmt.Sprintf("%v", got) == want {
			return fromMap(m, out)
		}
	}
	return store.ErrNotFound
}

func (s *Store) Upsert(ctx context.Context, collection, id string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errForcedFailure
	}
	m, err := toMap(doc)
	if err != nil {
		return err
	}
	s.coll(collection)[id] = m
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// Raw returns the stored document map, for test assertions.
func (s *Store) Raw(collection, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.coll(collection)[id]
	return m, ok
}

func toMap(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return m, nil
}

func fromMap(m map[string]any, out any) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
