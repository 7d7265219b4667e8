// Package memory is an in-process storage.Store, optionally seeded from a JSON file.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"sismobi/internal/storage"
)

type Store struct {
	mu   sync.RWMutex
	cols map[string]*collection
}

type collection struct {
	order []string
	docs  map[string]json.RawMessage
}

func New() *Store {
	return &Store{cols: make(map[string]*collection)}
}

// NewFromFile loads a seed file shaped like {"properties": [...], "tenants": [...]}.
// Entries without an "id" are ignored. A missing path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed map[string][]json.RawMessage
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	for name, raws := range seed {
		if !storage.ValidCollection(name) {
			continue
		}
		docs := make([]storage.Document, 0, len(raws))
		for _, raw := range raws {
			var head struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(raw, &head); err != nil || head.ID == "" {
				continue
			}
			docs = append(docs, storage.Document{ID: head.ID, Body: raw})
		}
		if err := s.Put(context.Background(), name, docs...); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) List(_ context.Context, name string) ([]storage.Document, error) {
	if !storage.ValidCollection(name) {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownCollection, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cols[name]
	if !ok {
		return nil, nil
	}
	out := make([]storage.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, storage.Document{ID: id, Body: clone(c.docs[id])})
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, name, id string) (json.RawMessage, error) {
	if !storage.ValidCollection(name) {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownCollection, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.cols[name]; ok {
		if body, ok := c.docs[id]; ok {
			return clone(body), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) Put(_ context.Context, name string, docs ...storage.Document) error {
	if !storage.ValidCollection(name) {
		return fmt.Errorf("%w: %s", storage.ErrUnknownCollection, name)
	}
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("put %s: empty id", name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cols[name]
	if !ok {
		c = &collection{docs: make(map[string]json.RawMessage)}
		s.cols[name] = c
	}
	for _, d := range docs {
		if _, exists := c.docs[d.ID]; !exists {
			c.order = append(c.order, d.ID)
		}
		c.docs[d.ID] = clone(d.Body)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, name, id string) error {
	if !storage.ValidCollection(name) {
		return fmt.Errorf("%w: %s", storage.ErrUnknownCollection, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cols[name]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func clone(b json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), b...)
}
