package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ============================================================
// In-Memory Store
// ============================================================

// MemoryStore — map-бэкенд для тестов и локальной разработки.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any // collection -> id -> doc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
	}
}

func (s *MemoryStore) Read(_ context.Context, collection string, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for id, doc := range s.collections[collection] {
		if !matches(doc, filter) {
			continue
		}
		copied, err := normalize(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{ID: id, Data: copied})
	}
	return out, nil
}

func (s *MemoryStore) Write(_ context.Context, collection, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	normalized, err := normalize(patch)
	if err != nil {
		return err
	}
	for key, value := range normalized {
		doc[key] = value
	}
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, collection string, record map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := normalize(record)
	if err != nil {
		return "", err
	}

	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["id"] = id
	}

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = doc
	return id, nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}
