// Package memory is the in-memory ItemStore and PermissionSource used
// for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"followe/internal/core"
	"followe/internal/store"
)

type Store struct {
	mu         sync.Mutex
	items      map[string]core.Item
	permission store.PermissionState
	now        func() time.Time
}

func New() *Store {
	return &Store{
		items:      map[string]core.Item{},
		permission: store.PermissionNotAsked,
		now:        time.Now,
	}
}

// GetAll returns items newest first.
func (s *Store) GetAll(_ context.Context, f store.ListFilter) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Item, 0, len(s.items))
	for _, it := range s.items {
		if f.Active != nil && it.IsActive != *f.Active {
			continue
		}
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return core.Item{}, store.ErrNotFound
	}
	return it, nil
}

func (s *Store) Create(_ context.Context, item core.Item) (core.Item, error) {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return core.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := s.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) Update(_ context.Context, item core.Item) (core.Item, error) {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return core.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[item.ID]
	if !ok {
		return core.Item{}, store.ErrNotFound
	}
	item.CreatedAt = prev.CreatedAt
	item.UpdatedAt = s.now()
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) SetActive(_ context.Context, id string, active bool) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return core.Item{}, store.ErrNotFound
	}
	it.IsActive = active
	it.UpdatedAt = s.now()
	s.items[id] = it
	return it, nil
}

func (s *Store) Current(_ context.Context) (store.PermissionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission, nil
}

func (s *Store) Set(_ context.Context, state store.PermissionState) error {
	if !state.Valid() {
		return store.ErrInvalidPermission
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = state
	return nil
}
