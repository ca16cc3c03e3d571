/*
repository.go - In-memory repository and product source

PURPOSE:
  Map-backed implementations of Repository and ProductSource for tests and
  development. Production uses the SQLite implementations in store/sqlite.
*/
package deposit

import (
	"context"
	"sync"
)

// =============================================================================
// MEMORY REPOSITORY
// =============================================================================

type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]Account)}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	// Return a copy so callers mutate nothing until Save.
	return &a, nil
}

func (r *MemoryRepository) Save(_ context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = *a
	return nil
}

// =============================================================================
// STATIC PRODUCT SOURCE
// =============================================================================

// StaticProducts serves products from a fixed map.
type StaticProducts struct {
	Products map[string]*Product
}

func NewStaticProducts(products ...*Product) *StaticProducts {
	m := make(map[string]*Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &StaticProducts{Products: m}
}

func (s *StaticProducts) Product(_ context.Context, id string) (*Product, error) {
	p, ok := s.Products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}
