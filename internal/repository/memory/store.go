// Package memory provides a single-process implementation of the repository
// interfaces. One mutex guards every collection, so each method is atomic with
// respect to all others, including order creation across several products.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository"
)

var (
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.ProductRepository = (*ProductRepository)(nil)
	_ repository.OrderRepository   = (*OrderRepository)(nil)
	_ repository.ReviewRepository  = (*ReviewRepository)(nil)
)

type record[T any] struct {
	value T
	seq   uint64
}

// Store holds users, products, orders and reviews in memory.
type Store struct {
	mu       sync.RWMutex
	seq      uint64
	users    map[string]record[domain.User]
	products map[string]record[domain.Product]
	orders   map[string]record[domain.Order]
	reviews  map[string]record[domain.Review]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]record[domain.User]),
		products: make(map[string]record[domain.Product]),
		orders:   make(map[string]record[domain.Order]),
		reviews:  make(map[string]record[domain.Review]),
	}
}

// Users returns the store's user repository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Products returns the store's product repository.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Orders returns the store's order repository.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Reviews returns the store's review repository.
func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{s: s} }

// next must be called with mu held for writing.
func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

// newestFirst orders records by creation time, then by insertion order, both descending.
func newestFirst[T any](records []record[T], createdAt func(*T) time.Time) []T {
	sort.Slice(records, func(i, j int) bool {
		ti, tj := createdAt(&records[i].value), createdAt(&records[j].value)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].seq > records[j].seq
	})
	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, r.value)
	}
	return out
}
