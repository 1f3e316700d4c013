package memory

import (
	"context"
	"strings"
	"time"

	"github.com/utafrali/FarmMarket/internal/domain"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// ProductRepository implements repository.ProductRepository on a Store.
type ProductRepository struct {
	s *Store
}

// Create inserts a product.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *p
	stored.Farmer = nil
	r.s.products[p.ID] = record[domain.Product]{value: stored, seq: r.s.next()}
	return nil
}

// GetByID retrieves a product joined with its farmer.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	p := r.s.withFarmerLocked(rec.value)
	return &p, nil
}

func (s *Store) withFarmerLocked(p domain.Product) domain.Product {
	p.Farmer = nil
	if rec, ok := s.users[p.FarmerID]; ok {
		u := rec.value
		p.Farmer = &domain.FarmerSummary{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			IsApproved: u.IsApproved,
			IsBlocked:  u.IsBlocked,
		}
	}
	return p
}

// List returns products matching filter, newest first.
func (r *ProductRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.s.mu.RLock()
	matched := make([]record[domain.Product], 0, len(r.s.products))
	for _, rec := range r.s.products {
		p := r.s.withFarmerLocked(rec.value)
		if !matchesProduct(filter, &p) {
			continue
		}
		matched = append(matched, record[domain.Product]{value: p, seq: rec.seq})
	}
	r.s.mu.RUnlock()

	return newestFirst(matched, func(p *domain.Product) time.Time { return p.CreatedAt }), nil
}

func matchesProduct(f domain.ProductFilter, p *domain.Product) bool {
	if f.FarmerID != nil && p.FarmerID != *f.FarmerID {
		return false
	}
	if f.Category != nil && p.Category != *f.Category {
		return false
	}
	if f.Search != nil && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(*f.Search)) {
		return false
	}
	if f.ListableOnly && !p.IsListable() {
		return false
	}
	return true
}

// Update persists the mutable fields of a product. The owner is never changed.
func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.products[p.ID]
	if !ok {
		return apperrors.NotFound("product", p.ID)
	}
	v := &rec.value
	v.Title = p.Title
	v.Description = p.Description
	v.Price = p.Price
	v.Category = p.Category
	v.ImageURL = p.ImageURL
	v.IsAvailable = p.IsAvailable
	v.UpdatedAt = p.UpdatedAt
	r.s.products[p.ID] = rec
	return nil
}

// Delete removes a product. Order items referencing it are left dangling.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	delete(r.s.products, id)
	return nil
}

// Count returns the number of products.
func (r *ProductRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.products), nil
}
