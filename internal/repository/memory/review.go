package memory

import (
	"context"
	"time"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository"
)

// ReviewRepository implements repository.ReviewRepository on a Store.
type ReviewRepository struct {
	s *Store
}

// Create inserts a review, rejecting a second one for the same (product, user) pair.
func (r *ReviewRepository) Create(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.existsLocked(rv.ProductID, rv.UserID) {
		return repository.DuplicateReview()
	}
	stored := *rv
	stored.User, stored.Product = nil, nil
	r.s.reviews[rv.ID] = record[domain.Review]{value: stored, seq: r.s.next()}
	return nil
}

func (r *ReviewRepository) existsLocked(productID, userID string) bool {
	for _, rec := range r.s.reviews {
		if rec.value.ProductID == productID && rec.value.UserID == userID {
			return true
		}
	}
	return false
}

// Exists reports whether userID already reviewed productID.
func (r *ReviewRepository) Exists(_ context.Context, productID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.existsLocked(productID, userID), nil
}

// ListByProduct returns a product's reviews with reviewer names, newest first.
func (r *ReviewRepository) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	r.s.mu.RLock()
	matched := make([]record[domain.Review], 0)
	for _, rec := range r.s.reviews {
		if rec.value.ProductID != productID {
			continue
		}
		rv := rec.value
		if u, ok := r.s.users[rv.UserID]; ok {
			rv.User = &domain.UserSummary{ID: u.value.ID, Name: u.value.Name}
		}
		matched = append(matched, record[domain.Review]{value: rv, seq: rec.seq})
	}
	r.s.mu.RUnlock()

	return newestFirst(matched, func(rv *domain.Review) time.Time { return rv.CreatedAt }), nil
}

// ListByUser returns a user's reviews with product title and price, newest first.
func (r *ReviewRepository) ListByUser(_ context.Context, userID string) ([]domain.Review, error) {
	r.s.mu.RLock()
	matched := make([]record[domain.Review], 0)
	for _, rec := range r.s.reviews {
		if rec.value.UserID != userID {
			continue
		}
		rv := rec.value
		if p, ok := r.s.products[rv.ProductID]; ok {
			rv.Product = &domain.ReviewProduct{ID: p.value.ID, Title: p.value.Title, Price: p.value.Price}
		}
		matched = append(matched, record[domain.Review]{value: rv, seq: rec.seq})
	}
	r.s.mu.RUnlock()

	return newestFirst(matched, func(rv *domain.Review) time.Time { return rv.CreatedAt }), nil
}
