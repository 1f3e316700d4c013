package memory

import (
	"context"
	"time"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// OrderRepository implements repository.OrderRepository on a Store.
type OrderRepository struct {
	s *Store
}

// Create quotes the referenced products, builds the order and stores it
// while holding the write lock, so no product update can interleave.
func (r *OrderRepository) Create(_ context.Context, productIDs []string, build repository.QuoteFunc) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	quotes := make(map[string]domain.PriceQuote, len(productIDs))
	for _, id := range productIDs {
		rec, ok := r.s.products[id]
		if !ok {
			continue
		}
		p := rec.value
		quotes[id] = domain.PriceQuote{
			ProductID:   p.ID,
			Title:       p.Title,
			Price:       p.Price,
			ImageURL:    p.ImageURL,
			FarmerID:    p.FarmerID,
			IsAvailable: p.IsAvailable,
		}
	}

	o, err := build(quotes)
	if err != nil {
		return nil, err
	}

	stored := *o
	stored.Customer = nil
	stored.Items = make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		stored.Items[i] = domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	r.s.orders[o.ID] = record[domain.Order]{value: stored, seq: r.s.next()}
	return o, nil
}

// GetByID retrieves an order with items linked to current products.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	o := r.s.hydrateOrderLocked(rec.value)
	return &o, nil
}

// hydrateOrderLocked copies the order, links each item to its current product
// and attaches the customer.
func (s *Store) hydrateOrderLocked(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity}
		var linked *domain.ItemProduct
		if rec, ok := s.products[item.ProductID]; ok {
			p := rec.value
			linked = &domain.ItemProduct{
				ID:       p.ID,
				Title:    p.Title,
				Price:    p.Price,
				ImageURL: p.ImageURL,
				FarmerID: p.FarmerID,
			}
		}
		items[i].LinkProduct(linked)
	}
	o.Items = items

	o.Customer = nil
	if rec, ok := s.users[o.UserID]; ok {
		u := rec.value
		o.Customer = &domain.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return o
}

// List returns orders matching filter, newest first.
func (r *OrderRepository) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	r.s.mu.RLock()
	matched := make([]record[domain.Order], 0, len(r.s.orders))
	for _, rec := range r.s.orders {
		if filter.UserID != nil && rec.value.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && rec.value.Status != *filter.Status {
			continue
		}
		matched = append(matched, record[domain.Order]{value: r.s.hydrateOrderLocked(rec.value), seq: rec.seq})
	}
	r.s.mu.RUnlock()

	return newestFirst(matched, func(o *domain.Order) time.Time { return o.CreatedAt }), nil
}

// UpdateStatus moves the order from from to to, failing with a stale-order
// conflict if the stored status is no longer from.
func (r *OrderRepository) UpdateStatus(_ context.Context, id, from, to string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.orders[id]
	if !ok {
		return apperrors.NotFound("order", id)
	}
	if rec.value.Status != from {
		return repository.StaleOrder()
	}
	rec.value.Status = to
	rec.value.UpdatedAt = time.Now().UTC()
	r.s.orders[id] = rec
	return nil
}

// HasOrderedProduct reports whether userID placed any order containing productID.
func (r *OrderRepository) HasOrderedProduct(_ context.Context, userID, productID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.orders {
		if rec.value.UserID == userID && rec.value.ContainsProduct(productID) {
			return true, nil
		}
	}
	return false, nil
}

// Tally counts orders by status and sums Delivered revenue.
func (r *OrderRepository) Tally(_ context.Context) (domain.OrderCounts, domain.Money, error) {
	r.s.mu.RLock()
	orders := make([]domain.Order, 0, len(r.s.orders))
	for _, rec := range r.s.orders {
		orders = append(orders, rec.value)
	}
	r.s.mu.RUnlock()

	counts, revenue := domain.TallyOrders(orders)
	return counts, revenue, nil
}
