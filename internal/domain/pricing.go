package domain

import (
	"errors"
	"fmt"
)

// ErrUnavailableProduct is returned when a line item references a product that
// is missing or not available.
var ErrUnavailableProduct = errors.New("product unavailable")

// ErrTotalOverflow is returned when an order total does not fit in Money.
var ErrTotalOverflow = errors.New("order total is too large")

// MaxQuantity caps the quantity of a single line item.
const MaxQuantity = 1_000_000

// PriceItems resolves lines against quotes and returns the order items, in
// request order, with the total Σ quantity × current price. Any missing or
// unavailable product fails the whole order.
func PriceItems(lines []LineItem, quotes map[string]PriceQuote) ([]OrderItem, Money, error) {
	items := make([]OrderItem, 0, len(lines))
	var total Money
	for _, line := range lines {
		q, ok := quotes[line.ProductID]
		if !ok || !q.IsAvailable {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnavailableProduct, line.ProductID)
		}
		item := OrderItem{ProductID: line.ProductID, Quantity: line.Quantity}
		item.LinkProduct(&ItemProduct{
			ID:       q.ProductID,
			Title:    q.Title,
			Price:    q.Price,
			ImageURL: q.ImageURL,
			FarmerID: q.FarmerID,
		})
		items = append(items, item)

		subtotal, ok := q.Price.Times(line.Quantity)
		if !ok {
			return nil, 0, ErrTotalOverflow
		}
		if total, ok = total.Plus(subtotal); !ok {
			return nil, 0, ErrTotalOverflow
		}
	}
	return items, total, nil
}

// ProductIDs returns the distinct product IDs referenced by lines, in first
// appearance order.
func ProductIDs(lines []LineItem) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}
