package repository

import (
	"context"

	"github.com/utafrali/FarmMarket/internal/domain"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	// Create inserts a user. A taken email yields an EMAIL_TAKEN conflict.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns users matching filter, newest first, with the total count.
	List(ctx context.Context, filter domain.UserFilter, limit, offset int) ([]domain.User, int, error)

	// UpdateProfile changes name and email only.
	UpdateProfile(ctx context.Context, id, name, email string) error

	// SetApproval sets the isApproved flag.
	SetApproval(ctx context.Context, id string, approved bool) error

	// SetBlocked sets the isBlocked flag.
	SetBlocked(ctx context.Context, id string, blocked bool) error

	// Delete hard-deletes a user.
	Delete(ctx context.Context, id string) error

	// Counts aggregates accounts by role and moderation state.
	Counts(ctx context.Context) (domain.UserCounts, error)
}

// ProductRepository defines persistence operations for the catalog.
type ProductRepository interface {
	// Create inserts a product.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product with its farmer summary.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns products matching filter, newest first, with farmer summaries.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)

	// Update persists the mutable fields of product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete hard-deletes a product. Order line items keep the dangling reference.
	Delete(ctx context.Context, id string) error

	// Count returns the number of products.
	Count(ctx context.Context) (int, error)
}

// QuoteFunc turns the price quotes read at order time into the order to persist.
type QuoteFunc func(quotes map[string]domain.PriceQuote) (*domain.Order, error)

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Create reads quotes for productIDs, calls build, and inserts the order it
	// returns. The read and the insert are atomic: no product edit can slip
	// between the availability check and the persist. Any error from build
	// aborts the insert.
	Create(ctx context.Context, productIDs []string, build QuoteFunc) (*domain.Order, error)

	// GetByID retrieves an order with its items linked to current products.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching filter, newest first, with linked items and
	// customer summaries.
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)

	// UpdateStatus moves an order from status from to status to. If the stored
	// status is no longer from, it fails with a STALE_ORDER conflict.
	UpdateStatus(ctx context.Context, id, from, to string) error

	// HasOrderedProduct reports whether userID has any order, in any status,
	// containing productID.
	HasOrderedProduct(ctx context.Context, userID, productID string) (bool, error)

	// Tally counts all orders by status and sums revenue over Delivered orders.
	Tally(ctx context.Context) (domain.OrderCounts, domain.Money, error)
}

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	// Create inserts a review. A second review for the same (product, user)
	// pair yields a DUPLICATE_REVIEW conflict.
	Create(ctx context.Context, review *domain.Review) error

	// Exists reports whether userID already reviewed productID.
	Exists(ctx context.Context, productID, userID string) (bool, error)

	// ListByProduct returns a product's reviews, newest first, with reviewer names.
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)

	// ListByUser returns a user's reviews, newest first, with product title and price.
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)
}

// ReviewGuard serializes concurrent review submissions for one (product, user) pair.
type ReviewGuard interface {
	// Acquire claims the pair. It returns false if another submission holds it.
	Acquire(ctx context.Context, productID, userID string) (bool, error)

	// Release frees the pair.
	Release(ctx context.Context, productID, userID string) error
}
