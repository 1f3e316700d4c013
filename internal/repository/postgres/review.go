package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository"
	"github.com/utafrali/FarmMarket/pkg/database"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review. The (product_id, user_id) unique constraint is the
// final arbiter between concurrent submissions.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "reviews.create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query, rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, constraintReviewProduct) {
			return repository.DuplicateReview()
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// Exists reports whether the user already reviewed the product.
func (r *ReviewRepository) Exists(ctx context.Context, productID, userID string) (_ bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE product_id = $1 AND user_id = $2)`

	ctx, end := database.TraceQuery(ctx, "reviews.exists", query)
	defer func() { end(err) }()

	var ok bool
	if err = r.pool.QueryRow(ctx, query, productID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check review exists: %w", err)
	}
	return ok, nil
}

// ListByProduct returns a product's reviews with reviewer names, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) (_ []domain.Review, err error) {
	query := `
		SELECT rv.id, rv.product_id, rv.user_id, rv.rating, rv.comment, rv.created_at, u.name
		FROM reviews rv
		LEFT JOIN users u ON u.id = rv.user_id
		WHERE rv.product_id = $1
		ORDER BY rv.created_at DESC`

	ctx, end := database.TraceQuery(ctx, "reviews.list_by_product", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var (
			rv   domain.Review
			name *string
		)
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &name); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		if name != nil {
			rv.User = &domain.UserSummary{ID: rv.UserID, Name: *name}
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// ListByUser returns a user's reviews with product title and price, newest first.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) (_ []domain.Review, err error) {
	query := `
		SELECT rv.id, rv.product_id, rv.user_id, rv.rating, rv.comment, rv.created_at, p.title, p.price
		FROM reviews rv
		LEFT JOIN products p ON p.id = rv.product_id
		WHERE rv.user_id = $1
		ORDER BY rv.created_at DESC`

	ctx, end := database.TraceQuery(ctx, "reviews.list_by_user", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var (
			rv    domain.Review
			title *string
			price *domain.Money
		)
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &title, &price); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		if title != nil && price != nil {
			rv.Product = &domain.ReviewProduct{ID: rv.ProductID, Title: *title, Price: *price}
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}
