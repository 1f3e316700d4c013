package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/pkg/database"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// Products are always read joined with their farmer; the farmer columns are
// NULL when the account no longer exists.
const productSelect = `
		SELECT p.id, p.title, p.description, p.price, p.category, p.image_url,
			p.is_available, p.farmer_id, p.created_at, p.updated_at,
			u.id, u.name, u.email, u.is_approved, u.is_blocked
		FROM products p
		LEFT JOIN users u ON u.id = p.farmer_id`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, title, description, price, category, image_url, is_available, farmer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, end := database.TraceQuery(ctx, "products.create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, int64(p.Price), p.Category, p.ImageURL,
		p.IsAvailable, p.FarmerID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := productSelect + ` WHERE p.id = $1`

	ctx, end := database.TraceQuery(ctx, "products.get_by_id", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p          domain.Product
		farmerID   *string
		farmerName *string
		email      *string
		approved   *bool
		blocked    *bool
	)
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Category, &p.ImageURL,
		&p.IsAvailable, &p.FarmerID, &p.CreatedAt, &p.UpdatedAt,
		&farmerID, &farmerName, &email, &approved, &blocked,
	); err != nil {
		return nil, err
	}
	if farmerID != nil {
		p.Farmer = &domain.FarmerSummary{
			ID:         *farmerID,
			Name:       deref(farmerName),
			Email:      deref(email),
			IsApproved: approved != nil && *approved,
			IsBlocked:  blocked != nil && *blocked,
		}
	}
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// List returns products matching filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) (_ []domain.Product, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.FarmerID != nil {
		conditions = append(conditions, fmt.Sprintf("p.farmer_id = $%d", argIndex))
		args = append(args, *filter.FarmerID)
		argIndex++
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("p.category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}
	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("p.title ILIKE '%%' || $%d || '%%'", argIndex))
		args = append(args, *filter.Search)
		argIndex++
	}
	if filter.ListableOnly {
		conditions = append(conditions, "u.is_approved AND NOT u.is_blocked")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := productSelect + whereClause + ` ORDER BY p.created_at DESC`

	ctx, end := database.TraceQuery(ctx, "products.list", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// Update persists the mutable fields of a product. farmer_id is never written.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	query := `
		UPDATE products
		SET title = $2, description = $3, price = $4, category = $5,
			image_url = $6, is_available = $7, updated_at = $8
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.update", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, int64(p.Price), p.Category,
		p.ImageURL, p.IsAvailable, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.delete", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// Count returns the number of products.
func (r *ProductRepository) Count(ctx context.Context) (_ int, err error) {
	query := `SELECT count(*) FROM products`

	ctx, end := database.TraceQuery(ctx, "products.count", query)
	defer func() { end(err) }()

	var n int
	if err = r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
