package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository"
	"github.com/utafrali/FarmMarket/pkg/database"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// Orders are read with items and the customer in a single query. Each item
// carries the current product, or NULL once the product has been deleted.
// Item prices are emitted in major units, the JSON form of domain.Money.
const orderSelect = `
		SELECT
			o.id, o.user_id, o.total_amount, o.status, o.created_at, o.updated_at,
			c.id, c.name, c.email,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'productId', oi.product_id,
						'quantity', oi.quantity,
						'product', CASE WHEN p.id IS NULL THEN NULL ELSE JSONB_BUILD_OBJECT(
							'id', p.id,
							'title', p.title,
							'price', p.price::NUMERIC / 100,
							'imageUrl', p.image_url,
							'farmerId', p.farmer_id
						) END
					) ORDER BY oi.position
				) FILTER (WHERE oi.order_id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN users c ON c.id = o.user_id
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN products p ON p.id = oi.product_id`

const orderGroupBy = ` GROUP BY o.id, c.id`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create locks the referenced products FOR SHARE, prices the order from that
// snapshot and inserts it with its items, all in one transaction. A concurrent
// product update blocks until the order commits or rolls back.
func (r *OrderRepository) Create(ctx context.Context, productIDs []string, build repository.QuoteFunc) (_ *domain.Order, err error) {
	quoteQuery := `
		SELECT id, title, price, image_url, farmer_id, is_available
		FROM products
		WHERE id = ANY($1)
		FOR SHARE`

	ctx, end := database.TraceQuery(ctx, "orders.create", quoteQuery)
	defer func() { end(err) }()

	var order *domain.Order
	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		quotes, err := readQuotes(ctx, tx, quoteQuery, productIDs)
		if err != nil {
			return err
		}

		o, err := build(quotes)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO orders (id, user_id, total_amount, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, o.UserID, int64(o.TotalAmount), o.Status, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range o.Items {
			_, err = tx.Exec(ctx, `
				INSERT INTO order_items (order_id, position, product_id, quantity)
				VALUES ($1, $2, $3, $4)`,
				o.ID, i, item.ProductID, item.Quantity,
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// readQuotes skips IDs that are not UUIDs. No product can match them, so they
// surface as unavailable instead of a cast error from the uuid column.
func readQuotes(ctx context.Context, tx pgx.Tx, query string, productIDs []string) (map[string]domain.PriceQuote, error) {
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
	}

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("read product quotes: %w", err)
	}
	defer rows.Close()

	quotes := make(map[string]domain.PriceQuote, len(productIDs))
	for rows.Next() {
		var q domain.PriceQuote
		if err := rows.Scan(&q.ProductID, &q.Title, &q.Price, &q.ImageURL, &q.FarmerID, &q.IsAvailable); err != nil {
			return nil, fmt.Errorf("scan product quote: %w", err)
		}
		quotes[q.ProductID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product quotes: %w", err)
	}
	return quotes, nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	query := orderSelect + ` WHERE o.id = $1` + orderGroupBy

	ctx, end := database.TraceQuery(ctx, "orders.get_by_id", query)
	defer func() { end(err) }()

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o          domain.Order
		customerID *string
		name       *string
		email      *string
		itemsJSON  []byte
	)
	if err := row.Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		&customerID, &name, &email, &itemsJSON,
	); err != nil {
		return nil, err
	}

	if customerID != nil {
		o.Customer = &domain.UserSummary{ID: *customerID, Name: deref(name), Email: deref(email)}
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	for i := range o.Items {
		o.Items[i].LinkProduct(o.Items[i].Product)
	}
	return &o, nil
}

// List returns orders matching filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) (_ []domain.Order, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argIndex))
		args = append(args, *filter.Status)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := orderSelect + whereClause + orderGroupBy + ` ORDER BY o.created_at DESC`

	ctx, end := database.TraceQuery(ctx, "orders.list", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// UpdateStatus sets the status only if it is still from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, from, to string) (err error) {
	query := `UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	ctx, end := database.TraceQuery(ctx, "orders.update_status", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err = r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return apperrors.NotFound("order", id)
	}
	return repository.StaleOrder()
}

// HasOrderedProduct reports whether the user has any order containing the product.
func (r *OrderRepository) HasOrderedProduct(ctx context.Context, userID, productID string) (_ bool, err error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2
		)`

	ctx, end := database.TraceQuery(ctx, "orders.has_ordered_product", query)
	defer func() { end(err) }()

	var ok bool
	if err = r.pool.QueryRow(ctx, query, userID, productID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check ordered product: %w", err)
	}
	return ok, nil
}

// Tally counts orders by status and sums Delivered revenue.
func (r *OrderRepository) Tally(ctx context.Context) (_ domain.OrderCounts, _ domain.Money, err error) {
	query := `
		SELECT status, count(*), COALESCE(SUM(total_amount), 0)::BIGINT
		FROM orders
		GROUP BY status`

	ctx, end := database.TraceQuery(ctx, "orders.tally", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return domain.OrderCounts{}, 0, fmt.Errorf("tally orders: %w", err)
	}
	defer rows.Close()

	counts := domain.OrderCounts{ByStatus: map[string]int{}}
	var revenue domain.Money
	for rows.Next() {
		var (
			status string
			n      int
			sum    domain.Money
		)
		if err := rows.Scan(&status, &n, &sum); err != nil {
			return domain.OrderCounts{}, 0, fmt.Errorf("scan order tally: %w", err)
		}
		counts.ByStatus[status] = n
		counts.Total += n
		if status == domain.OrderStatusDelivered {
			revenue = sum
		}
	}
	if err := rows.Err(); err != nil {
		return domain.OrderCounts{}, 0, fmt.Errorf("iterate order tally: %w", err)
	}

	return counts, revenue, nil
}
