package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/event"
	"github.com/utafrali/FarmMarket/internal/policy"
	"github.com/utafrali/FarmMarket/internal/repository"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// OrderService implements order placement and the status state machine.
type OrderService struct {
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	// strict enforces forward-only transitions with Delivered terminal.
	strict bool
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, producer *event.Producer, logger *slog.Logger, strict bool) *OrderService {
	return &OrderService{
		orders:   orders,
		producer: producer,
		logger:   logger,
		strict:   strict,
	}
}

// CreateOrder prices lines at the current catalog prices and persists the
// order as Pending. Either the whole order is stored or nothing is.
func (s *OrderService) CreateOrder(ctx context.Context, actor *policy.Actor, lines []domain.LineItem) (*domain.Order, error) {
	if err := authorize(ctx, s.logger, actor, policy.CreateOrder, policy.None); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, apperrors.InvalidInput("productId is required for every item")
		}
		if l.Quantity < 1 || l.Quantity > domain.MaxQuantity {
			return nil, apperrors.InvalidQuantity(fmt.Sprintf("quantity must be an integer between 1 and %d", domain.MaxQuantity))
		}
	}

	build := func(quotes map[string]domain.PriceQuote) (*domain.Order, error) {
		items, total, err := domain.PriceItems(lines, quotes)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		return &domain.Order{
			ID:          uuid.New().String(),
			UserID:      actor.ID,
			Items:       items,
			TotalAmount: total,
			Status:      domain.OrderStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}

	order, err := s.orders.Create(ctx, domain.ProductIDs(lines), build)
	if err != nil {
		if errors.Is(err, domain.ErrUnavailableProduct) {
			return nil, apperrors.Conflict(apperrors.CodeUnavailableProduct, "One or more products are unavailable")
		}
		if errors.Is(err, domain.ErrTotalOverflow) {
			return nil, apperrors.InvalidQuantity("order total is too large")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	ordersCreated.Inc()

	if err := s.producer.PublishOrderCreated(ctx, actor.ID, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int("items", len(order.Items)),
		slog.String("total_amount", order.TotalAmount.String()),
	)

	return order, nil
}

// GetOrder returns an order to its customer, an admin, or a farmer owning every item.
func (s *OrderService) GetOrder(ctx context.Context, actor *policy.Actor, id string) (*domain.Order, error) {
	if err := precheck(ctx, s.logger, actor, policy.ViewOrder); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := authorize(ctx, s.logger, actor, policy.ViewOrder, policy.OrderTarget(order)); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOwnOrders returns the customer's orders, newest first.
func (s *OrderService) ListOwnOrders(ctx context.Context, actor *policy.Actor) ([]domain.Order, error) {
	if err := authorize(ctx, s.logger, actor, policy.ListOwnOrders, policy.None); err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, domain.OrderFilter{UserID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("list own orders: %w", err)
	}
	return orders, nil
}

// ListFarmerOrders returns the orders whose every item belongs to the farmer.
// Admins see every order.
func (s *OrderService) ListFarmerOrders(ctx context.Context, actor *policy.Actor, status string) ([]domain.Order, error) {
	if err := authorize(ctx, s.logger, actor, policy.ListFarmerOrders, policy.None); err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, statusFilter(status))
	if err != nil {
		return nil, fmt.Errorf("list farmer orders: %w", err)
	}
	if actor.IsAdmin() {
		return orders, nil
	}

	owned := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.OwnedEntirelyBy(actor.ID) {
			owned = append(owned, o)
		}
	}
	return owned, nil
}

// ListAllOrders returns every order with its customer.
func (s *OrderService) ListAllOrders(ctx context.Context, actor *policy.Actor, status string) ([]domain.Order, error) {
	if err := authorize(ctx, s.logger, actor, policy.ListAllOrders, policy.None); err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, statusFilter(status))
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}

func statusFilter(status string) domain.OrderFilter {
	if status == "" {
		return domain.OrderFilter{}
	}
	return domain.OrderFilter{Status: &status}
}

// UpdateOrderStatus moves an order to status. Only an admin or a farmer owning
// every item may do so. The write is conditional on the status read here, so a
// concurrent change surfaces as a stale-order conflict.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor *policy.Actor, id, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status: %q", status))
	}

	if err := precheck(ctx, s.logger, actor, policy.UpdateOrderStatus); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	if err := authorize(ctx, s.logger, actor, policy.UpdateOrderStatus, policy.OrderTarget(order)); err != nil {
		return nil, err
	}

	if !order.CanTransitionTo(status, s.strict) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot change order status from %s to %s", order.Status, status))
	}

	oldStatus := order.Status
	if err := s.orders.UpdateStatus(ctx, id, oldStatus, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	orderStatusChanges.WithLabelValues(oldStatus, status).Inc()

	order.Status = status
	order.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishOrderStatusChanged(ctx, actor.ID, id, oldStatus, status); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", oldStatus),
		slog.String("new_status", status),
		slog.String("actor_id", actor.ID),
	)

	return order, nil
}
