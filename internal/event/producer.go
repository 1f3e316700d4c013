package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/FarmMarket/internal/domain"
	pkgkafka "github.com/utafrali/FarmMarket/pkg/kafka"
	"github.com/utafrali/FarmMarket/pkg/logger"
)

// Kafka topics, one per aggregate.
const (
	TopicOrders   = "farmmarket.orders"
	TopicReviews  = "farmmarket.reviews"
	TopicProducts = "farmmarket.products"
	TopicUsers    = "farmmarket.users"
)

// Event types.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeReviewCreated      = "review.created"
	TypeProductCreated     = "product.created"
	TypeProductUpdated     = "product.updated"
	TypeProductDeleted     = "product.deleted"
	TypeUserModerated      = "user.moderated"
	TypeUserDeleted        = "user.deleted"
)

// Aggregate types.
const (
	AggregateOrder   = "order"
	AggregateReview  = "review"
	AggregateProduct = "product"
	AggregateUser    = "user"
)

// Source identifies events emitted by this service.
const Source = "farmmarket"

// OrderCreatedData is the payload for order.created.
type OrderCreatedData struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Status      string          `json:"status"`
	Items       []OrderItemData `json:"items"`
	TotalAmount domain.Money    `json:"totalAmount"`
}

// OrderItemData is one priced line of an order.created payload.
type OrderItemData struct {
	ProductID string       `json:"productId"`
	FarmerID  string       `json:"farmerId"`
	Title     string       `json:"title"`
	Price     domain.Money `json:"price"`
	Quantity  int          `json:"quantity"`
}

// OrderStatusChangedData is the payload for order.status_changed.
type OrderStatusChangedData struct {
	OrderID   string `json:"orderId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
}

// ReviewCreatedData is the payload for review.created.
type ReviewCreatedData struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
	Rating    int    `json:"rating"`
}

// ProductData is the payload for product.created and product.updated.
type ProductData struct {
	ID          string       `json:"id"`
	FarmerID    string       `json:"farmerId"`
	Title       string       `json:"title"`
	Price       domain.Money `json:"price"`
	Category    string       `json:"category"`
	IsAvailable bool         `json:"isAvailable"`
}

// ProductDeletedData is the payload for product.deleted.
type ProductDeletedData struct {
	ID       string `json:"id"`
	FarmerID string `json:"farmerId"`
}

// UserModeratedData is the payload for user.moderated. Field is either
// "isApproved" or "isBlocked".
type UserModeratedData struct {
	UserID string `json:"userId"`
	Field  string `json:"field"`
	Value  bool   `json:"value"`
}

// UserDeletedData is the payload for user.deleted.
type UserDeletedData struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Producer publishes marketplace domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType, actorID string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	event.WithActor(actorID)
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishOrderCreated publishes order.created with the priced items.
func (p *Producer) PublishOrderCreated(ctx context.Context, actorID string, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			items[i].FarmerID = item.Product.FarmerID
			items[i].Price = item.Product.Price
		}
	}

	data := OrderCreatedData{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		Items:       items,
		TotalAmount: order.TotalAmount,
	}
	return p.publish(ctx, TopicOrders, TypeOrderCreated, order.ID, AggregateOrder, actorID, data)
}

// PublishOrderStatusChanged publishes order.status_changed.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, actorID, orderID, oldStatus, newStatus string) error {
	data := OrderStatusChangedData{OrderID: orderID, OldStatus: oldStatus, NewStatus: newStatus}
	return p.publish(ctx, TopicOrders, TypeOrderStatusChanged, orderID, AggregateOrder, actorID, data)
}

// PublishReviewCreated publishes review.created.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
	}
	return p.publish(ctx, TopicReviews, TypeReviewCreated, review.ID, AggregateReview, review.UserID, data)
}

// PublishProductCreated publishes product.created.
func (p *Producer) PublishProductCreated(ctx context.Context, actorID string, product *domain.Product) error {
	return p.publish(ctx, TopicProducts, TypeProductCreated, product.ID, AggregateProduct, actorID, productData(product))
}

// PublishProductUpdated publishes product.updated with the new state.
func (p *Producer) PublishProductUpdated(ctx context.Context, actorID string, product *domain.Product) error {
	return p.publish(ctx, TopicProducts, TypeProductUpdated, product.ID, AggregateProduct, actorID, productData(product))
}

func productData(product *domain.Product) ProductData {
	return ProductData{
		ID:          product.ID,
		FarmerID:    product.FarmerID,
		Title:       product.Title,
		Price:       product.Price,
		Category:    product.Category,
		IsAvailable: product.IsAvailable,
	}
}

// PublishProductDeleted publishes product.deleted.
func (p *Producer) PublishProductDeleted(ctx context.Context, actorID string, product *domain.Product) error {
	data := ProductDeletedData{ID: product.ID, FarmerID: product.FarmerID}
	return p.publish(ctx, TopicProducts, TypeProductDeleted, product.ID, AggregateProduct, actorID, data)
}

// PublishUserModerated publishes user.moderated for an approval or block change.
func (p *Producer) PublishUserModerated(ctx context.Context, actorID, userID, field string, value bool) error {
	data := UserModeratedData{UserID: userID, Field: field, Value: value}
	return p.publish(ctx, TopicUsers, TypeUserModerated, userID, AggregateUser, actorID, data)
}

// PublishUserDeleted publishes user.deleted.
func (p *Producer) PublishUserDeleted(ctx context.Context, actorID string, user *domain.User) error {
	data := UserDeletedData{UserID: user.ID, Role: user.Role}
	return p.publish(ctx, TopicUsers, TypeUserDeleted, user.ID, AggregateUser, actorID, data)
}
