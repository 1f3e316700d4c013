package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/event"
	"github.com/utafrali/FarmMarket/internal/policy"
	"github.com/utafrali/FarmMarket/internal/repository"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// ProductService implements catalog operations.
type ProductService struct {
	products repository.ProductRepository
	users    repository.UserRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, users repository.UserRepository, producer *event.Producer, logger *slog.Logger) *ProductService {
	return &ProductService{
		products: products,
		users:    users,
		producer: producer,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Title       string
	Description string
	Price       domain.Money
	Category    string
	ImageURL    string
	IsAvailable *bool
	// FarmerID is only honored for admins creating on a farmer's behalf.
	FarmerID string
}

// ListProducts returns the public catalog: products of approved, unblocked
// farmers only.
func (s *ProductService) ListProducts(ctx context.Context, category, search string) ([]domain.Product, error) {
	filter := domain.ProductFilter{ListableOnly: true}
	if category != "" {
		filter.Category = &category
	}
	if search = strings.TrimSpace(search); search != "" {
		filter.Search = &search
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct returns a product. Unlisted products are visible only to their
// owner and to admins.
func (s *ProductService) GetProduct(ctx context.Context, actor *policy.Actor, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !p.IsListable() && !actor.IsAdmin() && (actor == nil || !p.IsOwnedBy(actor.ID)) {
		return nil, apperrors.NotFound("product", id)
	}
	return p, nil
}

// CreateProduct lists a new product. Farmers always own what they create;
// admins must name an existing farmer.
func (s *ProductService) CreateProduct(ctx context.Context, actor *policy.Actor, input CreateProductInput) (*domain.Product, error) {
	if err := authorize(ctx, s.logger, actor, policy.CreateProduct, policy.None); err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}

	farmerID := actor.ID
	if actor.IsAdmin() {
		if err := s.requireFarmer(ctx, input.FarmerID); err != nil {
			return nil, err
		}
		farmerID = input.FarmerID
	}

	available := true
	if input.IsAvailable != nil {
		available = *input.IsAvailable
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		IsAvailable: available,
		FarmerID:    farmerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, actor.ID, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("farmer_id", p.FarmerID),
		slog.String("price", p.Price.String()),
	)

	return p, nil
}

func (s *ProductService) requireFarmer(ctx context.Context, farmerID string) error {
	if farmerID == "" {
		return apperrors.InvalidInput("farmerId is required when an admin creates a product")
	}
	u, err := s.users.GetByID(ctx, farmerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput("farmerId must reference an existing farmer")
		}
		return fmt.Errorf("get farmer: %w", err)
	}
	if u.Role != domain.RoleFarmer {
		return apperrors.InvalidInput("farmerId must reference an existing farmer")
	}
	return nil
}

// UpdateProduct applies a partial update. Only the owning farmer or an admin may
// update, and the owner never changes.
func (s *ProductService) UpdateProduct(ctx context.Context, actor *policy.Actor, id string, patch domain.ProductPatch) (*domain.Product, error) {
	if err := precheck(ctx, s.logger, actor, policy.UpdateProduct); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if err := authorize(ctx, s.logger, actor, policy.UpdateProduct, policy.ProductTarget(p)); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return nil, apperrors.InvalidInput("at least one field must be provided")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.InvalidInput("title must not be empty")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}

	patch.Apply(p)
	p.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, actor.ID, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", p.ID),
		slog.String("actor_id", actor.ID),
	)

	return p, nil
}

// DeleteProduct hard-deletes a product. Existing orders keep their line items.
func (s *ProductService) DeleteProduct(ctx context.Context, actor *policy.Actor, id string) error {
	if err := precheck(ctx, s.logger, actor, policy.DeleteProduct); err != nil {
		return err
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if err := authorize(ctx, s.logger, actor, policy.DeleteProduct, policy.ProductTarget(p)); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, actor.ID, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", p.ID),
		slog.String("actor_id", actor.ID),
	)

	return nil
}

// DeleteOwnProduct is the farmer-area delete: the caller must be a farmer and
// the product must be theirs.
func (s *ProductService) DeleteOwnProduct(ctx context.Context, actor *policy.Actor, id string) error {
	if err := authorize(ctx, s.logger, actor, policy.ListOwnProducts, policy.None); err != nil {
		return err
	}
	return s.DeleteProduct(ctx, actor, id)
}

// ListOwnProducts returns the farmer's products, newest first, whatever their
// availability or moderation state.
func (s *ProductService) ListOwnProducts(ctx context.Context, actor *policy.Actor) ([]domain.Product, error) {
	if err := authorize(ctx, s.logger, actor, policy.ListOwnProducts, policy.None); err != nil {
		return nil, err
	}

	products, err := s.products.List(ctx, domain.ProductFilter{FarmerID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("list own products: %w", err)
	}
	return products, nil
}

// ListAllProducts returns every product with its farmer's moderation flags.
func (s *ProductService) ListAllProducts(ctx context.Context, actor *policy.Actor) ([]domain.Product, error) {
	if err := authorize(ctx, s.logger, actor, policy.ListAllProducts, policy.None); err != nil {
		return nil, err
	}

	products, err := s.products.List(ctx, domain.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	return products, nil
}
