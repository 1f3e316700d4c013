package service

import (
	"context"
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

// ReviewService gates review submission on a qualifying order and enforces one
// review per (product, customer).
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	guard    repository.ReviewGuard
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service. guard may be nil.
func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	guard repository.ReviewGuard,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		orders:   orders,
		guard:    guard,
		producer: producer,
		logger:   logger,
	}
}

// CreateReviewInput holds the parameters for submitting a review.
type CreateReviewInput struct {
	ProductID string
	Rating    int
	Comment   string
}

// ProductReviews is a product's review list with its rating summary.
type ProductReviews struct {
	Reviews []domain.Review      `json:"reviews"`
	Summary domain.RatingSummary `json:"summary"`
}

// CreateReview stores a review if the customer has ordered the product and has
// not reviewed it yet.
func (s *ReviewService) CreateReview(ctx context.Context, actor *policy.Actor, input CreateReviewInput) (*domain.Review, error) {
	if err := authorize(ctx, s.logger, actor, policy.CreateReview, policy.None); err != nil {
		return nil, err
	}

	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("productId is required")
	}
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidRating(fmt.Sprintf("rating must be an integer between %d and %d", domain.MinRating, domain.MaxRating))
	}

	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("get product for review: %w", err)
	}

	ordered, err := s.orders.HasOrderedProduct(ctx, actor.ID, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check qualifying order: %w", err)
	}
	if !ordered {
		return nil, noQualifyingOrder(ctx, s.logger, actor)
	}

	if s.guard != nil {
		release, err := s.acquire(ctx, input.ProductID, actor.ID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	exists, err := s.reviews.Exists(ctx, input.ProductID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return nil, repository.DuplicateReview()
	}

	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		UserID:    actor.ID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	reviewsCreated.Inc()

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.String("user_id", review.UserID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// acquire claims the guard for the pair. A held lease means another submission
// is in flight and is reported as a duplicate. Guard failures are logged and
// the store's unique constraint remains the arbiter.
func (s *ReviewService) acquire(ctx context.Context, productID, userID string) (func(), error) {
	ok, err := s.guard.Acquire(ctx, productID, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "review guard unavailable",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return func() {}, nil
	}
	if !ok {
		return nil, repository.DuplicateReview()
	}
	return func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), productID, userID); err != nil {
			s.logger.WarnContext(ctx, "failed to release review guard",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}, nil
}

// ListProductReviews returns a product's reviews, newest first, with reviewer
// names and the rating summary. It is public.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID string) (*ProductReviews, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product reviews: %w", err)
	}
	return &ProductReviews{Reviews: reviews, Summary: domain.SummarizeRatings(reviews)}, nil
}

// ListOwnReviews returns the customer's reviews with product title and price.
func (s *ReviewService) ListOwnReviews(ctx context.Context, actor *policy.Actor) ([]domain.Review, error) {
	if err := authorize(ctx, s.logger, actor, policy.ListOwnReviews, policy.None); err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list own reviews: %w", err)
	}
	return reviews, nil
}
