package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/policy"
	"github.com/utafrali/FarmMarket/internal/repository"
)

// StatsService computes the farmer and customer dashboards.
type StatsService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	reviews  repository.ReviewRepository
	logger   *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(products repository.ProductRepository, orders repository.OrderRepository, reviews repository.ReviewRepository, logger *slog.Logger) *StatsService {
	return &StatsService{
		products: products,
		orders:   orders,
		reviews:  reviews,
		logger:   logger,
	}
}

// FarmerStats counts the farmer's products and the orders that contain at least
// one of them. Revenue sums those orders once Delivered.
func (s *StatsService) FarmerStats(ctx context.Context, actor *policy.Actor) (*domain.FarmerStats, error) {
	if err := authorize(ctx, s.logger, actor, policy.ViewFarmerStats, policy.None); err != nil {
		return nil, err
	}

	products, err := s.products.List(ctx, domain.ProductFilter{FarmerID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("list farmer products: %w", err)
	}

	all, err := s.orders.List(ctx, domain.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	involved := make([]domain.Order, 0, len(all))
	for _, o := range all {
		if o.InvolvesFarmer(actor.ID) {
			involved = append(involved, o)
		}
	}
	counts, revenue := domain.TallyOrders(involved)

	return &domain.FarmerStats{
		Products: domain.ProductCounts{Total: len(products)},
		Orders:   counts,
		Revenue:  revenue,
	}, nil
}

// CustomerStats counts the customer's orders and reviews. TotalSpent sums
// Delivered orders only.
func (s *StatsService) CustomerStats(ctx context.Context, actor *policy.Actor) (*domain.CustomerStats, error) {
	if err := authorize(ctx, s.logger, actor, policy.ViewCustomerStats, policy.None); err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, domain.OrderFilter{UserID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("list customer orders: %w", err)
	}
	counts, spent := domain.TallyOrders(orders)

	reviews, err := s.reviews.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list customer reviews: %w", err)
	}

	return &domain.CustomerStats{
		Orders:     counts,
		Reviews:    domain.ReviewCounts{Total: len(reviews)},
		TotalSpent: spent,
	}, nil
}
