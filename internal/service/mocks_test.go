package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/event"
	"github.com/utafrali/FarmMarket/internal/policy"
	"github.com/utafrali/FarmMarket/internal/repository"
	pkgkafka "github.com/utafrali/FarmMarket/pkg/kafka"
)

// --- Mock Repositories ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, filter domain.UserFilter, limit, offset int) ([]domain.User, int, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	return m.Called(ctx, id, name, email).Error(0)
}

func (m *mockUserRepository) SetApproval(ctx context.Context, id string, approved bool) error {
	return m.Called(ctx, id, approved).Error(0)
}

func (m *mockUserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return m.Called(ctx, id, blocked).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) Counts(ctx context.Context) (domain.UserCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.UserCounts), args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// mockOrderRepository runs the build callback against the configured quotes so
// tests exercise pricing the way the stores do.
type mockOrderRepository struct {
	mock.Mock
	quotes map[string]domain.PriceQuote
}

func (m *mockOrderRepository) Create(ctx context.Context, productIDs []string, build repository.QuoteFunc) (*domain.Order, error) {
	args := m.Called(ctx, productIDs)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return build(m.quotes)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockOrderRepository) HasOrderedProduct(ctx context.Context, userID, productID string) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepository) Tally(ctx context.Context) (domain.OrderCounts, domain.Money, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.OrderCounts), args.Get(1).(domain.Money), args.Error(2)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	return m.Called(ctx, rv).Error(0)
}

func (m *mockReviewRepository) Exists(ctx context.Context, productID, userID string) (bool, error) {
	args := m.Called(ctx, productID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

type mockReviewGuard struct {
	mock.Mock
}

func (m *mockReviewGuard) Acquire(ctx context.Context, productID, userID string) (bool, error) {
	args := m.Called(ctx, productID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewGuard) Release(ctx context.Context, productID, userID string) error {
	return m.Called(ctx, productID, userID).Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer() *event.Producer {
	return event.NewProducer(pkgkafka.NopPublisher{}, newTestLogger())
}

func strPtr(s string) *string { return &s }

func moneyPtr(m domain.Money) *domain.Money { return &m }

func boolPtr(b bool) *bool { return &b }

var (
	adminActor    = &policy.Actor{ID: "admin-1", Role: domain.RoleAdmin, IsApproved: true}
	farmerActor   = &policy.Actor{ID: "farmer-1", Role: domain.RoleFarmer, IsApproved: true}
	otherFarmer   = &policy.Actor{ID: "farmer-2", Role: domain.RoleFarmer, IsApproved: true}
	customerActor = &policy.Actor{ID: "cust-1", Role: domain.RoleCustomer, IsApproved: true}
)

func linkedItem(productID, farmerID string, price domain.Money, qty int) domain.OrderItem {
	item := domain.OrderItem{ProductID: productID, Quantity: qty}
	item.LinkProduct(&domain.ItemProduct{ID: productID, Title: productID, Price: price, FarmerID: farmerID})
	return item
}
