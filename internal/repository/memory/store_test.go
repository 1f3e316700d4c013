package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// --- Fixtures ---

func seedFarmer(t *testing.T, s *Store, approved bool) *domain.User {
	t.Helper()
	u := domain.NewUser("Fiona", "fiona-"+uuid.NewString()+"@example.com", "hash", domain.RoleFarmer)
	u.IsApproved = approved
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, s *Store, farmerID, title string, price domain.Money) *domain.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &domain.Product{
		ID:          fmt.Sprintf("prod-%s", title),
		Title:       title,
		Price:       price,
		Category:    "Vegetables",
		IsAvailable: true,
		FarmerID:    farmerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Products().Create(context.Background(), p))
	return p
}

func pricedOrder(id, userID string, lines []domain.LineItem) repository.QuoteFunc {
	return func(quotes map[string]domain.PriceQuote) (*domain.Order, error) {
		items, total, err := domain.PriceItems(lines, quotes)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		return &domain.Order{
			ID: id, UserID: userID, Items: items, TotalAmount: total,
			Status: domain.OrderStatusPending, CreatedAt: now, UpdatedAt: now,
		}, nil
	}
}

// --- Users ---

func TestUsers_EmailUniqueAfterNormalization(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Users().Create(ctx, domain.NewUser("A", "a@example.com", "h", domain.RoleCustomer)))
	err := s.Users().Create(ctx, domain.NewUser("B", "  A@Example.com ", "h", domain.RoleCustomer))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmailTaken))

	got, err := s.Users().GetByEmail(ctx, "A@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}

func TestUsers_UpdateProfile(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := domain.NewUser("A", "a@example.com", "h", domain.RoleCustomer)
	b := domain.NewUser("B", "b@example.com", "h", domain.RoleCustomer)
	require.NoError(t, s.Users().Create(ctx, a))
	require.NoError(t, s.Users().Create(ctx, b))

	err := s.Users().UpdateProfile(ctx, a.ID, "A", "b@example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmailTaken))

	require.NoError(t, s.Users().UpdateProfile(ctx, a.ID, "Alice", "a@example.com"))
	got, _ := s.Users().GetByID(ctx, a.ID)
	assert.Equal(t, "Alice", got.Name)

	assert.ErrorIs(t, s.Users().UpdateProfile(ctx, "missing", "x", "x@example.com"), apperrors.ErrNotFound)
}

func TestUsers_ListFiltersAndPaginates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		seedFarmer(t, s, i%2 == 0)
	}
	require.NoError(t, s.Users().Create(ctx, domain.NewUser("C", "c@example.com", "h", domain.RoleCustomer)))

	role, approved := domain.RoleFarmer, true
	users, total, err := s.Users().List(ctx, domain.UserFilter{Role: &role, IsApproved: &approved}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, users, 2)

	users, total, err = s.Users().List(ctx, domain.UserFilter{}, 20, 40)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Empty(t, users)
}

func TestUsers_Counts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedFarmer(t, s, true)
	pending := seedFarmer(t, s, false)
	require.NoError(t, s.Users().SetBlocked(ctx, pending.ID, true))
	require.NoError(t, s.Users().Create(ctx, domain.NewUser("C", "c@example.com", "h", domain.RoleCustomer)))
	require.NoError(t, s.Users().Create(ctx, domain.NewUser("Root", "root@example.com", "h", domain.RoleAdmin)))

	c, err := s.Users().Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UserCounts{Total: 4, Farmers: 2, Customers: 1, PendingFarmers: 1, BlockedUsers: 1}, c)
}

func TestUsers_DeleteMissing(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Users().Delete(context.Background(), "missing"), apperrors.ErrNotFound)
}

// --- Products ---

func TestProducts_ListableOnlyHidesModeratedFarmers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	ok := seedFarmer(t, s, true)
	unapproved := seedFarmer(t, s, false)
	blocked := seedFarmer(t, s, true)
	require.NoError(t, s.Users().SetBlocked(ctx, blocked.ID, true))

	seedProduct(t, s, ok.ID, "Tomato", 50)
	seedProduct(t, s, unapproved.ID, "Banana", 60)
	seedProduct(t, s, blocked.ID, "Apple", 70)
	seedProduct(t, s, "deleted-farmer", "Pear", 80)

	all, err := s.Products().List(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	listable, err := s.Products().List(ctx, domain.ProductFilter{ListableOnly: true})
	require.NoError(t, err)
	require.Len(t, listable, 1)
	assert.Equal(t, "Tomato", listable[0].Title)
	assert.Equal(t, "Fiona", listable[0].Farmer.Name)
}

func TestProducts_ListNewestFirstAndSearch(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFarmer(t, s, true)
	seedProduct(t, s, f.ID, "Organic Tomato", 50)
	seedProduct(t, s, f.ID, "Organic Banana", 60)

	products, err := s.Products().List(ctx, domain.ProductFilter{FarmerID: &f.ID})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Organic Banana", products[0].Title)

	search := "tomato"
	products, err = s.Products().List(ctx, domain.ProductFilter{Search: &search})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Organic Tomato", products[0].Title)
}

func TestProducts_UpdateKeepsOwner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFarmer(t, s, true)
	p := seedProduct(t, s, f.ID, "Tomato", 50)

	changed := *p
	changed.Price = 75
	changed.FarmerID = "someone-else"
	require.NoError(t, s.Products().Update(ctx, &changed))

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(75), got.Price)
	assert.Equal(t, f.ID, got.FarmerID)
}

// --- Orders ---

func TestOrders_CreateAndLinkAfterProductChanges(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFarmer(t, s, true)
	tomato := seedProduct(t, s, f.ID, "Tomato", 50)
	banana := seedProduct(t, s, f.ID, "Banana", 60)
	lines := []domain.LineItem{{ProductID: banana.ID, Quantity: 1}, {ProductID: tomato.ID, Quantity: 3}}

	o, err := s.Orders().Create(ctx, domain.ProductIDs(lines), pricedOrder("order-1", "cust-1", lines))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(210), o.TotalAmount)

	tomato.Price = 999
	require.NoError(t, s.Products().Update(ctx, tomato))
	require.NoError(t, s.Products().Delete(ctx, banana.ID))

	got, err := s.Orders().GetByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(210), got.TotalAmount)
	require.Len(t, got.Items, 2)
	assert.Equal(t, domain.ProductRemovedTitle, got.Items[0].Title)
	assert.Equal(t, domain.Money(999), got.Items[1].Product.Price)
	assert.False(t, got.OwnedEntirelyBy(f.ID))
}

func TestOrders_RejectedCreatePersistsNothing(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFarmer(t, s, true)
	p := seedProduct(t, s, f.ID, "Tomato", 50)
	lines := []domain.LineItem{{ProductID: p.ID, Quantity: 1}, {ProductID: "missing", Quantity: 1}}

	_, err := s.Orders().Create(ctx, domain.ProductIDs(lines), pricedOrder("order-1", "cust-1", lines))
	assert.ErrorIs(t, err, domain.ErrUnavailableProduct)

	orders, err := s.Orders().List(ctx, domain.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrders_UpdateStatusCompareAndSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFarmer(t, s, true)
	p := seedProduct(t, s, f.ID, "Tomato", 50)
	lines := []domain.LineItem{{ProductID: p.ID, Quantity: 1}}
	_, err := s.Orders().Create(ctx, domain.ProductIDs(lines), pricedOrder("order-1", "cust-1", lines))
	require.NoError(t, err)

	require.NoError(t, s.Orders().UpdateStatus(ctx, "order-1", domain.OrderStatusPending, domain.OrderStatusPacked))
	err = s.Orders().UpdateStatus(ctx, "order-1", domain.OrderStatusPending, domain.OrderStatusDelivered)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStaleOrder))
	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, "missing", "Pending", "Packed"), apperrors.ErrNotFound)
}

func TestOrders_ConcurrentCreatesAreAtomic(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFarmer(t, s, true)
	p := seedProduct(t, s, f.ID, "Tomato", 50)
	lines := []domain.LineItem{{ProductID: p.ID, Quantity: 2}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Orders().Create(ctx, domain.ProductIDs(lines), pricedOrder(fmt.Sprintf("order-%d", i), "cust-1", lines))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	counts, revenue, err := s.Orders().Tally(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, counts.Total)
	assert.Equal(t, 20, counts.ByStatus[domain.OrderStatusPending])
	assert.Zero(t, revenue)
}

func TestOrders_HasOrderedProduct(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFarmer(t, s, true)
	p := seedProduct(t, s, f.ID, "Tomato", 50)
	lines := []domain.LineItem{{ProductID: p.ID, Quantity: 1}}
	_, err := s.Orders().Create(ctx, domain.ProductIDs(lines), pricedOrder("order-1", "cust-1", lines))
	require.NoError(t, err)

	ok, _ := s.Orders().HasOrderedProduct(ctx, "cust-1", p.ID)
	assert.True(t, ok)
	ok, _ = s.Orders().HasOrderedProduct(ctx, "cust-2", p.ID)
	assert.False(t, ok)
}

// --- Reviews ---

func TestReviews_DuplicateRejectedUnderConcurrency(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Reviews().Create(ctx, &domain.Review{
				ID: fmt.Sprintf("rev-%d", i), ProductID: "prod-1", UserID: "cust-1",
				Rating: 5, CreatedAt: time.Now().UTC(),
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateReview))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}

func TestReviews_ListJoins(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFarmer(t, s, true)
	p := seedProduct(t, s, f.ID, "Tomato", 50)
	c := domain.NewUser("Carol", "carol@example.com", "h", domain.RoleCustomer)
	require.NoError(t, s.Users().Create(ctx, c))

	base := time.Now().UTC()
	require.NoError(t, s.Reviews().Create(ctx, &domain.Review{ID: "r1", ProductID: p.ID, UserID: c.ID, Rating: 4, CreatedAt: base}))
	require.NoError(t, s.Reviews().Create(ctx, &domain.Review{ID: "r2", ProductID: p.ID, UserID: "gone", Rating: 2, CreatedAt: base.Add(time.Second)}))

	byProduct, err := s.Reviews().ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, byProduct, 2)
	assert.Equal(t, "r2", byProduct[0].ID)
	assert.Nil(t, byProduct[0].User)
	assert.Equal(t, "Carol", byProduct[1].User.Name)

	byUser, err := s.Reviews().ListByUser(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "Tomato", byUser[0].Product.Title)

	exists, _ := s.Reviews().Exists(ctx, p.ID, c.ID)
	assert.True(t, exists)
}
