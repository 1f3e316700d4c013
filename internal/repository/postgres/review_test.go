package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/FarmMarket/internal/domain"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:        "rev-001",
		ProductID: "prod-a",
		UserID:    "cust-001",
		Rating:    4,
		Comment:   "Tasty",
		CreatedAt: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
	}
}

func TestReviewRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)
	rv := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), rv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_product_user_key"})

	err := repo.Create(context.Background(), sampleReview())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateReview))
}

func TestReviewRepository_Create_OtherUniqueViolation(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_pkey"})

	err := repo.Create(context.Background(), sampleReview())
	require.Error(t, err)
	assert.False(t, apperrors.HasCode(err, apperrors.CodeDuplicateReview))
}

func TestReviewRepository_Exists(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("prod-a", "cust-001").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "prod-a", "cust-001")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReviewRepository_ListByProduct(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)
	rv := sampleReview()

	mock.ExpectQuery("FROM reviews rv LEFT JOIN users u .+ WHERE rv.product_id = \\$1").
		WithArgs("prod-a").
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "user_id", "rating", "comment", "created_at", "name"}).
			AddRow(rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt, strPtr("Carol")).
			AddRow("rev-002", rv.ProductID, "gone-user", 2, "", rv.CreatedAt, (*string)(nil)))

	reviews, err := repo.ListByProduct(context.Background(), "prod-a")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.NotNil(t, reviews[0].User)
	assert.Equal(t, "Carol", reviews[0].User.Name)
	assert.Nil(t, reviews[1].User)
}

func TestReviewRepository_ListByUser(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)
	rv := sampleReview()

	mock.ExpectQuery("FROM reviews rv LEFT JOIN products p .+ WHERE rv.user_id = \\$1").
		WithArgs("cust-001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "user_id", "rating", "comment", "created_at", "title", "price"}).
			AddRow(rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt, strPtr("Organic Tomato"), moneyPtr(50)))

	reviews, err := repo.ListByUser(context.Background(), "cust-001")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.NotNil(t, reviews[0].Product)
	assert.Equal(t, domain.Money(50), reviews[0].Product.Price)
}

func TestReviewRepository_ListByUser_QueryError(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("FROM reviews").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByUser(context.Background(), "cust-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list user reviews")
}
