package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository"
	"github.com/utafrali/FarmMarket/pkg/database"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

const userColumns = `id, name, email, password_hash, role, is_approved, is_blocked, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "users.create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role,
		u.IsApproved, u.IsBlocked, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintUserEmail) {
			return repository.EmailTaken()
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "users.get_by_id", "id = $1", id)
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "users.get_by_email", "email = $1", domain.NormalizeEmail(email))
}

func (r *UserRepository) getOne(ctx context.Context, op, where, arg string) (_ *domain.User, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", arg)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row, extra ...any) (*domain.User, error) {
	var u domain.User
	dest := append([]any{
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsApproved, &u.IsBlocked, &u.CreatedAt, &u.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns users matching filter with the total count.
func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter, limit, offset int) (_ []domain.User, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, *filter.Role)
		argIndex++
	}
	if filter.IsApproved != nil {
		conditions = append(conditions, fmt.Sprintf("is_approved = $%d", argIndex))
		args = append(args, *filter.IsApproved)
		argIndex++
	}
	if filter.IsBlocked != nil {
		conditions = append(conditions, fmt.Sprintf("is_blocked = $%d", argIndex))
		args = append(args, *filter.IsBlocked)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM users
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIndex, argIndex+1,
	)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "users.list", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var total int
	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, total, nil
}

// UpdateProfile changes a user's name and email.
func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email string) (err error) {
	query := `UPDATE users SET name = $2, email = $3, updated_at = $4 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "users.update_profile", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, name, domain.NormalizeEmail(email), time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err, constraintUserEmail) {
			return repository.EmailTaken()
		}
		return fmt.Errorf("update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// SetApproval sets a user's isApproved flag.
func (r *UserRepository) SetApproval(ctx context.Context, id string, approved bool) error {
	return r.setFlag(ctx, "users.set_approval", "is_approved", id, approved)
}

// SetBlocked sets a user's isBlocked flag.
func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.setFlag(ctx, "users.set_blocked", "is_blocked", id, blocked)
}

func (r *UserRepository) setFlag(ctx context.Context, op, column, id string, value bool) (err error) {
	query := `UPDATE users SET ` + column + ` = $2, updated_at = $3 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "users.delete", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// Counts aggregates accounts by role and moderation state in one pass.
func (r *UserRepository) Counts(ctx context.Context) (_ domain.UserCounts, err error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE role = 'farmer'),
			count(*) FILTER (WHERE role = 'customer'),
			count(*) FILTER (WHERE role = 'farmer' AND NOT is_approved),
			count(*) FILTER (WHERE is_blocked)
		FROM users`

	ctx, end := database.TraceQuery(ctx, "users.counts", query)
	defer func() { end(err) }()

	var c domain.UserCounts
	if err = r.pool.QueryRow(ctx, query).Scan(
		&c.Total, &c.Farmers, &c.Customers, &c.PendingFarmers, &c.BlockedUsers,
	); err != nil {
		return domain.UserCounts{}, fmt.Errorf("count users: %w", err)
	}
	return c, nil
}
