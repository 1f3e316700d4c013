package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/event"
	"github.com/utafrali/FarmMarket/internal/policy"
	"github.com/utafrali/FarmMarket/internal/repository"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// AdminService implements user moderation and the marketplace dashboard.
type AdminService struct {
	users    repository.UserRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(
	users repository.UserRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		users:    users,
		products: products,
		orders:   orders,
		producer: producer,
		logger:   logger,
	}
}

// ListUsers returns one page of accounts matching filter and the total count.
func (s *AdminService) ListUsers(ctx context.Context, actor *policy.Actor, filter domain.UserFilter, limit, offset int) ([]domain.User, int, error) {
	if err := authorize(ctx, s.logger, actor, policy.ListUsers, policy.None); err != nil {
		return nil, 0, err
	}
	if filter.Role != nil && !domain.IsValidRole(*filter.Role) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid role: %q", *filter.Role))
	}

	users, total, err := s.users.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// SetApproval approves or rejects a farmer. Admin accounts are protected and
// other roles cannot be approved.
func (s *AdminService) SetApproval(ctx context.Context, actor *policy.Actor, id string, approved bool) (*domain.User, error) {
	if err := precheck(ctx, s.logger, actor, policy.ApproveUser); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user for approval: %w", err)
	}

	if err := authorize(ctx, s.logger, actor, policy.ApproveUser, policy.AccountTarget(u)); err != nil {
		return nil, err
	}
	if u.Role != domain.RoleFarmer {
		return nil, apperrors.InvalidInput("only farmer accounts can be approved")
	}

	if err := s.users.SetApproval(ctx, id, approved); err != nil {
		return nil, fmt.Errorf("set approval: %w", err)
	}
	u.IsApproved = approved

	s.publishModerated(ctx, actor, id, "isApproved", approved)
	s.logger.InfoContext(ctx, "user approval updated",
		slog.String("user_id", id),
		slog.Bool("is_approved", approved),
		slog.String("actor_id", actor.ID),
	)

	return u, nil
}

// SetBlocked blocks or unblocks an account. Admin accounts are protected.
func (s *AdminService) SetBlocked(ctx context.Context, actor *policy.Actor, id string, blocked bool) (*domain.User, error) {
	if err := precheck(ctx, s.logger, actor, policy.BlockUser); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user for block: %w", err)
	}

	if err := authorize(ctx, s.logger, actor, policy.BlockUser, policy.AccountTarget(u)); err != nil {
		return nil, err
	}

	if err := s.users.SetBlocked(ctx, id, blocked); err != nil {
		return nil, fmt.Errorf("set blocked: %w", err)
	}
	u.IsBlocked = blocked

	s.publishModerated(ctx, actor, id, "isBlocked", blocked)
	msg := "user unblocked"
	if blocked {
		msg = "user blocked"
	}
	s.logger.InfoContext(ctx, msg,
		slog.String("user_id", id),
		slog.String("actor_id", actor.ID),
	)

	return u, nil
}

func (s *AdminService) publishModerated(ctx context.Context, actor *policy.Actor, userID, field string, value bool) {
	if err := s.producer.PublishUserModerated(ctx, actor.ID, userID, field, value); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.moderated event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteUser hard-deletes an account. Admin accounts are protected. The user's
// products, orders and reviews are kept.
func (s *AdminService) DeleteUser(ctx context.Context, actor *policy.Actor, id string) error {
	if err := precheck(ctx, s.logger, actor, policy.DeleteUser); err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user for delete: %w", err)
	}

	if err := authorize(ctx, s.logger, actor, policy.DeleteUser, policy.AccountTarget(u)); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.producer.PublishUserDeleted(ctx, actor.ID, u); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", id),
		slog.String("role", u.Role),
		slog.String("actor_id", actor.ID),
	)

	return nil
}

// Stats computes the dashboard from a fresh read of every store. Revenue sums
// Delivered orders only.
func (s *AdminService) Stats(ctx context.Context, actor *policy.Actor) (*domain.AdminStats, error) {
	if err := authorize(ctx, s.logger, actor, policy.ViewAdminStats, policy.None); err != nil {
		return nil, err
	}

	users, err := s.users.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	products, err := s.products.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	orders, revenue, err := s.orders.Tally(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally orders: %w", err)
	}

	return &domain.AdminStats{
		Users:    users,
		Products: domain.ProductCounts{Total: products},
		Orders:   orders,
		Revenue:  revenue,
	}, nil
}
