package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/policy"
	"github.com/utafrali/FarmMarket/internal/repository"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// ProfileService lets any signed-in user read and edit their own account.
type ProfileService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(users repository.UserRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		users:  users,
		logger: logger,
	}
}

// ProfileUpdate carries the editable profile fields. Role and moderation flags
// are not editable.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// GetProfile returns the actor's own account.
func (s *ProfileService) GetProfile(ctx context.Context, actor *policy.Actor) (*domain.User, error) {
	if err := authorize(ctx, s.logger, actor, policy.ViewProfile, policy.None); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// UpdateProfile changes the actor's name and/or email.
func (s *ProfileService) UpdateProfile(ctx context.Context, actor *policy.Actor, update ProfileUpdate) (*domain.User, error) {
	if err := authorize(ctx, s.logger, actor, policy.UpdateProfile, policy.None); err != nil {
		return nil, err
	}
	if update.Name == nil && update.Email == nil {
		return nil, apperrors.InvalidInput("at least one field must be provided")
	}

	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get profile for update: %w", err)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		u.Name = name
	}
	if update.Email != nil {
		u.Email = domain.NormalizeEmail(*update.Email)
	}

	if err := s.users.UpdateProfile(ctx, u.ID, u.Name, u.Email); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated", slog.String("user_id", u.ID))

	return u, nil
}
