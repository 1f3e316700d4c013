package memory

import (
	"context"
	"time"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// UserRepository implements repository.UserRepository on a Store.
type UserRepository struct {
	s *Store
}

// Create inserts a user. Emails are unique after normalization.
func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = domain.NormalizeEmail(u.Email)
	if r.emailTakenLocked(u.Email, "") {
		return repository.EmailTaken()
	}
	r.s.users[u.ID] = record[domain.User]{value: *u, seq: r.s.next()}
	return nil
}

func (r *UserRepository) emailTakenLocked(email, exceptID string) bool {
	for id, rec := range r.s.users {
		if id != exceptID && rec.value.Email == email {
			return true
		}
	}
	return false
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	u := rec.value
	return &u, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, rec := range r.s.users {
		if rec.value.Email == email {
			u := rec.value
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

// List returns one page of users matching filter, newest first, and the total match count.
func (r *UserRepository) List(_ context.Context, filter domain.UserFilter, limit, offset int) ([]domain.User, int, error) {
	r.s.mu.RLock()
	matched := make([]record[domain.User], 0, len(r.s.users))
	for _, rec := range r.s.users {
		if filter.Matches(&rec.value) {
			matched = append(matched, rec)
		}
	}
	r.s.mu.RUnlock()

	users := newestFirst(matched, func(u *domain.User) time.Time { return u.CreatedAt })
	total := len(users)
	if offset >= total {
		return []domain.User{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return users[offset:end], total, nil
}

// UpdateProfile changes name and email only.
func (r *UserRepository) UpdateProfile(_ context.Context, id, name, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	email = domain.NormalizeEmail(email)
	if r.emailTakenLocked(email, id) {
		return repository.EmailTaken()
	}
	rec.value.Name = name
	rec.value.Email = email
	rec.value.UpdatedAt = time.Now().UTC()
	r.s.users[id] = rec
	return nil
}

// SetApproval sets the isApproved flag.
func (r *UserRepository) SetApproval(_ context.Context, id string, approved bool) error {
	return r.update(id, func(u *domain.User) { u.IsApproved = approved })
}

// SetBlocked sets the isBlocked flag.
func (r *UserRepository) SetBlocked(_ context.Context, id string, blocked bool) error {
	return r.update(id, func(u *domain.User) { u.IsBlocked = blocked })
}

func (r *UserRepository) update(id string, fn func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	fn(&rec.value)
	rec.value.UpdatedAt = time.Now().UTC()
	r.s.users[id] = rec
	return nil
}

// Delete removes a user. Products, orders and reviews keep their references.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return apperrors.NotFound("user", id)
	}
	delete(r.s.users, id)
	return nil
}

// Counts aggregates accounts by role and moderation state.
func (r *UserRepository) Counts(_ context.Context) (domain.UserCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var c domain.UserCounts
	for _, rec := range r.s.users {
		u := rec.value
		c.Total++
		switch u.Role {
		case domain.RoleFarmer:
			c.Farmers++
			if !u.IsApproved {
				c.PendingFarmers++
			}
		case domain.RoleCustomer:
			c.Customers++
		}
		if u.IsBlocked {
			c.BlockedUsers++
		}
	}
	return c, nil
}
