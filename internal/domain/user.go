package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a registered marketplace account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsApproved   bool      `json:"isApproved"`
	IsBlocked    bool      `json:"isBlocked"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser builds a user with the registration defaults: farmers start
// unapproved, every other role is approved, nobody starts blocked.
func NewUser(name, email, passwordHash, role string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		IsApproved:   role != RoleFarmer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Summary returns the public identity embedded in other resources.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserSummary is the reviewer/customer view of a user.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Role       *string
	IsApproved *bool
	IsBlocked  *bool
}

// Matches reports whether u passes every set criterion.
func (f UserFilter) Matches(u *User) bool {
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.IsApproved != nil && u.IsApproved != *f.IsApproved {
		return false
	}
	if f.IsBlocked != nil && u.IsBlocked != *f.IsBlocked {
		return false
	}
	return true
}
