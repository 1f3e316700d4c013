package repository

import apperrors "github.com/utafrali/FarmMarket/pkg/errors"

// DuplicateReview is the conflict for a second review of a product by the same user.
func DuplicateReview() error {
	return apperrors.Conflict(apperrors.CodeDuplicateReview, "You have already reviewed this product")
}

// EmailTaken is the conflict for an email already registered to another account.
func EmailTaken() error {
	return apperrors.Conflict(apperrors.CodeEmailTaken, "Email already in use")
}

// StaleOrder is the conflict for a status update computed from an outdated read.
func StaleOrder() error {
	return apperrors.Conflict(apperrors.CodeStaleOrder, "Order status changed concurrently, reload and retry")
}
