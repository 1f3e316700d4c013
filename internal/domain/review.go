package domain

import (
	"math"
	"time"
)

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a customer's rating of a product. At most one exists per
// (product, user) pair.
type Review struct {
	ID        string         `json:"id"`
	ProductID string         `json:"productId"`
	UserID    string         `json:"userId"`
	Rating    int            `json:"rating"`
	Comment   string         `json:"comment"`
	User      *UserSummary   `json:"user,omitempty"`
	Product   *ReviewProduct `json:"product,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ReviewProduct is the product as shown in a customer's own review list.
type ReviewProduct struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price Money  `json:"price"`
}

// IsValidRating reports whether rating is within [MinRating, MaxRating].
func IsValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// RatingSummary aggregates a product's reviews.
type RatingSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// SummarizeRatings computes the count and the average rounded to one decimal.
func SummarizeRatings(reviews []Review) RatingSummary {
	if len(reviews) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return RatingSummary{
		Count:   len(reviews),
		Average: math.Round(avg*10) / 10,
	}
}
