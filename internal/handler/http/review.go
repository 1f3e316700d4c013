package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/service"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
	"github.com/utafrali/FarmMarket/pkg/httputil"
	"github.com/utafrali/FarmMarket/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for submitting a review.
type CreateReviewRequest struct {
	ProductID string      `json:"productId" validate:"required,uuid"`
	Rating    json.Number `json:"rating"`
	Comment   string      `json:"comment" validate:"max=2000"`
}

// reviewListMeta accompanies a product's review list.
type reviewListMeta struct {
	Summary domain.RatingSummary `json:"summary"`
}

// --- Handlers ---

// CreateReview handles POST /api/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rating, ok := wholeNumber(req.Rating)
	if !ok {
		httputil.WriteError(w, r, apperrors.InvalidRating(
			fmt.Sprintf("rating must be an integer between %d and %d", domain.MinRating, domain.MaxRating),
		), h.logger)
		return
	}

	review, err := h.service.CreateReview(r.Context(), actorFromContext(r.Context()), service.CreateReviewInput{
		ProductID: req.ProductID,
		Rating:    rating,
		Comment:   req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// ListProductReviews handles GET /api/reviews/product/{id}
func (h *ReviewHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.service.ListProductReviews(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: nonNil(result.Reviews),
		Meta: reviewListMeta{Summary: result.Summary},
	})
}

// ListOwnReviews handles GET /api/reviews/my-reviews
func (h *ReviewHandler) ListOwnReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListOwnReviews(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: nonNil(reviews)})
}
