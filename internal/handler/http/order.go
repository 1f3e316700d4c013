package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/service"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
	"github.com/utafrali/FarmMarket/pkg/httputil"
	"github.com/utafrali/FarmMarket/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// OrderItemRequest is one requested line. Product is accepted as an alias of
// ProductID for older clients.
type OrderItemRequest struct {
	ProductID string      `json:"productId"`
	Product   string      `json:"product"`
	Quantity  json.Number `json:"quantity"`
}

// CreateOrderRequest is the JSON request body for placing an order.
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1"`
}

// UpdateStatusRequest is the JSON request body for updating order status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// --- Handlers ---

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	lines := make([]domain.LineItem, len(req.Items))
	for i, item := range req.Items {
		qty, ok := wholeNumber(item.Quantity)
		if !ok {
			httputil.WriteError(w, r, apperrors.InvalidQuantity("quantity must be an integer of at least 1"), h.logger)
			return
		}
		productID := item.ProductID
		if productID == "" {
			productID = item.Product
		}
		lines[i] = domain.LineItem{ProductID: productID, Quantity: qty}
	}

	order, err := h.service.CreateOrder(r.Context(), actorFromContext(r.Context()), lines)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), actorFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// ListOwnOrders handles GET /api/orders/user
func (h *OrderHandler) ListOwnOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOwnOrders(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: nonNil(orders)})
}

// ListFarmerOrders handles GET /api/orders/farmer
func (h *OrderHandler) ListFarmerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListFarmerOrders(r.Context(), actorFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: nonNil(orders)})
}

// ListAllOrders handles GET /api/admin/orders
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAllOrders(r.Context(), actorFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: nonNil(orders)})
}

// UpdateOrderStatus handles PUT /api/orders/{id}/status
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), actorFromContext(r.Context()), id.String(), req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// wholeNumber parses a JSON number that must be an integer. A missing number
// parses as zero so range checks report it.
func wholeNumber(n json.Number) (int, bool) {
	if n == "" {
		return 0, true
	}
	v, err := strconv.Atoi(n.String())
	return v, err == nil
}
