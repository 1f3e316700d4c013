package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/service"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
	"github.com/utafrali/FarmMarket/pkg/httputil"
	"github.com/utafrali/FarmMarket/pkg/pagination"
	"github.com/utafrali/FarmMarket/pkg/validator"
)

// AdminHandler handles HTTP requests for user moderation and the dashboard.
type AdminHandler struct {
	service *service.AdminService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ApproveUserRequest is the JSON request body for approving or rejecting a farmer.
type ApproveUserRequest struct {
	IsApproved *bool `json:"isApproved" validate:"required"`
}

// BlockUserRequest is the JSON request body for blocking or unblocking a user.
type BlockUserRequest struct {
	IsBlocked *bool `json:"isBlocked" validate:"required"`
}

// --- Handlers ---

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := userFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	page := pagination.FromRequest(r)

	users, total, err := h.service.ListUsers(r.Context(), actorFromContext(r.Context()), filter, page.Limit, page.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(users, total, page.Page, page.Limit))
}

func userFilterFromQuery(r *http.Request) (domain.UserFilter, error) {
	q := r.URL.Query()
	var filter domain.UserFilter

	if v := q.Get("role"); v != "" {
		filter.Role = &v
	}
	for param, dst := range map[string]**bool{
		"isApproved": &filter.IsApproved,
		"isBlocked":  &filter.IsBlocked,
	} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperrors.InvalidInput(param + " must be true or false")
		}
		*dst = &b
	}

	return filter, nil
}

// ApproveUser handles PUT /api/admin/users/{id}/approve
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ApproveUserRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.SetApproval(r.Context(), actorFromContext(r.Context()), id.String(), *req.IsApproved)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	msg := "User approved"
	if !user.IsApproved {
		msg = "User approval revoked"
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user, Message: msg})
}

// BlockUser handles PUT /api/admin/users/{id}/block
func (h *AdminHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req BlockUserRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.SetBlocked(r.Context(), actorFromContext(r.Context()), id.String(), *req.IsBlocked)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	msg := "User blocked"
	if !user.IsBlocked {
		msg = "User unblocked"
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user, Message: msg})
}

// DeleteUser handles DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), actorFromContext(r.Context()), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"message": "User deleted"}})
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}
