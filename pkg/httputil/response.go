package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
	"github.com/utafrali/FarmMarket/pkg/logger"
	"github.com/utafrali/FarmMarket/pkg/validator"
)

// Response is the success envelope used by every endpoint. Meta carries
// aggregates about a list in Data; Message confirms an admin action.
type Response struct {
	Data    any    `json:"data"`
	Meta    any    `json:"meta,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the error body: a human-readable message plus a stable code.
type ErrorResponse struct {
	Message   string            `json:"message"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto the error taxonomy and writes it. Internal errors are
// logged with the request-scoped logger (or fallback) and rendered generically.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Message:   valErr.Error(),
			Error:     apperrors.CodeValidation,
			Fields:    valErr.Fields(),
			RequestID: requestID,
		})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(l, r, err)
		}
		WriteJSON(w, appErr.Status, ErrorResponse{
			Message:   appErr.Message,
			Error:     appErr.Code,
			RequestID: requestID,
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	resp := ErrorResponse{RequestID: requestID}

	switch status {
	case http.StatusNotFound:
		resp.Error, resp.Message = apperrors.CodeNotFound, "resource not found"
	case http.StatusBadRequest:
		resp.Error, resp.Message = apperrors.CodeValidation, err.Error()
	case http.StatusUnauthorized:
		resp.Error, resp.Message = apperrors.CodeUnauthenticated, "authentication required"
	case http.StatusForbidden:
		resp.Error, resp.Message = "FORBIDDEN", "access denied"
	default:
		logInternal(l, r, err)
		resp.Error, resp.Message = apperrors.CodeInternal, "an internal error occurred"
	}

	WriteJSON(w, status, resp)
}

func logInternal(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// PaginatedResponse is a generic paginated list response envelope.
type PaginatedResponse[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

// NewPaginatedResponse computes TotalPages and HasNext for a page of data.
func NewPaginatedResponse[T any](data []T, total, page, limit int) PaginatedResponse[T] {
	totalPages := 0
	if limit > 0 {
		totalPages = total / limit
		if total%limit > 0 {
			totalPages++
		}
	}
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// ParseUUID validates a path parameter. On failure it writes a 400 and returns
// false, signaling the caller to return early.
func ParseUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Message:   "invalid id: " + param,
			Error:     apperrors.CodeValidation,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		})
		return uuid.Nil, false
	}
	return id, true
}
