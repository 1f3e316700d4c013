package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/FarmMarket/internal/policy"
	"github.com/utafrali/FarmMarket/internal/repository"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
	"github.com/utafrali/FarmMarket/pkg/httputil"
	"github.com/utafrali/FarmMarket/pkg/middleware"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// actorKey is the context key for the authenticated caller.
const actorKey contextKey = "actor"

// withActor stores the caller in ctx.
func withActor(ctx context.Context, a *policy.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// actorFromContext returns the caller, or nil for anonymous requests.
func actorFromContext(ctx context.Context) *policy.Actor {
	a, _ := ctx.Value(actorKey).(*policy.Actor)
	return a
}

// Authenticate validates the bearer token, then loads the token subject's
// account so authorization sees its current role and moderation flags rather
// than what the token claimed when it was issued. A token whose account no
// longer exists is rejected with 401.
func Authenticate(validate middleware.TokenValidator, users repository.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	auth := middleware.Auth(validate)
	return func(next http.Handler) http.Handler {
		return auth(loadActor(users, logger)(next))
	}
}

// OptionalAuthenticate behaves like Authenticate when an Authorization header
// is present and lets anonymous requests through otherwise.
func OptionalAuthenticate(validate middleware.TokenValidator, users repository.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	authenticate := Authenticate(validate, users, logger)
	return func(next http.Handler) http.Handler {
		withAuth := authenticate(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			withAuth.ServeHTTP(w, r)
		})
	}
}

func loadActor(users repository.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := users.GetByID(r.Context(), middleware.UserIDFromContext(r.Context()))
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					err = apperrors.Unauthenticated("not authorized, user not found")
				}
				httputil.WriteError(w, r, err, logger)
				return
			}

			ctx := withActor(r.Context(), policy.ActorFromUser(user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.ErrorResponse{
					Message: "Content-Type must be application/json",
					Error:   "UNSUPPORTED_MEDIA_TYPE",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
