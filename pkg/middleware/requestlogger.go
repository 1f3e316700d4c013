package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/FarmMarket/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// whatever correlation, user and trace fields are present at this point.
// Mount it after RequestLogging and Tracing, and again after Auth so the
// user_id and role fields are attached.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.NewContext(r.Context(), logger.WithContext(r.Context(), base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
