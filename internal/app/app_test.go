package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/FarmMarket/internal/config"
	"github.com/utafrali/FarmMarket/pkg/health"
	"github.com/utafrali/FarmMarket/pkg/tracing"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		HTTPPort:           5000,
		StoreBackend:       config.StoreMemory,
		JWTSecret:          "app-test-secret-at-least-32-characters",
		JWTIssuer:          "farmmarket",
		JWTExpiry:          "1h",
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPS:       100,
		RateLimitBurst:     100,
		ReviewGuardTTLSecs: 10,
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	return a
}

func serve(a *App, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNewApp_MemoryStore(t *testing.T) {
	a := newTestApp(t, testConfig())

	assert.Equal(t, ":5000", a.httpServer.Addr)
	assert.Nil(t, a.pool)
	assert.Nil(t, a.producer)

	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/health/live").Code)
	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/api/products").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(a, http.MethodGet, "/api/orders/user").Code)
}

func TestNewApp_ReviewGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.ReviewGuardEnabled = true
	cfg.RedisAddr = mr.Addr()

	a := newTestApp(t, cfg)
	require.NotNil(t, a.redis)

	rec := serve(a, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusUp, resp.Status)
	assert.Contains(t, resp.Checks, "redis")
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.ReviewGuardEnabled = true
	cfg.RedisAddr = addr

	_, err := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNewApp_InvalidTokenExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.JWTExpiry = "soon"

	_, err := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

func stubTracer(t *testing.T) *int {
	t.Helper()
	calls := new(int)
	orig := initTracer
	initTracer = func(context.Context, tracing.Config) (func(context.Context) error, error) {
		return func(context.Context) error {
			*calls++
			return nil
		}, nil
	}
	t.Cleanup(func() { initTracer = orig })
	return calls
}

func TestNewApp_FailureShutsDownTracer(t *testing.T) {
	mr := miniredis.RunT(t)
	redisAddr := mr.Addr()
	mr.Close()

	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"invalid token expiry", func(c *config.Config) { c.JWTExpiry = "soon" }},
		{"redis unavailable", func(c *config.Config) {
			c.ReviewGuardEnabled = true
			c.RedisAddr = redisAddr
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := stubTracer(t)
			cfg := testConfig()
			tt.modify(cfg)

			_, err := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

			require.Error(t, err)
			assert.Equal(t, 1, *calls)
		})
	}
}

func TestShutdown_FlushesTracerOnce(t *testing.T) {
	calls := stubTracer(t)
	a, err := NewApp(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.NoError(t, a.Shutdown())
	assert.NoError(t, a.Shutdown())
	assert.Equal(t, 1, *calls)
}

func TestShutdown_Idempotent(t *testing.T) {
	a, err := NewApp(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.NoError(t, a.Shutdown())
	assert.NoError(t, a.Shutdown())
}
