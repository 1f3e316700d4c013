package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/FarmMarket/internal/auth"
	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/event"
	"github.com/utafrali/FarmMarket/internal/repository/memory"
	"github.com/utafrali/FarmMarket/internal/service"
	"github.com/utafrali/FarmMarket/pkg/health"
	"github.com/utafrali/FarmMarket/pkg/httputil"
	pkgkafka "github.com/utafrali/FarmMarket/pkg/kafka"
	"github.com/utafrali/FarmMarket/pkg/middleware"
)

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv is the full router over an in-memory store, authenticated with real
// signed tokens.
type testEnv struct {
	t      *testing.T
	store  *memory.Store
	tokens *auth.JWTManager
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	store := memory.NewStore()
	producer := event.NewProducer(pkgkafka.NopPublisher{}, logger)
	users, products, orders, reviews := store.Users(), store.Products(), store.Orders(), store.Reviews()

	svcs := Services{
		Products: service.NewProductService(products, users, producer, logger),
		Orders:   service.NewOrderService(orders, producer, logger, false),
		Reviews:  service.NewReviewService(reviews, products, orders, nil, producer, logger),
		Admin:    service.NewAdminService(users, products, orders, producer, logger),
		Stats:    service.NewStatsService(products, orders, reviews, logger),
		Profile:  service.NewProfileService(users, logger),
	}

	tokens := auth.NewJWTManager("handler-test-secret-at-least-32-chars", "farmmarket", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := NewRouter(ctx, svcs, users, tokens.Validator(), health.NewHandler(),
		RouterConfig{CORS: middleware.DefaultCORSConfig()}, logger)

	return &testEnv{t: t, store: store, tokens: tokens, router: router}
}

// user stores an account and returns it with a bearer token.
func (e *testEnv) user(role string, approved, blocked bool) (*domain.User, string) {
	e.t.Helper()

	u := domain.NewUser(role+" user", role+"-"+uuid.NewString()+"@example.com", "hash", role)
	u.IsApproved = approved
	u.IsBlocked = blocked
	require.NoError(e.t, e.store.Users().Create(context.Background(), u))

	return u, e.token(u.ID, u.Role)
}

func (e *testEnv) token(userID, role string) string {
	e.t.Helper()
	token, err := e.tokens.GenerateToken(userID, role)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) farmer() (*domain.User, string) { return e.user(domain.RoleFarmer, true, false) }
func (e *testEnv) customer() (*domain.User, string) { return e.user(domain.RoleCustomer, true, false) }
func (e *testEnv) admin() (*domain.User, string) { return e.user(domain.RoleAdmin, true, false) }

// do sends a request through the router. Non-string bodies are JSON encoded.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createProduct(token, title string, price float64) domain.Product {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/products", token, map[string]any{
		"title":    title,
		"price":    price,
		"category": "Vegetables",
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[domain.Product](e.t, rec)
}

func (e *testEnv) placeOrder(token string, items ...map[string]any) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do(http.MethodPost, "/api/orders", token, map[string]any{"items": items})
}

func item(productID string, quantity any) map[string]any {
	return map[string]any{"productId": productID, "quantity": quantity}
}

func (e *testEnv) productCount() int {
	e.t.Helper()
	n, err := e.store.Products().Count(context.Background())
	require.NoError(e.t, err)
	return n
}

func (e *testEnv) orderCount() int {
	e.t.Helper()
	counts, _, err := e.store.Orders().Tally(context.Background())
	require.NoError(e.t, err)
	return counts.Total
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func decodeMeta[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Meta T `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Meta
}

func responseMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Message
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

// requireError asserts the status and error code of a failed request.
func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	resp := decodeError(t, rec)
	require.Equal(t, code, resp.Error, resp.Message)
	require.NotEmpty(t, resp.Message)
}
