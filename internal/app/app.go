package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/FarmMarket/internal/auth"
	"github.com/utafrali/FarmMarket/internal/config"
	"github.com/utafrali/FarmMarket/internal/event"
	handler "github.com/utafrali/FarmMarket/internal/handler/http"
	"github.com/utafrali/FarmMarket/internal/repository"
	"github.com/utafrali/FarmMarket/internal/repository/memory"
	"github.com/utafrali/FarmMarket/internal/repository/postgres"
	"github.com/utafrali/FarmMarket/internal/repository/redis"
	"github.com/utafrali/FarmMarket/internal/service"
	"github.com/utafrali/FarmMarket/migrations"
	"github.com/utafrali/FarmMarket/pkg/database"
	"github.com/utafrali/FarmMarket/pkg/health"
	pkgkafka "github.com/utafrali/FarmMarket/pkg/kafka"
	"github.com/utafrali/FarmMarket/pkg/middleware"
	"github.com/utafrali/FarmMarket/pkg/tracing"
)

// App wires together all dependencies and runs the marketplace server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	cancel         context.CancelFunc
	tracerShutdown func(context.Context) error
}

// initTracer is swapped in tests.
var initTracer = tracing.InitTracer

type repositories struct {
	users    repository.UserRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	reviews  repository.ReviewRepository
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := initTracer(ctx, tracing.Config{
		ServiceName:    "farmmarket",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	repos, err := a.initStore(ctx, healthHandler)
	if err != nil {
		a.abort()
		return nil, err
	}

	guard, err := a.initReviewGuard(ctx, healthHandler)
	if err != nil {
		a.abort()
		return nil, err
	}

	eventProducer := event.NewProducer(a.initPublisher(ctx, healthHandler), logger)

	expiry, err := cfg.TokenExpiry()
	if err != nil {
		a.abort()
		return nil, err
	}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)

	// Build the dependency graph.
	svcs := handler.Services{
		Products: service.NewProductService(repos.products, repos.users, eventProducer, logger),
		Orders:   service.NewOrderService(repos.orders, eventProducer, logger, cfg.OrderStrictTransitions),
		Reviews:  service.NewReviewService(repos.reviews, repos.products, repos.orders, guard, eventProducer, logger),
		Admin:    service.NewAdminService(repos.users, repos.products, repos.orders, eventProducer, logger),
		Stats:    service.NewStatsService(repos.products, repos.orders, repos.reviews, logger),
		Profile:  service.NewProfileService(repos.users, logger),
	}

	// The rate limiter's cleanup loop lives as long as the app.
	routerCtx, routerCancel := context.WithCancel(context.Background())
	a.cancel = routerCancel

	router := handler.NewRouter(routerCtx, svcs, repos.users, jwtManager.Validator(), healthHandler, handler.RouterConfig{
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
		},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initStore opens the configured persistence backend.
func (a *App) initStore(ctx context.Context, healthHandler *health.Handler) (repositories, error) {
	if a.cfg.StoreBackend == config.StoreMemory {
		a.logger.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return repositories{
			users:    store.Users(),
			products: store.Products(),
			orders:   store.Orders(),
			reviews:  store.Reviews(),
		}, nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return repositories{}, fmt.Errorf("connect to postgres: %w", err)
	}
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", a.cfg.PostgresHost),
		slog.Int("port", a.cfg.PostgresPort),
		slog.String("database", a.cfg.PostgresDB),
	)
	a.pool = pool

	if err := prometheus.Register(database.NewPoolStatsCollector(pool)); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		pool.Close()
		return repositories{}, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	// Configure slow query logging.
	if a.cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(a.cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
	}

	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return repositories{
		users:    postgres.NewUserRepository(pool),
		products: postgres.NewProductRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		reviews:  postgres.NewReviewRepository(pool),
	}, nil
}

// initReviewGuard connects to Redis when the review guard is enabled. A nil
// guard leaves duplicate prevention to the review store alone.
func (a *App) initReviewGuard(ctx context.Context, healthHandler *health.Handler) (repository.ReviewGuard, error) {
	if !a.cfg.ReviewGuardEnabled {
		return nil, nil
	}

	client, err := database.NewRedisClient(ctx, a.cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.logger.Info("connected to Redis", slog.String("addr", a.cfg.RedisAddr))
	a.redis = client

	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})

	return redis.NewReviewGuard(client, time.Duration(a.cfg.ReviewGuardTTLSecs)*time.Second), nil
}

// initPublisher returns the Kafka producer, or a no-op publisher when events
// are disabled.
func (a *App) initPublisher(ctx context.Context, healthHandler *health.Handler) pkgkafka.Publisher {
	if !a.cfg.EventsEnabled {
		a.logger.Info("domain events disabled")
		return pkgkafka.NopPublisher{}
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	if err := pingKafkaWithRetry(ctx, producer, a.logger); err != nil {
		a.logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))
	}
	a.producer = producer

	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	return producer
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store", a.cfg.StoreBackend),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush spans from drained requests)
// 3. Kafka producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if a.cancel != nil {
		a.cancel()
	}

	// 2. Flush pending spans.
	if err := a.shutdownTracer(); err != nil {
		errs = append(errs, err)
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close stores.
	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// abort releases what NewApp acquired before it failed.
func (a *App) abort() {
	if a.producer != nil {
		_ = a.producer.Close()
		a.producer = nil
	}
	_ = a.closeStores()
	_ = a.shutdownTracer()
}

func (a *App) shutdownTracer() error {
	if a.tracerShutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := a.tracerShutdown(ctx)
	a.tracerShutdown = nil
	if err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}
	return err
}

func (a *App) closeStores() error {
	var err error
	if a.redis != nil {
		if err = a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return err
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := producer.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
