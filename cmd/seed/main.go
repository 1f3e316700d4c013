// Command seed populates a PostgreSQL-backed marketplace with a demo admin,
// an approved farmer, a customer and two products, then prints a bearer
// token for each account. Running it twice reuses existing accounts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/FarmMarket/internal/auth"
	"github.com/utafrali/FarmMarket/internal/config"
	"github.com/utafrali/FarmMarket/internal/domain"
	"github.com/utafrali/FarmMarket/internal/repository/postgres"
	"github.com/utafrali/FarmMarket/migrations"
	"github.com/utafrali/FarmMarket/pkg/database"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
	"github.com/utafrali/FarmMarket/pkg/logger"
)

type seedUser struct {
	name  string
	email string
	role  string
}

var seedUsers = []seedUser{
	{"Admin", "admin@farmmarket.local", domain.RoleAdmin},
	{"Green Valley Farm", "farmer@farmmarket.local", domain.RoleFarmer},
	{"Jane Customer", "customer@farmmarket.local", domain.RoleCustomer},
}

var seedProducts = []struct {
	title    string
	price    domain.Money
	category string
}{
	{"Organic Tomato", 50 * domain.MajorUnit, "Vegetables"},
	{"Organic Banana", 60 * domain.MajorUnit, "Fruits"},
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("farmmarket-seed", cfg.LogLevel)

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "password123"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	users := postgres.NewUserRepository(pool)
	products := postgres.NewProductRepository(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	expiry, err := cfg.TokenExpiry()
	if err != nil {
		return err
	}
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)

	for _, su := range seedUsers {
		user, created, err := ensureUser(ctx, users, su, string(hash))
		if err != nil {
			return err
		}
		log.Info("seed user ready",
			slog.String("email", user.Email),
			slog.String("role", user.Role),
			slog.Bool("created", created),
		)

		if user.Role == domain.RoleFarmer && created {
			now := time.Now().UTC()
			for _, sp := range seedProducts {
				p := &domain.Product{
					ID:          uuid.New().String(),
					Title:       sp.title,
					Price:       sp.price,
					Category:    sp.category,
					IsAvailable: true,
					FarmerID:    user.ID,
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				if err := products.Create(ctx, p); err != nil {
					return fmt.Errorf("create product %q: %w", sp.title, err)
				}
				log.Info("seed product created", slog.String("title", p.Title), slog.String("id", p.ID))
			}
		}

		token, err := tokens.GenerateToken(user.ID, user.Role)
		if err != nil {
			return err
		}
		fmt.Printf("%-9s %-28s %s\n", user.Role, user.Email, token)
	}
	return nil
}

// ensureUser returns the account for su, creating an approved one if the
// email is not yet registered.
func ensureUser(ctx context.Context, users *postgres.UserRepository, su seedUser, hash string) (*domain.User, bool, error) {
	existing, err := users.GetByEmail(ctx, su.email)
	if err == nil {
		return existing, false, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, false, fmt.Errorf("look up %s: %w", su.email, err)
	}

	user := domain.NewUser(su.name, su.email, hash, su.role)
	user.IsApproved = true
	if err := users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create %s: %w", su.email, err)
	}
	return user, true, nil
}
