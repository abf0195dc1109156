package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/linkforge/linkforge/codegen"
	"github.com/linkforge/linkforge/internal/auth"
	"github.com/linkforge/linkforge/internal/config"
	"github.com/linkforge/linkforge/internal/db"
	"github.com/linkforge/linkforge/internal/identity"
	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/internal/server"
	"github.com/linkforge/linkforge/internal/shortener"
)

// App holds the application dependencies and configuration.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DBPool   *pgxpool.Pool
	Server   *server.Server
	Links    *shortener.Handler
	Accounts *identity.Handler
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
	)

	dbPool, err := db.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Bootstrap(ctx, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	m := metrics.New()

	tokens, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	// Identity stack
	userRepo := identity.NewRepository(dbPool, nil)
	identitySvc := identity.NewService(userRepo, identity.ServiceConfig{
		Tokens:     tokens,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	accounts := identity.NewHandler(identity.HandlerConfig{
		Service:  identitySvc,
		Logger:   logger,
		TokenTTL: tokens.TTL(),
	})

	// Shortener stack
	linkRepo := shortener.NewRepository(dbPool, nil)
	linkSvc := shortener.NewService(linkRepo, &shortener.ServiceConfig{
		CodeGenerator:   codegen.NewAlphanumeric(),
		Logger:          logger,
		Metrics:         m,
		CodeLength:      cfg.Shortener.CodeLength,
		CodeMaxAttempts: cfg.Shortener.CodeMaxAttempts,
	})
	links := shortener.NewHandler(shortener.HandlerConfig{
		Service: linkSvc,
		Logger:  logger,
		BaseURL: cfg.Server.BaseURL,
	})

	srv := server.New(cfg, logger, links, accounts, identitySvc, dbPool, m)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		DBPool:   dbPool,
		Server:   srv,
		Links:    links,
		Accounts: accounts,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
