// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hoodskool/hoodskool-backend/internal/config"
	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
	"github.com/hoodskool/hoodskool-backend/internal/domain/storefront"
	fsinfra "github.com/hoodskool/hoodskool-backend/internal/infrastructure/database/firestore"
	"github.com/hoodskool/hoodskool-backend/internal/infrastructure/database/postgres"
	redisinfra "github.com/hoodskool/hoodskool-backend/internal/infrastructure/database/redis"
	httpserver "github.com/hoodskool/hoodskool-backend/internal/interfaces/http"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/routes"
	"github.com/hoodskool/hoodskool-backend/internal/pkg/auth"
	"github.com/hoodskool/hoodskool-backend/internal/pkg/logger"
)

const devTokenExpiry = 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)
	log.WithFields(logrus.Fields{
		"app":          cfg.App.Name,
		"version":      cfg.App.Version,
		"environment":  cfg.App.Environment,
		"cart_backend": cfg.Cart.Backend,
	}).Info("Starting")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to Redis
	redisConn, err := redisinfra.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisConn.Close()

	checks := map[string]httpserver.HealthChecker{
		"redis": redisConn.Health,
	}

	// Cart persistence for signed-in users
	var repo cart.Repository
	switch cfg.Cart.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewConnection(cfg, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		migration := postgres.NewMigration(db.GetDB(), log)
		if err := migration.RunAutoMigrations(); err != nil {
			log.WithError(err).Fatal("Database migration failed")
		}
		if err := migration.CreateIndexes(); err != nil {
			log.WithError(err).Warn("Index creation failed")
		}
		if _, err := migration.PruneStaleCarts(cfg.Cart.RetentionDays); err != nil {
			log.WithError(err).Warn("Stale cart pruning failed")
		}

		repo = postgres.NewCartRepository(db.GetDB())
		checks["postgres"] = db.Health

	default:
		fsClient, err := fsinfra.NewClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Firestore")
		}
		defer fsClient.Close()

		repo = fsinfra.NewCartRepository(fsClient.Client, cfg.Firebase.CartsCollection)
		checks["firestore"] = fsClient.Health
	}

	cartService := cart.NewService(repo, log)

	// ID token verification
	deps := routes.Dependencies{
		Config:  cfg,
		Logger:  log,
		Gateway: cartService,
	}
	if cfg.Firebase.DevJWTSecret != "" {
		jwtManager := auth.NewJWTManager(cfg.Firebase.DevJWTSecret, cfg.App.Name, devTokenExpiry)
		deps.Verifier = jwtManager
		deps.DevIssuer = jwtManager
		log.Warn("Using development ID tokens, Firebase verification is disabled")
	} else {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize Firebase Auth")
		}
		deps.Verifier = verifier
	}

	// Storefront sessions
	redisClient := redisConn.GetClient()
	sessions := storefront.NewSessions(
		cartService,
		func(sessionID string) cart.LocalStorage {
			return redisinfra.NewGuestCartStorage(redisClient, sessionID, cfg.Cart.GuestTTL)
		},
		redisinfra.NewSyncGuard(redisClient, cfg.Cart.SyncGuardTTL),
		cfg.Cart.SessionIdle,
		log,
	)
	deps.Sessions = sessions
	go sessions.Run(ctx, cfg.Cart.SweepInterval)

	server := httpserver.NewServer(cfg, log, redisClient, deps, checks)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	// Finish queued cart writes before the stores go away
	stop()
	sessions.Close()

	log.Info("Server shutdown completed")
}
