package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tour-routing-service/internal/adapters/cache"
	"tour-routing-service/internal/adapters/distance"
	"tour-routing-service/internal/adapters/events"
	"tour-routing-service/internal/adapters/messaging"
	"tour-routing-service/internal/adapters/repositories"
	"tour-routing-service/internal/api"
	"tour-routing-service/internal/config"
	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/db"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/platform/retry"
	"tour-routing-service/internal/ports"
	"tour-routing-service/internal/services"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters behind ports and starts the HTTP server.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}()

	store, sqliteDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if sqliteDB != nil {
		closers = append(closers, sqliteDB.Close)
	}

	var redisClient *redis.Client
	if cfg.DistanceCache == "redis" || cfg.Events == "redis" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers = append(closers, redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
	}

	provider, err := newProvider(ctx, cfg, logger, sqliteDB, redisClient, &closers)
	if err != nil {
		return err
	}

	publishers := events.Fanout{&events.LogPublisher{Logger: logger.Named("events")}}
	if cfg.Events == "redis" {
		publishers = append(publishers, events.NewRedisPublisher(redisClient, ""))
	}

	svc := services.NewTourService(services.Deps{
		Tours:                store.tours,
		Hosts:                store.hosts,
		Applications:         store.applications,
		Invitations:          store.invitations,
		Plans:                store.plans,
		Provider:             provider,
		Sender:               messaging.NewLogSender(logger.Named("messages")),
		Events:               publishers,
		Policy:               policy,
		Retry:                retry.Default(),
		EstimatorConcurrency: cfg.EstimatorConcurrency,
		EstimatorTimeout:     cfg.EstimatorTimeout,
		DispatchConcurrency:  cfg.DispatchConcurrency,
		BaseURL:              cfg.PublicBaseURL,
		Logger:               logger,
	})

	// Timeouts are tuned for cold-cache planning against an external matrix API.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(svc, store.hosts, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store),
			zap.String("distance_provider", cfg.DistanceProvider),
			zap.String("distance_cache", cfg.DistanceCache),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type stores struct {
	tours        ports.TourRepository
	hosts        ports.HostRepository
	applications ports.ApplicationRepository
	invitations  ports.InvitationRepository
	plans        ports.PlanRepository
}

// openStore returns the repositories and, for STORE=sqlite, the database
// handle the caller must close. Both stores are seeded from SEED_PATH.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, *sql.DB, error) {
	if cfg.Store == "memory" {
		hosts, err := seedHosts(cfg.SeedPath)
		if err != nil {
			return stores{}, nil, err
		}
		mem := repositories.NewMemoryStore(hosts...)
		logger.Info("memory store ready", zap.Int("hosts", len(hosts)))
		return stores{tours: mem, hosts: mem, applications: mem, invitations: mem, plans: mem}, nil, nil
	}

	conn, err := db.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return stores{}, nil, err
	}
	if err := repositories.InitSchema(ctx, conn); err != nil {
		conn.Close()
		return stores{}, nil, err
	}
	if _, statErr := os.Stat(cfg.SeedPath); statErr == nil {
		n, err := repositories.SeedFromJSON(ctx, conn, cfg.SeedPath)
		if err != nil {
			conn.Close()
			return stores{}, nil, err
		}
		logger.Info("hosts seeded", zap.String("path", cfg.SeedPath), zap.Int("hosts", n))
	}

	tours := repositories.NewSqliteTourRepository(conn)
	apps := repositories.NewSqliteApplicationRepository(conn)
	return stores{
		tours:        tours,
		hosts:        repositories.NewSqliteHostRepository(conn),
		applications: apps,
		invitations:  apps,
		plans:        tours,
	}, conn, nil
}

func seedHosts(path string) ([]domain.HostCandidate, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return repositories.LoadHostsJSON(path)
}

// newProvider builds the distance estimator and wraps it in the configured
// cache. Handles it opens are appended to closers.
func newProvider(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	sqliteDB *sql.DB,
	redisClient *redis.Client,
	closers *[]func() error,
) (ports.DistanceProvider, error) {
	var base ports.DistanceProvider
	switch cfg.DistanceProvider {
	case "ors":
		ors, err := distance.NewORSDistanceProvider(cfg.ORSAPIKey,
			distance.WithRetry(retry.Default()),
			distance.WithLogger(logger.Named("ors")),
		)
		if err != nil {
			return nil, err
		}
		base = ors
	default:
		base = distance.NewHaversineProvider()
	}

	var dc ports.DistanceCache
	switch cfg.DistanceCache {
	case "sqlite":
		if err := cache.InitSchema(ctx, sqliteDB); err != nil {
			return nil, err
		}
		dc = cache.NewSqliteDistanceCache(sqliteDB)
	case "postgres":
		pg, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, pg.Close)
		if err := cache.InitSchema(ctx, pg); err != nil {
			return nil, err
		}
		dc = cache.NewSQLDistanceCache(pg)
	case "redis":
		dc = cache.NewRedisDistanceCache(redisClient, 30*24*time.Hour)
	default:
		return base, nil
	}
	return distance.NewCachedProvider(base, dc, logger), nil
}
