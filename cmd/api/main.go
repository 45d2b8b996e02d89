package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/sai-platform/internal/http/handlers"
	httpmw "github.com/diagnosis/sai-platform/internal/http/middleware"
	"github.com/diagnosis/sai-platform/internal/platform/auth"
	"github.com/diagnosis/sai-platform/internal/platform/mailer"
	"github.com/diagnosis/sai-platform/internal/repo"
	"github.com/diagnosis/sai-platform/internal/repo/memory"
	"github.com/diagnosis/sai-platform/internal/repo/postgres"
	"github.com/diagnosis/sai-platform/internal/service"
	"github.com/diagnosis/sai-platform/pkg/config"
	"github.com/diagnosis/sai-platform/pkg/database"
	"github.com/diagnosis/sai-platform/pkg/events"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/diagnosis/sai-platform/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	logger.SetDefault(logger.New(os.Stdout, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.JWTSecret == config.DevJWTSecret {
		logger.Warn("JWT_SECRET not set, using development secret", "production", cfg.IsProduction())
	}

	m := metrics.New()

	store, backend := openStore(ctx, cfg.Database)
	defer store.Close()

	mail := mailer.New(cfg.Email, mailer.WithMetrics(m))
	logger.Info("Email transport selected", "transport", mail.TransportName())

	var pub events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Warn("Failed to connect to NATS, events disabled", "error", err)
		} else {
			pub = bus
		}
	}
	defer pub.Close()

	var limitStore httpmw.LimitStore = httpmw.NewMemoryLimitStore(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Warn("Invalid REDIS_URL, using in-process rate limiter", "error", err)
		} else {
			rdb := redis.NewClient(opts)
			defer rdb.Close()
			limitStore = httpmw.NewRedisLimitStore(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
	}

	var provider auth.Provider
	if cfg.Supabase.Enabled() {
		provider = auth.NewSupabaseClient(cfg.Supabase)
		logger.Info("Supabase auth provider enabled")
	}

	router := handlers.NewRouter(handlers.Deps{
		Config:      cfg,
		Store:       store,
		Backend:     backend,
		Submissions: service.NewSubmissionService(store, mail, pub, m),
		Auth:        service.NewAuthService(store, provider, mail, pub, m, cfg.Auth),
		LimitStore:  limitStore,
		Metrics:     m,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting SAI platform API", "port", cfg.Server.Port, "env", cfg.Env, "storage", backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down SAI platform API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// openStore picks Postgres when configured and falls back to memory when
// it cannot be reached.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (repo.Store, repo.BackendKind) {
	backend := repo.SelectBackend(cfg)
	if backend.Kind == repo.BackendMemory {
		logger.Info("Using in-memory storage", "reason", backend.Reason)
		return memory.New(), repo.BackendMemory
	}

	if err := postgres.Migrate(ctx, backend.DSN); err != nil {
		logger.Error("Database migration failed, using in-memory storage", "error", err)
		return memory.New(), repo.BackendMemory
	}
	pool, err := database.Connect(ctx, backend.DSN, cfg)
	if err != nil {
		logger.Error("Failed to connect to database, using in-memory storage", "error", err)
		return memory.New(), repo.BackendMemory
	}
	logger.Info("Using PostgreSQL storage")
	return postgres.New(pool), repo.BackendPostgres
}
