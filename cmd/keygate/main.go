package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/keygate/keygate/pkg/api"
	"github.com/keygate/keygate/pkg/auth"
	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/jobs"
	"github.com/keygate/keygate/pkg/middleware"
	"github.com/keygate/keygate/pkg/observability"
	"github.com/keygate/keygate/pkg/projects"
	"github.com/keygate/keygate/pkg/rbac"
	"github.com/keygate/keygate/pkg/storage/postgres"
	"github.com/keygate/keygate/pkg/tenants"
	"github.com/keygate/keygate/pkg/users"
)

// sweepSchedule clears expired verification codes every ten minutes.
const sweepSchedule = "*/10 * * * *"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "keygate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)
	logger.Info("starting keygate")

	requestLogger := logrus.New()
	requestLogger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Observability.LogLevel); err == nil {
		requestLogger.SetLevel(level)
	}

	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Database
	dbCfg := postgres.DefaultConfig(cfg.Database.URL)
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	db, err := postgres.Open(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database ready")

	// Redis backs the login rate limiter; the limiter fails open, so a
	// missing Redis degrades rather than blocks startup.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, login rate limiting degraded")
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	// Stores and services
	var userStore users.Store = postgres.NewUserStore(db)
	if cfg.Database.UserCacheSize > 0 {
		cached, err := postgres.NewCachedUserStore(userStore, cfg.Database.UserCacheSize)
		if err != nil {
			return fmt.Errorf("failed to create user cache: %w", err)
		}
		if metrics != nil {
			cached.WithStats(metrics)
		}
		userStore = cached
	}
	tenantStore := postgres.NewTenantStore(db)
	projectStore := postgres.NewProjectStore(db)
	memberStore := postgres.NewMemberStore(db)

	hasher := auth.NewPasswordHasherWithCost(cfg.Auth.BcryptCost)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	usersSvc := users.NewService(userStore, hasher, requestLogger)
	tenantsSvc := tenants.NewService(tenantStore, requestLogger)
	projectsSvc := projects.NewService(projectStore, memberStore, rbac.DefaultCatalog(), requestLogger)

	limiter := middleware.NewRateLimiter(
		redisClient,
		middleware.DefaultLoginRateLimitConfig(),
		"keygate:ratelimit:login",
		requestLogger,
	)
	if metrics != nil {
		limiter.OnReject(metrics.RecordRateLimitReject)
	}

	server := api.NewServer(api.Config{
		TokenTTL: cfg.Auth.TokenTTL,
		CodeTTL:  cfg.Auth.CodeTTL,
		DevMode:  cfg.Auth.DevMode,
	}, usersSvc, tenantsSvc, projectsSvc, issuer, limiter, metrics, requestLogger)

	handler := server.Handler()
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "keygate")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes and scrapes
	opsMux := http.NewServeMux()
	observability.NewHealthChecker(db, redisClient).RegisterHealthRoutes(opsMux)
	if metrics != nil {
		metrics.RegisterMetricsEndpoint(opsMux)
	}
	opsServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: opsMux,
	}

	if metrics != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				metrics.ObserveDBStats(db.Stats())
			}
		}()
	}

	sweeper := jobs.NewCodeSweeper(userStore, requestLogger)
	if err := sweeper.Start(sweepSchedule); err != nil {
		return fmt.Errorf("failed to start code sweeper: %w", err)
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer(apiServer)
	shutdown.RegisterServer(opsServer)
	shutdown.RegisterFunc(sweeper.Stop)
	shutdown.RegisterFunc(providers.ShutdownOTel)
	shutdown.RegisterFunc(func(ctx context.Context) error { return redisClient.Close() })
	shutdown.RegisterFunc(func(ctx context.Context) error { return db.Close() })

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", opsServer.Addr).Info("ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		shutdown.Wait()
		return nil
	})

	return group.Wait()
}
