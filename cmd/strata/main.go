package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/strataops/strata/pkg/announcements"
	"github.com/strataops/strata/pkg/auth"
	"github.com/strataops/strata/pkg/config"
	"github.com/strataops/strata/pkg/httputil"
	"github.com/strataops/strata/pkg/middleware"
	"github.com/strataops/strata/pkg/observability"
	"github.com/strataops/strata/pkg/storage/postgres"
	"github.com/strataops/strata/pkg/tenant"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting strata API server")

	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	db, err := postgres.Open(postgres.ConnectionConfig{
		URL:             cfg.Database.PostgresURL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLife,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	})
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.WithError(err).Error("invalid redis URL")
			os.Exit(1)
		}
		if cfg.Cache.RedisPassword != "" {
			opts.Password = cfg.Cache.RedisPassword
		}
		opts.DB = cfg.Cache.RedisDB
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, membership cache will run L1-only")
		}
	}

	pool := postgres.NewRLSPool(db, logger,
		postgres.WithMetrics(metrics),
		postgres.WithAcquireTimeout(cfg.Database.AcquireTimeout),
	)

	verifier, err := auth.NewVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		logger.WithError(err).Error("failed to initialize token verifier")
		os.Exit(1)
	}

	var membershipStore tenant.MembershipStore = tenant.NewPostgresMembershipStore(db)
	if cfg.Cache.Enabled {
		membershipStore = tenant.NewCachedMembershipStore(membershipStore, redisClient, cfg.Cache.TTL).WithMetrics(metrics)
	}

	authMW := middleware.NewAuthMiddleware(verifier, logger, metrics)

	tenantOpts := []middleware.TenantOption{
		middleware.WithPublicPaths("/health", "/health/live", "/health/ready", "/metrics"),
	}
	if cfg.Auth.ValidateMembership {
		tenantOpts = append(tenantOpts, middleware.WithMembershipValidation(tenant.NewResolver(membershipStore)))
	}
	tenantMW := middleware.NewTenantMiddleware(logger, metrics, tenantOpts...)

	router := buildRouter(pool, logger, metrics, authMW, tenantMW)

	var apiHandler http.Handler = router
	if cfg.Observability.OTelEnabled {
		apiHandler = otelhttp.NewHandler(apiHandler, "strata-api")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	statsCtx, stopStats := context.WithCancel(ctx)
	go collectPoolStats(statsCtx, db, metrics)

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
		stopStats()
		return db.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
			return redisClient.Close()
		})
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
			return observability.ShutdownOTel(shutdownCtx, providers, logger)
		})
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown failed")
	}
	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

// buildRouter assembles the middleware chain and mounts the API routes
func buildRouter(pool *postgres.RLSPool, logger *observability.Logger, metrics *observability.Metrics, authMW *middleware.AuthMiddleware, tenantMW *middleware.TenantMiddleware) *mux.Router {
	router := mux.NewRouter()

	base := httputil.Chain(
		httputil.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware,
		httputil.LoggerInjectionMiddleware(logger),
		httputil.LoggingMiddleware(logger),
		metrics.Middleware,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(1<<20),
	)
	router.Use(mux.MiddlewareFunc(base))

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(mux.MiddlewareFunc(authMW.Handler))
	api.Use(mux.MiddlewareFunc(tenantMW.Handler))

	announcementHandlers := announcements.NewHandlers(pool, logger)
	manage := middleware.RequirePermission(tenant.PermManager, logger, metrics)

	api.HandleFunc("/announcements", announcementHandlers.List).Methods(http.MethodGet)
	api.HandleFunc("/announcements/{id}", announcementHandlers.Get).Methods(http.MethodGet)
	api.Handle("/announcements", manage(http.HandlerFunc(announcementHandlers.Create))).Methods(http.MethodPost)
	api.Handle("/announcements/{id}/publish", manage(http.HandlerFunc(announcementHandlers.Publish))).Methods(http.MethodPost)
	api.Handle("/announcements/{id}/pin", manage(http.HandlerFunc(announcementHandlers.Pin))).Methods(http.MethodPost)
	api.Handle("/announcements/{id}/pin", manage(http.HandlerFunc(announcementHandlers.Unpin))).Methods(http.MethodDelete)
	api.Handle("/announcements/{id}", manage(http.HandlerFunc(announcementHandlers.Delete))).Methods(http.MethodDelete)

	return router
}

// collectPoolStats feeds database pool statistics into the metrics gauges
func collectPoolStats(ctx context.Context, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.CollectDBStats(db.Stats())
		case <-ctx.Done():
			return
		}
	}
}
