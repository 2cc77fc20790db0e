// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health probes, and graceful shutdown.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("tenant_id", id).Info("tenant resolved")
//
// Handlers retrieve a request-scoped logger with observability.FromContext,
// which carries the request ID and user ID when the middleware chain has
// stored them.
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics()
//	metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
//	metrics.RLSBindingsTotal.WithLabelValues("ok").Inc()
//
// The registry is private to the Metrics value; expose it with
// metrics.Handler() on the health server.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// Liveness always succeeds while the process runs; readiness probes postgres
// and, when configured, redis.
package observability
