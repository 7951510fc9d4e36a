// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry setup for the gateway.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("phone", masked).Info("otp sent")
//
// Request handlers use FromContext to pick up the request id set by the
// request-id middleware:
//
//	observability.FromContext(r.Context()).Warn("settings reload failed")
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordOTPAttempt("send", "sent")
//	observability.RegisterMetricsEndpoint(opsMux, registry)
//
// # Health
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(opsMux, checker)
//
// # OpenTelemetry
//
// InitOTel installs OTLP gRPC trace and metric exporters when enabled.
// ShutdownOTel flushes them on exit.
package observability
