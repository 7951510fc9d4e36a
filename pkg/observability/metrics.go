package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// OTP metrics
	OTPAttemptsTotal        *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderFailuresTotal   *prometheus.CounterVec

	// Rate limiting
	RateLimitRejectionsTotal *prometheus.CounterVec
	RateLimitErrorsTotal     *prometheus.CounterVec

	// Audit
	AuditWritesTotal        prometheus.Counter
	AuditWriteFailuresTotal *prometheus.CounterVec

	// Settings
	SettingsReloadsTotal *prometheus.CounterVec

	// Identity provisioning
	ProvisioningTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpgate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otpgate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		OTPAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpgate_otp_attempts_total",
				Help: "OTP send/verify attempts by outcome",
			},
			[]string{"mode", "status"},
		),
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otpgate_provider_request_duration_seconds",
				Help:    "Latency of calls to the SMS provider",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"provider", "operation"},
		),
		ProviderFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpgate_provider_failures_total",
				Help: "Provider failures by error code",
			},
			[]string{"provider", "operation", "code"},
		),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpgate_rate_limit_rejections_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"scope"},
		),
		RateLimitErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpgate_rate_limit_errors_total",
				Help: "Rate limiter backend errors (requests were let through)",
			},
			[]string{"scope"},
		),

		AuditWritesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "otpgate_audit_writes_total",
				Help: "Audit records written",
			},
		),
		AuditWriteFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpgate_audit_write_failures_total",
				Help: "Audit records that could not be written",
			},
			[]string{"reason"},
		),

		SettingsReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpgate_settings_reloads_total",
				Help: "Settings reloads by result",
			},
			[]string{"result"},
		),

		ProvisioningTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpgate_identity_provisioning_total",
				Help: "Agent identity provisioning calls by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OTPAttemptsTotal,
		m.ProviderRequestDuration,
		m.ProviderFailuresTotal,
		m.RateLimitRejectionsTotal,
		m.RateLimitErrorsTotal,
		m.AuditWritesTotal,
		m.AuditWriteFailuresTotal,
		m.SettingsReloadsTotal,
		m.ProvisioningTotal,
	)

	return m
}

// RecordOTPAttempt counts an OTP attempt outcome
func (m *Metrics) RecordOTPAttempt(mode, status string) {
	if m == nil {
		return
	}
	m.OTPAttemptsTotal.WithLabelValues(mode, status).Inc()
}

// RecordProviderCall records provider latency and, when code is non-empty, a failure
func (m *Metrics) RecordProviderCall(provider, operation string, duration time.Duration, code string) {
	if m == nil {
		return
	}
	m.ProviderRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
	if code != "" {
		m.ProviderFailuresTotal.WithLabelValues(provider, operation, code).Inc()
	}
}

// RecordRateLimitRejection counts a rejected request for scope ("ip" or "phone")
func (m *Metrics) RecordRateLimitRejection(scope string) {
	if m == nil {
		return
	}
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// RecordRateLimitError counts a limiter backend failure for scope
func (m *Metrics) RecordRateLimitError(scope string) {
	if m == nil {
		return
	}
	m.RateLimitErrorsTotal.WithLabelValues(scope).Inc()
}

// RecordAuditWrite counts a successful audit write
func (m *Metrics) RecordAuditWrite() {
	if m == nil {
		return
	}
	m.AuditWritesTotal.Inc()
}

// RecordAuditFailure counts a dropped or failed audit write
func (m *Metrics) RecordAuditFailure(reason string) {
	if m == nil {
		return
	}
	m.AuditWriteFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordSettingsReload counts a settings reload result ("ok", "missing", "error")
func (m *Metrics) RecordSettingsReload(result string) {
	if m == nil {
		return
	}
	m.SettingsReloadsTotal.WithLabelValues(result).Inc()
}

// RecordProvisioning counts a provisioning result ("created", "updated", "error")
func (m *Metrics) RecordProvisioning(result string) {
	if m == nil {
		return
	}
	m.ProvisioningTotal.WithLabelValues(result).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Install it with router.Use so the matched route template is available as
// the path label.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := "unmatched"
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
