package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/otpgate/pkg/api"
	"github.com/platinummonkey/otpgate/pkg/async"
	"github.com/platinummonkey/otpgate/pkg/audit"
	"github.com/platinummonkey/otpgate/pkg/config"
	"github.com/platinummonkey/otpgate/pkg/identity"
	"github.com/platinummonkey/otpgate/pkg/middleware"
	"github.com/platinummonkey/otpgate/pkg/observability"
	"github.com/platinummonkey/otpgate/pkg/otp"
	"github.com/platinummonkey/otpgate/pkg/provider"
	"github.com/platinummonkey/otpgate/pkg/ratelimit"
	"github.com/platinummonkey/otpgate/pkg/settings"
	"github.com/platinummonkey/otpgate/pkg/storage"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var logger *observability.Logger
	if cfg.Observability.LogFormat == "text" {
		logger = observability.NewTextLogger(cfg.Observability.LogLevel, os.Stdout)
	} else {
		logger = observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("otpgate exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db, cfg.Storage.Driver); err != nil {
		return err
	}
	logger.Infof("Storage ready (driver: %s)", cfg.Storage.Driver)

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = storage.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	// Settings
	var store settings.Store
	if cfg.OTP.SettingsSource == "file" {
		store = settings.NewFileStore(cfg.OTP.SettingsFile)
	} else {
		store = settings.NewSQLStore(db, cfg.OTP.SettingsKey)
	}
	manager := settings.NewManager(cfg.OTP.Defaults, store, logger, metrics)
	initial := manager.Load(ctx)
	logger.WithFields(map[string]interface{}{
		"mode":     initial.Mode,
		"provider": initial.Provider,
	}).Info("Settings loaded")

	// Rate limiting
	ipLimiter, phoneLimiter, sweepers, err := buildLimiters(cfg, redisClient)
	if err != nil {
		return err
	}
	scheduler := cron.New()
	if len(sweepers) > 0 {
		if _, err := ratelimit.ScheduleSweep(scheduler, sweepInterval, logger, sweepers...); err != nil {
			return fmt.Errorf("failed to schedule limiter sweep: %w", err)
		}
	}
	scheduler.Start()

	// Audit
	writer, err := buildAuditWriter(cfg, db)
	if err != nil {
		return err
	}
	// The recorder outlives the signal context so queued attempts drain on Close.
	recorder := audit.NewRecorder(observability.WithLogger(context.Background(), logger), writer, audit.RecorderConfig{
		Workers:   cfg.Audit.Workers,
		QueueSize: cfg.Audit.QueueSize,
	}, logger, metrics)

	orchestrator := otp.NewOrchestrator(otp.Options{
		Config:      manager,
		Recorder:    recorder,
		HTTPClient:  provider.NewHTTPClient(),
		Timeout:     cfg.OTP.ProviderTimeout,
		CountryCode: cfg.OTP.CountryCode,
		Logger:      logger,
		Metrics:     metrics,
	})

	provisioner := identity.NewProvisioner(identity.NewSQLStore(db), identity.Options{
		AliasDomain: cfg.Identity.AliasDomain,
		CountryCode: cfg.OTP.CountryCode,
		Logger:      logger,
		Metrics:     metrics,
	})

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	apiServer := api.NewServer(api.Options{
		Settings:       manager,
		OTP:            orchestrator,
		Identity:       provisioner,
		IPLimiter:      ipLimiter,
		PhoneLimiter:   phoneLimiter,
		TrustedProxies: trustedProxies,
		CountryCode:    cfg.OTP.CountryCode,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         logger,
		Metrics:        metrics,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(apiServer, "otpgate"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	opsServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.OpsPort),
		Handler:      opsMux(db, redisClient, registry, cfg.Observability.MetricsEnabled, manager),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Starting otpgate API on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Infof("Starting ops server on %s", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	if fs, ok := store.(*settings.FileStore); ok {
		g.Go(func() error {
			return manager.Watch(gctx, fs.Path())
		})
	}

	g.Go(func() error {
		drainFailures(gctx, recorder.Failures(), logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
		}
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("ops server shutdown: %w", err))
		}

		<-scheduler.Stop().Done()

		if err := recorder.Close(cfg.Server.ShutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("audit recorder close: %w", err))
		}
		if err := observability.ShutdownOTel(shutdownCtx, otelProviders, logger); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	// Warm the provider path so a misconfigured live setup shows up at boot.
	async.SafeGo(ctx, 5*time.Second, "provider check", func(ctx context.Context) error {
		current := manager.Current()
		if _, err := provider.ForConfig(current, nil, cfg.OTP.ProviderTimeout); err != nil {
			logger.WithError(err).Warn("provider is not configured, live requests will fail")
		}
		return nil
	})

	err = g.Wait()
	logger.Info("otpgate stopped")
	return err
}

func buildLimiters(cfg *config.Config, client *redis.Client) (ratelimit.Limiter, ratelimit.Limiter, []ratelimit.Sweeper, error) {
	ipPolicy := ratelimit.Policy{Limit: cfg.RateLimit.IPLimit, Window: cfg.RateLimit.IPWindow}
	phonePolicy := ratelimit.Policy{Limit: cfg.RateLimit.PhoneLimit, Window: cfg.RateLimit.PhoneWindow}

	if cfg.RateLimit.Backend == "redis" {
		ip, err := ratelimit.NewRedisLimiter(client, ipPolicy, "otpgate:rl:ip")
		if err != nil {
			return nil, nil, nil, err
		}
		ph, err := ratelimit.NewRedisLimiter(client, phonePolicy, "otpgate:rl:phone")
		if err != nil {
			return nil, nil, nil, err
		}
		return ip, ph, nil, nil
	}

	ip, err := ratelimit.NewMemoryLimiter(ipPolicy, cfg.RateLimit.Capacity)
	if err != nil {
		return nil, nil, nil, err
	}
	ph, err := ratelimit.NewMemoryLimiter(phonePolicy, cfg.RateLimit.Capacity)
	if err != nil {
		return nil, nil, nil, err
	}
	return ip, ph, []ratelimit.Sweeper{ip, ph}, nil
}

func buildAuditWriter(cfg *config.Config, db *sql.DB) (audit.Writer, error) {
	dbWriter, err := audit.NewDBWriter(db)
	if err != nil {
		return nil, err
	}
	if cfg.Audit.FileDir == "" {
		return dbWriter, nil
	}

	fileCfg := audit.DefaultFileWriterConfig()
	fileCfg.BasePath = cfg.Audit.FileDir
	fileWriter, err := audit.NewFileWriter(fileCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return audit.NewMultiWriter(dbWriter, fileWriter), nil
}

func opsMux(db *sql.DB, client *redis.Client, registry *prometheus.Registry, metricsEnabled bool, manager *settings.Manager) *http.ServeMux {
	mux := http.NewServeMux()
	if metricsEnabled {
		observability.RegisterMetricsEndpoint(mux, registry)
	}

	checker := observability.NewHealthChecker(db, client)
	checker.AddCheck("provider", false, func(ctx context.Context) error {
		_, err := provider.ForConfig(manager.Current(), nil, 0)
		return err
	})
	observability.RegisterHealthRoutes(mux, checker)
	return mux
}

func drainFailures(ctx context.Context, failures <-chan audit.Failure, logger *observability.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-failures:
			if !ok {
				return
			}
			logger.WithError(f.Err).WithFields(map[string]interface{}{
				"reason": f.Reason,
				"phone":  f.Attempt.Phone,
				"mode":   f.Attempt.Mode,
			}).Warn("audit attempt dropped")
		}
	}
}
