package otp

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/otpgate/pkg/audit"
	"github.com/platinummonkey/otpgate/pkg/observability"
	"github.com/platinummonkey/otpgate/pkg/phone"
	"github.com/platinummonkey/otpgate/pkg/provider"
	"github.com/platinummonkey/otpgate/pkg/settings"
)

// ConfigSource returns a freshly reloaded settings snapshot
type ConfigSource interface {
	Load(ctx context.Context) settings.OTPConfig
}

// Recorder accepts audit attempts without blocking
type Recorder interface {
	Record(ctx context.Context, attempt audit.Attempt)
}

// ProviderFactory selects the provider for one settings snapshot
type ProviderFactory func(cfg settings.OTPConfig) (provider.Provider, error)

// Options configures an Orchestrator
type Options struct {
	Config   ConfigSource
	Recorder Recorder
	// Providers defaults to provider.ForConfig with HTTPClient and Timeout
	Providers   ProviderFactory
	HTTPClient  *http.Client
	Timeout     time.Duration
	CountryCode string
	Logger      *observability.Logger
	Metrics     *observability.Metrics
}

// Orchestrator runs the send and verify flows
type Orchestrator struct {
	config      ConfigSource
	recorder    Recorder
	providers   ProviderFactory
	countryCode string
	logger      *observability.Logger
	metrics     *observability.Metrics
	tracer      trace.Tracer
	generate    func() (string, error)
	now         func() time.Time
}

type discardRecorder struct{}

func (discardRecorder) Record(context.Context, audit.Attempt) {}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = observability.Nop()
	}
	if opts.Recorder == nil {
		opts.Recorder = discardRecorder{}
	}
	if opts.CountryCode == "" {
		opts.CountryCode = phone.DefaultCountryCode
	}
	if opts.Providers == nil {
		client, timeout := opts.HTTPClient, opts.Timeout
		if client == nil {
			client = provider.NewHTTPClient()
		}
		opts.Providers = func(cfg settings.OTPConfig) (provider.Provider, error) {
			return provider.ForConfig(cfg, client, timeout)
		}
	}

	return &Orchestrator{
		config:      opts.Config,
		recorder:    opts.Recorder,
		providers:   opts.Providers,
		countryCode: opts.CountryCode,
		logger:      opts.Logger.WithField("component", "otp"),
		metrics:     opts.Metrics,
		tracer:      otel.Tracer("github.com/platinummonkey/otpgate/pkg/otp"),
		generate:    GenerateCode,
		now:         time.Now,
	}
}

// Client identifies the caller of a flow for the audit trail
type Client struct {
	IPAddress string
	UserAgent string
}

// SendRequest is the input of the send flow
type SendRequest struct {
	Phone   string
	Purpose string
	Client  Client
}

// VerifyRequest is the input of the verify flow
type VerifyRequest struct {
	Phone     string
	RequestID string
	OTP       string
	Client    Client
}

func (o *Orchestrator) loadConfig(ctx context.Context) settings.OTPConfig {
	if o.config == nil {
		return settings.OTPConfig{Mode: settings.ModeMock, SendEnabled: true, VerifyEnabled: true}
	}
	return o.config.Load(ctx)
}

// callProvider times a provider call and records latency and failures
func (o *Orchestrator) callProvider(ctx context.Context, p provider.Provider, op provider.Operation, call func(context.Context) provider.Result) provider.Result {
	ctx, span := o.tracer.Start(ctx, "provider."+string(op), trace.WithAttributes(
		attribute.String("otp.provider", p.Name()),
	))
	defer span.End()

	start := o.now()
	res := call(ctx)
	duration := o.now().Sub(start)

	code := ""
	if !res.OK {
		_, _, code = provider.MapFailure(op, res)
		span.SetAttributes(attribute.String("otp.error_code", code))
	}
	o.metrics.RecordProviderCall(p.Name(), string(op), duration, code)
	return res
}

// complete records the attempt for res and returns res
func (o *Orchestrator) complete(ctx context.Context, mode audit.Mode, client Client, res Result, last2 string) Result {
	status := audit.StatusFailed
	switch res.Kind {
	case KindSent:
		status = audit.StatusSent
	case KindVerified:
		status = audit.StatusVerified
	}

	attempt := audit.Attempt{
		Phone:     res.Phone,
		Mode:      mode,
		Provider:  res.Provider,
		RequestID: res.RequestID,
		Status:    status,
		OTPLast2:  last2,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: o.now().UTC(),
	}
	if status == audit.StatusFailed {
		attempt.ErrorCode = res.Code
		attempt.ErrorMessage = res.Message
		if res.ProviderError != "" {
			attempt.ErrorMessage = res.Message + ": " + res.ProviderError
		}
	}

	o.recorder.Record(ctx, attempt)
	o.metrics.RecordOTPAttempt(string(mode), string(status))

	logger := observability.WithTraceContext(ctx, o.logger).WithFields(map[string]interface{}{
		"mode":     string(mode),
		"phone":    res.Phone,
		"provider": res.Provider,
		"status":   string(status),
	})
	if status == audit.StatusFailed {
		logger.WithField("error_code", res.Code).Warn("otp attempt failed")
	} else {
		logger.Info("otp attempt completed")
	}
	return res
}

func failure(op provider.Operation, res provider.Result) Result {
	status, message, code := provider.MapFailure(op, res)
	return Result{
		Kind:          KindProviderFailure,
		RequestID:     res.RequestID,
		Status:        status,
		Message:       message,
		ProviderError: res.Error,
		Code:          code,
	}
}

func unconfigured() Result {
	return Result{
		Kind:    KindUnconfigured,
		Message: "provider not configured",
		Code:    provider.CodeNotConfigured,
	}
}
