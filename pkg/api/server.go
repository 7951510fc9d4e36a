package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/otpgate/pkg/httputil"
	"github.com/platinummonkey/otpgate/pkg/identity"
	"github.com/platinummonkey/otpgate/pkg/middleware"
	"github.com/platinummonkey/otpgate/pkg/observability"
	"github.com/platinummonkey/otpgate/pkg/otp"
	"github.com/platinummonkey/otpgate/pkg/phone"
	"github.com/platinummonkey/otpgate/pkg/ratelimit"
	"github.com/platinummonkey/otpgate/pkg/settings"
)

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is zero
const DefaultMaxBodyBytes = 1 << 20

// SettingsSource exposes the settings snapshot
type SettingsSource interface {
	Current() settings.OTPConfig
	Load(ctx context.Context) settings.OTPConfig
}

// OTPService runs the send and verify flows
type OTPService interface {
	Send(ctx context.Context, req otp.SendRequest) otp.Result
	Verify(ctx context.Context, req otp.VerifyRequest) otp.Result
}

// IdentityService provisions agents and updates their email
type IdentityService interface {
	EnsureAgentIdentity(ctx context.Context, phone, displayName string) (*identity.Credentials, error)
	UpdateEmail(ctx context.Context, userID, newEmail string) (string, error)
}

// Options wires a Server
type Options struct {
	Settings SettingsSource
	OTP      OTPService
	Identity IdentityService

	// IPLimiter applies to every route, PhoneLimiter to send and verify.
	// Nil disables the limiter.
	IPLimiter    ratelimit.Limiter
	PhoneLimiter ratelimit.Limiter

	// TrustedProxies are the peers allowed to set X-Forwarded-For and
	// X-Real-IP. Empty means the connection address is always used.
	TrustedProxies middleware.TrustedProxies

	CountryCode  string
	CORSOrigins  []string
	MaxBodyBytes int64
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

// Server is the gateway HTTP API
type Server struct {
	settings    SettingsSource
	otp         OTPService
	identity    IdentityService
	router      *mux.Router
	handler     http.Handler
	countryCode string
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// NewServer creates a server and its middleware stack
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.Nop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.CountryCode == "" {
		opts.CountryCode = phone.DefaultCountryCode
	}

	s := &Server{
		settings:    opts.Settings,
		otp:         opts.OTP,
		identity:    opts.Identity,
		router:      mux.NewRouter(),
		countryCode: opts.CountryCode,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}

	var phoneLimit func(http.Handler) http.Handler
	if opts.PhoneLimiter != nil {
		phoneLimit = middleware.NewRateLimitMiddleware(
			opts.PhoneLimiter,
			middleware.ScopePhone,
			middleware.PhoneKey(opts.CountryCode, opts.MaxBodyBytes),
			opts.Logger,
			opts.Metrics,
		).Handler
	}
	s.setupRoutes(phoneLimit)

	stack := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware(opts.Logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(opts.CORSOrigins),
		httputil.MaxBytesMiddleware(opts.MaxBodyBytes),
		middleware.ClientIPMiddleware(opts.TrustedProxies),
	}
	if opts.IPLimiter != nil {
		stack = append(stack, middleware.NewRateLimitMiddleware(
			opts.IPLimiter,
			middleware.ScopeIP,
			middleware.IPKey,
			opts.Logger,
			opts.Metrics,
		).Handler)
	}
	s.handler = httputil.Chain(stack...)(s.router)

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(phoneLimit func(http.Handler) http.Handler) {
	s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))

	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	sms := s.router.PathPrefix("/api/sms").Subrouter()
	sms.Use(httputil.ContentTypeMiddleware)
	sms.HandleFunc("/config/status", s.configStatus).Methods(http.MethodGet)
	sms.Handle("/sendOtp", limited(phoneLimit, http.HandlerFunc(s.sendOTP))).Methods(http.MethodPost)
	sms.Handle("/verifyOtp", limited(phoneLimit, http.HandlerFunc(s.verifyOTP))).Methods(http.MethodPost)
	sms.HandleFunc("/agent/upsert", s.upsertAgent).Methods(http.MethodPost)

	auth := s.router.PathPrefix("/api/auth").Subrouter()
	auth.Use(httputil.ContentTypeMiddleware)
	auth.HandleFunc("/update-email", s.updateEmail).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func limited(mw func(http.Handler) http.Handler, h http.Handler) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}

// Handler returns the router wrapped in the middleware stack
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
