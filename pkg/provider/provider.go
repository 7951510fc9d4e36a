package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/otpgate/pkg/settings"
)

// ErrNotConfigured is returned when live mode has no API key
var ErrNotConfigured = errors.New("provider not configured")

// Operation names a provider call
type Operation string

const (
	OpSend   Operation = "send"
	OpVerify Operation = "verify"
)

// Result is the normalized outcome of a provider call
type Result struct {
	// RequestID identifies the OTP challenge (send only)
	RequestID string
	OK        bool
	// StatusCode is the upstream HTTP status, 0 when no response arrived
	StatusCode int
	// Error is the upstream message, forwarded to callers as providerError
	Error string
	// Timeout is set when the call was aborted by the deadline
	Timeout bool
}

// Provider sends and verifies OTP codes
type Provider interface {
	Name() string
	Send(ctx context.Context, phone, code string) Result
	Verify(ctx context.Context, phone, requestID, code string) Result
}

// ForConfig returns the provider selected by cfg.Mode
func ForConfig(cfg settings.OTPConfig, client *http.Client, timeout time.Duration) (Provider, error) {
	if cfg.Mode != settings.ModeLive {
		return NewMockProvider(cfg.Provider), nil
	}
	if !cfg.HasCredentials() {
		return nil, ErrNotConfigured
	}
	return NewLiveProvider(cfg, client, timeout), nil
}

// ComposeMessage replaces every {otp} placeholder in template with code
func ComposeMessage(template, code string) string {
	return strings.ReplaceAll(template, "{otp}", code)
}

// Error codes recorded with failed attempts
const (
	CodeTimeout       = "provider_timeout"
	CodeUnreachable   = "provider_unreachable"
	CodeRateLimited   = "provider_rate_limited"
	CodeAuthFailed    = "provider_auth_failed"
	CodeOTPExpired    = "otp_expired"
	CodeOTPInvalid    = "otp_invalid"
	CodeSendFailed    = "send_failed"
	CodeNotConfigured = "provider_not_configured"
)

// MapFailure classifies a failed result into an HTTP status, a caller-facing
// message and an audit error code
func MapFailure(op Operation, res Result) (status int, message, code string) {
	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return http.StatusTooManyRequests, "rate limit exceeded", CodeRateLimited
	case res.StatusCode == http.StatusUnauthorized:
		return http.StatusUnauthorized, "authentication failed", CodeAuthFailed
	case res.StatusCode == 0:
		if res.Timeout {
			return http.StatusInternalServerError, "internal error", CodeTimeout
		}
		return http.StatusInternalServerError, "internal error", CodeUnreachable
	}

	if op == OpVerify {
		if strings.Contains(strings.ToLower(res.Error), "expired") {
			return http.StatusBadRequest, "OTP expired", CodeOTPExpired
		}
		return http.StatusBadRequest, "invalid OTP", CodeOTPInvalid
	}
	return http.StatusInternalServerError, "failed to send OTP", CodeSendFailed
}
