package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/otpgate/pkg/settings"
)

func TestForConfig(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		p, err := ForConfig(settings.OTPConfig{Mode: settings.ModeMock, Provider: "2factor"}, nil, 0)
		require.NoError(t, err)
		assert.IsType(t, &MockProvider{}, p)
		assert.Equal(t, "2factor", p.Name())
	})

	t.Run("live without key", func(t *testing.T) {
		_, err := ForConfig(settings.OTPConfig{Mode: settings.ModeLive}, nil, 0)
		assert.True(t, errors.Is(err, ErrNotConfigured))
	})

	t.Run("live", func(t *testing.T) {
		p, err := ForConfig(settings.OTPConfig{Mode: settings.ModeLive, APIKey: "k", Provider: "2factor"}, nil, 0)
		require.NoError(t, err)
		assert.IsType(t, &LiveProvider{}, p)
	})
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider("")
	p.now = func() time.Time { return time.UnixMilli(1700000000123) }

	res := p.Send(context.Background(), "+919876543210", "")
	assert.True(t, res.OK)
	assert.Equal(t, "mock_1700000000123", res.RequestID)
	assert.Equal(t, "mock", p.Name())

	res = p.Verify(context.Background(), "+919876543210", "mock_1", "000000")
	assert.True(t, res.OK)
}

func TestComposeMessage(t *testing.T) {
	assert.Equal(t, "Your OTP is 004213", ComposeMessage("Your OTP is {otp}", "004213"))
	assert.Equal(t, "004213 / 004213", ComposeMessage("{otp} / {otp}", "004213"))
	assert.Equal(t, "no placeholder", ComposeMessage("no placeholder", "1"))
}

func TestMapFailure(t *testing.T) {
	tests := []struct {
		name        string
		op          Operation
		res         Result
		wantStatus  int
		wantMessage string
		wantCode    string
	}{
		{"send rate limited", OpSend, Result{StatusCode: 429}, 429, "rate limit exceeded", CodeRateLimited},
		{"verify rate limited", OpVerify, Result{StatusCode: 429}, 429, "rate limit exceeded", CodeRateLimited},
		{"send auth", OpSend, Result{StatusCode: 401}, 401, "authentication failed", CodeAuthFailed},
		{"verify auth", OpVerify, Result{StatusCode: 401, Error: "Invalid API Key"}, 401, "authentication failed", CodeAuthFailed},
		{"send timeout", OpSend, Result{Timeout: true}, 500, "internal error", CodeTimeout},
		{"verify unreachable", OpVerify, Result{}, 500, "internal error", CodeUnreachable},
		{"verify expired", OpVerify, Result{StatusCode: 200, Error: "OTP Expired"}, 400, "OTP expired", CodeOTPExpired},
		{"verify mismatch", OpVerify, Result{StatusCode: 200, Error: "OTP Mismatch"}, 400, "invalid OTP", CodeOTPInvalid},
		{"send expired text is not special", OpSend, Result{StatusCode: 400, Error: "key expired"}, 500, "failed to send OTP", CodeSendFailed},
		{"send other", OpSend, Result{StatusCode: 502}, 500, "failed to send OTP", CodeSendFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message, code := MapFailure(tt.op, tt.res)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, message)
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, strings.Contains(message, "\n"))
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient()
	require.NotNil(t, c.Transport)
	_, plain := c.Transport.(*http.Transport)
	assert.True(t, plain, "provider requests must not pass through a tracing transport")
}
