// Package provider adapts SMS OTP backends to a single Send/Verify contract.
//
// # Implementations
//
//   - MockProvider never touches the network. Send returns a "mock_<millis>"
//     request id and Verify always succeeds.
//   - LiveProvider calls a 2Factor-style HTTP API. Every call is bounded by a
//     hard timeout; transport failures and timeouts come back as a failed
//     Result with StatusCode 0 instead of an error.
//
// ForConfig picks the implementation for one settings snapshot:
//
//	p, err := provider.ForConfig(cfg, client, 10*time.Second)
//	if errors.Is(err, provider.ErrNotConfigured) {
//		// live mode without an API key
//	}
//	res := p.Send(ctx, "+919876543210", "042917")
//
// # Failure mapping
//
// MapFailure turns a failed Result into the HTTP status, caller-facing
// message and audit error code:
//
//	429                      -> 429 "rate limit exceeded"   provider_rate_limited
//	401                      -> 401 "authentication failed" provider_auth_failed
//	no response              -> 500 "internal error"        provider_timeout | provider_unreachable
//	verify, "expired" in msg -> 400 "OTP expired"           otp_expired
//	verify, other            -> 400 "invalid OTP"           otp_invalid
//	send, other              -> 500 "failed to send OTP"    send_failed
package provider
