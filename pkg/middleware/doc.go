// Package middleware provides the rate limiting middleware for the OTP API.
//
// # Overview
//
// Two limiter scopes run in front of the handlers:
//
//   - ip: every route, keyed by the client address
//   - phone: OTP send and verify routes, keyed by the normalized phone number
//     found in the JSON body or the phone query parameter, falling back to the
//     client address when the request carries no usable phone
//
// Both scopes reject before any handler code runs, so an abusive request
// never reaches the provider or the audit log.
//
//	ipLimit := middleware.NewRateLimitMiddleware(ipLimiter, middleware.ScopeIP, middleware.IPKey, logger, metrics)
//	phoneLimit := middleware.NewRateLimitMiddleware(phoneLimiter, middleware.ScopePhone,
//		middleware.PhoneKey("91", 1<<20), logger, metrics)
//
// # Client address
//
// The client address comes from the connection unless the peer is listed in
// TrustedProxies, in which case X-Forwarded-For (walked from the right,
// skipping trusted hops) or X-Real-IP is used. Without trusted proxies a
// caller cannot pick its own limiter key by sending forwarding headers.
//
// # Responses
//
// Allowed requests carry X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset. Rejected requests get 429, Retry-After and
// {"error":"too many requests"}.
//
// Limiter backend errors fail open: the request proceeds, the error is logged
// and counted in otpgate_ratelimit_errors_total.
package middleware
