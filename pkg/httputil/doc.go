// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Helpers for JSON encoding/decoding, the shared error body and the
// middleware stack every route runs behind.
//
// # Response Helpers
//
// Every error response has the same shape:
//
//	{"error": "invalid OTP", "providerError": "OTP Mismatch"}
//
// providerError is omitted unless an upstream SMS provider supplied a
// message.
//
//	httputil.WriteSuccess(w, resp)
//	httputil.WriteBadRequest(w, "phone is required")
//	httputil.WriteErrorBody(w, http.StatusTooManyRequests, "rate limit exceeded", upstreamMsg)
//
// # Request Parsing
//
//	var req SendOTPRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
//
// CORSMiddleware accepts the configured origins and any localhost origin;
// any other Origin gets 403 before the route runs.
package httputil
