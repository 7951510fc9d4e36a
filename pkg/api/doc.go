// Package api provides the HTTP API of the OTP gateway.
//
// # Overview
//
// Server is a gorilla/mux router wrapped in the gateway middleware stack:
// request ids, access logging, panic recovery, metrics, CORS, body size cap,
// client IP extraction and the coarse per-IP rate limit. The OTP routes are
// additionally limited per normalized phone number.
//
// # Routes
//
//	GET  /health                   liveness plus the current settings snapshot
//	GET  /api/sms/config/status    reloads settings and reports them
//	POST /api/sms/sendOtp          {phone, purpose?}          -> {requestId, status}
//	POST /api/sms/verifyOtp        {phone, requestId, otp}    -> {status}
//	POST /api/sms/agent/upsert     {phone, name?}             -> {email, password, userId}
//	POST /api/auth/update-email    {userId, newEmail}         -> {ok, email}
//
// Errors are always {"error": "...", "providerError": "..."} with
// providerError present only when an upstream provider supplied a message.
//
// # Usage
//
//	server := api.NewServer(api.Options{
//		Settings: manager,
//		OTP:      orchestrator,
//		Identity: provisioner,
//	})
//	http.ListenAndServe(":8080", server.Handler())
package api
