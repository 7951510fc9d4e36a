package api

import (
	"net/http"
	"time"

	"github.com/platinummonkey/otpgate/pkg/contextkeys"
	"github.com/platinummonkey/otpgate/pkg/httputil"
	"github.com/platinummonkey/otpgate/pkg/otp"
)

// health handles GET /health. It reports the snapshot in memory without
// reloading so it stays cheap for probes.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Current()
	httputil.WriteSuccess(w, HealthResponse{
		Status:        "ok",
		Mode:          string(cfg.Mode),
		Provider:      cfg.Provider,
		EnabledSend:   cfg.SendEnabled,
		EnabledVerify: cfg.VerifyEnabled,
		Timestamp:     time.Now().UTC(),
	})
}

// configStatus handles GET /api/sms/config/status
func (s *Server) configStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Load(r.Context())
	httputil.WriteSuccess(w, ConfigStatusResponse{
		Mode:          string(cfg.Mode),
		Provider:      cfg.Provider,
		SenderID:      cfg.SenderID,
		EnabledSend:   cfg.SendEnabled,
		EnabledVerify: cfg.VerifyEnabled,
	})
}

func clientFromRequest(r *http.Request) otp.Client {
	return otp.Client{
		IPAddress: contextkeys.GetClientIP(r.Context()),
		UserAgent: r.UserAgent(),
	}
}

func writeResult(w http.ResponseWriter, res otp.Result) {
	httputil.WriteErrorBody(w, res.HTTPStatus(), res.Message, res.ProviderError)
}

// sendOTP handles POST /api/sms/sendOtp
func (s *Server) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	res := s.otp.Send(r.Context(), otp.SendRequest{
		Phone:   string(req.Phone),
		Purpose: req.Purpose,
		Client:  clientFromRequest(r),
	})
	if res.Kind != otp.KindSent {
		writeResult(w, res)
		return
	}

	httputil.WriteSuccess(w, SendOTPResponse{RequestID: res.RequestID, Status: "sent"})
}

// verifyOTP handles POST /api/sms/verifyOtp
func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	res := s.otp.Verify(r.Context(), otp.VerifyRequest{
		Phone:     string(req.Phone),
		RequestID: req.RequestID,
		OTP:       string(req.OTP),
		Client:    clientFromRequest(r),
	})
	if res.Kind != otp.KindVerified {
		writeResult(w, res)
		return
	}

	httputil.WriteSuccess(w, VerifyOTPResponse{Status: "verified"})
}
