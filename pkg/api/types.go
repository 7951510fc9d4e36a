package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// flexString accepts a JSON string or number. Phones and codes are often
// posted as bare numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status        string    `json:"status"`
	Mode          string    `json:"mode"`
	Provider      string    `json:"provider"`
	EnabledSend   bool      `json:"enabledSend"`
	EnabledVerify bool      `json:"enabledVerify"`
	Timestamp     time.Time `json:"timestamp"`
}

// ConfigStatusResponse is returned by GET /api/sms/config/status
type ConfigStatusResponse struct {
	Mode          string `json:"mode"`
	Provider      string `json:"provider"`
	SenderID      string `json:"senderId"`
	EnabledSend   bool   `json:"enabledSend"`
	EnabledVerify bool   `json:"enabledVerify"`
}

// SendOTPRequest is the body of POST /api/sms/sendOtp
type SendOTPRequest struct {
	Phone   flexString `json:"phone"`
	Purpose string     `json:"purpose,omitempty"`
}

// SendOTPResponse is the success body of POST /api/sms/sendOtp
type SendOTPResponse struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

// VerifyOTPRequest is the body of POST /api/sms/verifyOtp
type VerifyOTPRequest struct {
	Phone     flexString `json:"phone"`
	RequestID string     `json:"requestId"`
	OTP       flexString `json:"otp"`
}

// VerifyOTPResponse is the success body of POST /api/sms/verifyOtp
type VerifyOTPResponse struct {
	Status string `json:"status"`
}

// UpsertAgentRequest is the body of POST /api/sms/agent/upsert
type UpsertAgentRequest struct {
	Phone flexString `json:"phone"`
	Name  string     `json:"name,omitempty"`
}

// UpdateEmailRequest is the body of POST /api/auth/update-email
type UpdateEmailRequest struct {
	UserID   string `json:"userId"`
	NewEmail string `json:"newEmail"`
}

// UpdateEmailResponse is the success body of POST /api/auth/update-email
type UpdateEmailResponse struct {
	OK    bool   `json:"ok"`
	Email string `json:"email"`
}
