package audit

import (
	"context"
	"time"
)

// Mode is the OTP operation an attempt belongs to
type Mode string

const (
	ModeSend   Mode = "send"
	ModeVerify Mode = "verify"
)

// Status is the outcome of an attempt
type Status string

const (
	StatusSent     Status = "sent"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

// Attempt is one audited OTP operation
type Attempt struct {
	ID           int64     `json:"id,omitempty"`
	Phone        string    `json:"phone"`
	Mode         Mode      `json:"mode"`
	Provider     string    `json:"provider"`
	RequestID    string    `json:"requestId,omitempty"`
	Status       Status    `json:"status"`
	ErrorCode    string    `json:"errorCode,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	OTPLast2     string    `json:"otpLast2,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Writer persists attempts
type Writer interface {
	Write(ctx context.Context, attempt *Attempt) error
	Close() error
}

// Last2 returns the last two characters of an OTP, or "" when the code is
// shorter than that.
func Last2(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[len(code)-2:]
}
