package settings

import (
	"strings"
)

// Mode selects the provider backend
type Mode string

const (
	// ModeMock never touches the network and always succeeds
	ModeMock Mode = "mock"
	// ModeLive calls the configured SMS provider
	ModeLive Mode = "live"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeMock || m == ModeLive
}

// ParseMode parses a mode name, returning false for unknown names
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// OTPConfig is one snapshot of the provider settings. Treat it as a value;
// Manager hands out copies.
type OTPConfig struct {
	Provider      string `json:"provider" yaml:"provider"`
	Mode          Mode   `json:"mode" yaml:"mode"`
	APIKey        string `json:"apiKey" yaml:"apiKey"`
	SenderID      string `json:"senderId" yaml:"senderId"`
	TemplateText  string `json:"templateText" yaml:"templateText"`
	SendEnabled   bool   `json:"sendEnabled" yaml:"sendEnabled"`
	VerifyEnabled bool   `json:"verifyEnabled" yaml:"verifyEnabled"`
	BaseURL       string `json:"baseUrl" yaml:"baseUrl"`
}

// HasCredentials reports whether a live provider can be called
func (c OTPConfig) HasCredentials() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Record is a partial update read from a Store. Nil fields leave the
// corresponding snapshot field unchanged.
type Record struct {
	Provider      *string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Mode          *string `json:"mode,omitempty" yaml:"mode,omitempty"`
	APIKey        *string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	SenderID      *string `json:"senderId,omitempty" yaml:"senderId,omitempty"`
	TemplateText  *string `json:"templateText,omitempty" yaml:"templateText,omitempty"`
	SendEnabled   *bool   `json:"sendEnabled,omitempty" yaml:"sendEnabled,omitempty"`
	VerifyEnabled *bool   `json:"verifyEnabled,omitempty" yaml:"verifyEnabled,omitempty"`
	BaseURL       *string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
}

// Apply returns base with the present fields of r merged in. An unknown mode
// is ignored.
func (r Record) Apply(base OTPConfig) OTPConfig {
	out := base
	if r.Provider != nil {
		out.Provider = *r.Provider
	}
	if r.Mode != nil {
		if m, ok := ParseMode(*r.Mode); ok {
			out.Mode = m
		}
	}
	if r.APIKey != nil {
		out.APIKey = *r.APIKey
	}
	if r.SenderID != nil {
		out.SenderID = *r.SenderID
	}
	if r.TemplateText != nil {
		out.TemplateText = *r.TemplateText
	}
	if r.SendEnabled != nil {
		out.SendEnabled = *r.SendEnabled
	}
	if r.VerifyEnabled != nil {
		out.VerifyEnabled = *r.VerifyEnabled
	}
	if r.BaseURL != nil {
		out.BaseURL = *r.BaseURL
	}
	return out
}
