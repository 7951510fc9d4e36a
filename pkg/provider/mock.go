package provider

import (
	"context"
	"fmt"
	"time"
)

// MockProvider always succeeds without network access
type MockProvider struct {
	name string
	now  func() time.Time
}

// NewMockProvider creates a mock reporting name
func NewMockProvider(name string) *MockProvider {
	if name == "" {
		name = "mock"
	}
	return &MockProvider{name: name, now: time.Now}
}

// Name implements Provider
func (p *MockProvider) Name() string {
	return p.name
}

// Send implements Provider
func (p *MockProvider) Send(ctx context.Context, phone, code string) Result {
	return Result{
		RequestID:  fmt.Sprintf("mock_%d", p.now().UnixMilli()),
		OK:         true,
		StatusCode: 200,
	}
}

// Verify implements Provider
func (p *MockProvider) Verify(ctx context.Context, phone, requestID, code string) Result {
	return Result{RequestID: requestID, OK: true, StatusCode: 200}
}
