package otp

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/otpgate/pkg/audit"
	"github.com/platinummonkey/otpgate/pkg/phone"
	"github.com/platinummonkey/otpgate/pkg/provider"
	"github.com/platinummonkey/otpgate/pkg/settings"
)

// verifyFlow carries one verify through its states
type verifyFlow struct {
	o     *Orchestrator
	req   VerifyRequest
	state State
	phone string
}

// Verify checks a submitted code with the provider. Missing fields and
// unusable phones are rejected before anything is audited.
func (o *Orchestrator) Verify(ctx context.Context, req VerifyRequest) Result {
	ctx, span := o.tracer.Start(ctx, "otp.verify")
	defer span.End()

	f := &verifyFlow{o: o, req: req, state: StateReceived}
	var res Result
	for f.state != StateCompleted {
		res = f.step(ctx)
	}
	span.SetAttributes(attribute.String("otp.result", string(res.Kind)))
	return res
}

func (f *verifyFlow) step(ctx context.Context) Result {
	switch f.state {
	case StateReceived:
		f.state = StateCompleted
		f.req.RequestID = strings.TrimSpace(f.req.RequestID)
		f.req.OTP = strings.TrimSpace(f.req.OTP)
		if strings.TrimSpace(f.req.Phone) == "" || f.req.RequestID == "" || f.req.OTP == "" {
			return invalid(CodeMissingFields, "phone, requestId and otp are required")
		}
		f.phone = phone.Normalize(f.req.Phone, f.o.countryCode)
		if !phone.IsValid(f.phone) {
			return invalid(CodeInvalidPhone, "invalid phone")
		}
		f.state = StateValidated
		return Result{}
	case StateValidated:
		f.state = StateCompleted
		res := f.dispatch(ctx, f.o.loadConfig(ctx))
		res.Phone = f.phone
		if res.RequestID == "" {
			res.RequestID = f.req.RequestID
		}
		// The submitted code is never persisted, not even in part.
		return f.o.complete(ctx, audit.ModeVerify, f.req.Client, res, "")
	default:
		f.state = StateCompleted
		return Result{}
	}
}

func (f *verifyFlow) dispatch(ctx context.Context, cfg settings.OTPConfig) Result {
	// Mock mode succeeds ahead of the toggle so local flows keep working.
	if cfg.Mode != settings.ModeLive {
		p, err := f.o.providers(cfg)
		if err != nil {
			return unconfigured()
		}
		return f.call(ctx, p)
	}

	if !cfg.VerifyEnabled {
		return Result{
			Kind:     KindDisabled,
			Provider: cfg.Provider,
			Message:  "OTP verification is disabled",
			Code:     CodeVerifyDisabled,
		}
	}

	p, err := f.o.providers(cfg)
	if err != nil {
		res := unconfigured()
		res.Provider = cfg.Provider
		if !errors.Is(err, provider.ErrNotConfigured) {
			res.ProviderError = err.Error()
		}
		return res
	}
	return f.call(ctx, p)
}

func (f *verifyFlow) call(ctx context.Context, p provider.Provider) Result {
	pr := f.o.callProvider(ctx, p, provider.OpVerify, func(ctx context.Context) provider.Result {
		return p.Verify(ctx, f.phone, f.req.RequestID, f.req.OTP)
	})
	if !pr.OK {
		res := failure(provider.OpVerify, pr)
		res.Provider = p.Name()
		return res
	}
	return Result{Kind: KindVerified, RequestID: f.req.RequestID, Provider: p.Name()}
}
