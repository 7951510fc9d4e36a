package otp

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/otpgate/pkg/audit"
	"github.com/platinummonkey/otpgate/pkg/phone"
	"github.com/platinummonkey/otpgate/pkg/provider"
	"github.com/platinummonkey/otpgate/pkg/settings"
)

// sendFlow carries one send through its states
type sendFlow struct {
	o     *Orchestrator
	req   SendRequest
	state State
	phone string
	last2 string
}

// Send normalizes the phone, generates a code in live mode and dispatches
// it through the configured provider.
func (o *Orchestrator) Send(ctx context.Context, req SendRequest) Result {
	ctx, span := o.tracer.Start(ctx, "otp.send")
	defer span.End()

	f := &sendFlow{o: o, req: req, state: StateReceived}
	var res Result
	for f.state != StateCompleted {
		res = f.step(ctx)
	}
	span.SetAttributes(attribute.String("otp.result", string(res.Kind)))
	return res
}

func (f *sendFlow) step(ctx context.Context) Result {
	switch f.state {
	case StateReceived:
		f.phone = phone.Normalize(f.req.Phone, f.o.countryCode)
		if !phone.IsValid(f.phone) {
			f.state = StateCompleted
			return invalid(CodeInvalidPhone, "invalid phone")
		}
		f.state = StateValidated
		return Result{}
	case StateValidated:
		f.state = StateCompleted
		res := f.dispatch(ctx, f.o.loadConfig(ctx))
		res.Phone = f.phone
		return f.o.complete(ctx, audit.ModeSend, f.req.Client, res, f.last2)
	default:
		f.state = StateCompleted
		return Result{}
	}
}

func (f *sendFlow) dispatch(ctx context.Context, cfg settings.OTPConfig) Result {
	if !cfg.SendEnabled {
		return Result{
			Kind:     KindDisabled,
			Provider: cfg.Provider,
			Message:  "OTP sending is disabled",
			Code:     CodeSendDisabled,
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

	// Mock mode never sees a real code.
	code := ""
	if cfg.Mode == settings.ModeLive {
		code, err = f.o.generate()
		if err != nil {
			return Result{
				Kind:     KindProviderFailure,
				Provider: p.Name(),
				Status:   http.StatusInternalServerError,
				Message:  "internal error",
				Code:     provider.CodeSendFailed,
			}
		}
		f.last2 = audit.Last2(code)
	}

	pr := f.o.callProvider(ctx, p, provider.OpSend, func(ctx context.Context) provider.Result {
		return p.Send(ctx, f.phone, code)
	})
	if !pr.OK {
		res := failure(provider.OpSend, pr)
		res.Provider = p.Name()
		return res
	}
	return Result{Kind: KindSent, RequestID: pr.RequestID, Provider: p.Name()}
}
