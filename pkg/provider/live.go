package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/otpgate/pkg/phone"
	"github.com/platinummonkey/otpgate/pkg/settings"
)

// DefaultTimeout bounds every live provider call
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of an upstream response is read
const maxResponseBytes = 64 << 10

// NewHTTPClient returns the client used for provider calls. The transport is
// left uninstrumented: request URLs carry the api key and the OTP, and the
// orchestrator already traces each call without them.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
}

// LiveProvider talks to a 2Factor-style SMS OTP API:
//
//	send:   GET {base}/{apiKey}/SMS/{digits}/{otp}/{template}?From={senderId}
//	verify: GET {base}/{apiKey}/SMS/VERIFY/{requestId}/{otp}
//
// Both answer {"Status":"Success","Details":"..."}; for send, Details is
// the session id used as the request id.
type LiveProvider struct {
	name     string
	baseURL  string
	apiKey   string
	senderID string
	template string
	client   *http.Client
	timeout  time.Duration
}

// NewLiveProvider creates a provider from one settings snapshot
func NewLiveProvider(cfg settings.OTPConfig, client *http.Client, timeout time.Duration) *LiveProvider {
	if client == nil {
		client = NewHTTPClient()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	name := cfg.Provider
	if name == "" {
		name = "2factor"
	}
	return &LiveProvider{
		name:     name,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		template: cfg.TemplateText,
		client:   client,
		timeout:  timeout,
	}
}

// Name implements Provider
func (p *LiveProvider) Name() string {
	return p.name
}

type apiResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

// Send implements Provider
func (p *LiveProvider) Send(ctx context.Context, to, code string) Result {
	endpoint := fmt.Sprintf("%s/%s/SMS/%s/%s/%s",
		p.baseURL,
		url.PathEscape(p.apiKey),
		url.PathEscape(phone.Digits(to)),
		url.PathEscape(code),
		url.PathEscape(p.templateSegment(code)),
	)
	if p.senderID != "" {
		endpoint += "?" + url.Values{"From": {p.senderID}}.Encode()
	}

	res, details := p.call(ctx, endpoint)
	if res.OK {
		res.RequestID = details
	}
	return res
}

// Verify implements Provider
func (p *LiveProvider) Verify(ctx context.Context, to, requestID, code string) Result {
	endpoint := fmt.Sprintf("%s/%s/SMS/VERIFY/%s/%s",
		p.baseURL,
		url.PathEscape(p.apiKey),
		url.PathEscape(requestID),
		url.PathEscape(code),
	)

	res, _ := p.call(ctx, endpoint)
	res.RequestID = requestID
	return res
}

// templateSegment is the composed message when the template carries an
// {otp} placeholder, otherwise the template is a provider-side template name
func (p *LiveProvider) templateSegment(code string) string {
	if strings.Contains(p.template, "{otp}") {
		return ComposeMessage(p.template, code)
	}
	return p.template
}

// call performs the GET and folds every outcome into a Result. details is
// the upstream Details field.
func (p *LiveProvider) call(ctx context.Context, endpoint string) (Result, string) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Error: "invalid provider request"}, ""
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			timedOut = true
		}
		msg := "provider unreachable"
		if timedOut {
			msg = "provider timeout"
		}
		return Result{Error: msg, Timeout: timedOut}, ""
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		parsed.Details = strings.TrimSpace(string(body))
	}
	if parsed.Details == "" {
		parsed.Details = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusOK && strings.EqualFold(parsed.Status, "success") {
		return Result{OK: true, StatusCode: resp.StatusCode}, parsed.Details
	}
	return Result{StatusCode: resp.StatusCode, Error: parsed.Details}, parsed.Details
}
