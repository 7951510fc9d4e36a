package otp

import "net/http"

// State is a step of a send or verify flow
type State int

const (
	StateReceived State = iota
	StateValidated
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Kind tags a flow outcome
type Kind string

const (
	KindSent            Kind = "sent"
	KindVerified        Kind = "verified"
	KindInvalid         Kind = "invalid"
	KindDisabled        Kind = "disabled"
	KindUnconfigured    Kind = "unconfigured"
	KindProviderFailure Kind = "provider_failure"
)

// Error codes for outcomes decided before a provider call
const (
	CodeInvalidPhone   = "invalid_phone"
	CodeMissingFields  = "missing_fields"
	CodeSendDisabled   = "send_disabled"
	CodeVerifyDisabled = "verify_disabled"
)

// Result is the outcome of one flow
type Result struct {
	Kind      Kind
	Phone     string
	RequestID string
	Provider  string

	// Status is the mapped HTTP status of a provider failure
	Status int
	// Message is the caller-facing error message
	Message string
	// ProviderError is the upstream message, if any
	ProviderError string
	// Code is the error code recorded in the audit trail
	Code string
}

// OK reports whether the flow succeeded
func (r Result) OK() bool {
	return r.Kind == KindSent || r.Kind == KindVerified
}

// HTTPStatus maps the result to a response status
func (r Result) HTTPStatus() int {
	switch r.Kind {
	case KindSent, KindVerified:
		return http.StatusOK
	case KindInvalid:
		return http.StatusBadRequest
	case KindDisabled:
		return http.StatusServiceUnavailable
	case KindUnconfigured:
		return http.StatusInternalServerError
	case KindProviderFailure:
		if r.Status != 0 {
			return r.Status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func invalid(code, message string) Result {
	return Result{Kind: KindInvalid, Code: code, Message: message}
}
