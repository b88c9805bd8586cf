package transcribe

import (
	"context"
	"errors"
	"fmt"
)

// Provider is a single speech-to-text backend.
type Provider interface {
	// Name identifies the provider in logs and aggregate errors.
	Name() string

	// Configured reports whether the provider has usable credentials.
	Configured() bool

	// Transcribe converts raw audio into text. Errors should be
	// *ProviderError so the orchestrator can classify them.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// ErrorKind classifies a provider failure for the retry/fallthrough decision.
type ErrorKind int

const (
	// KindOther covers failures with no specific handling.
	KindOther ErrorKind = iota
	// KindAuth means invalid credentials: abort this provider, no retry.
	KindAuth
	// KindRateLimit, KindTimeout, KindNetwork and KindServer are retryable.
	KindRateLimit
	KindTimeout
	KindNetwork
	KindServer
	// KindEmptyResult means the call succeeded but returned blank text.
	KindEmptyResult
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindEmptyResult:
		return "empty_result"
	default:
		return "other"
	}
}

// ProviderError tags a failure with the provider that produced it and its kind.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Err.Error(), e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt
// against the same provider.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout, KindNetwork, KindServer:
		return true
	default:
		return false
	}
}

// ErrorKindOf extracts the classification from an error chain.
func ErrorKindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}
