package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-meeting-summary-be/internal/pkg/logger"
)

// ExhaustedError is returned when every configured provider failed. It
// carries each provider's last failure reason in priority order.
type ExhaustedError struct {
	Failures []ProviderFailure
}

type ProviderFailure struct {
	Provider string
	Reason   error
}

func (e *ExhaustedError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, fmt.Sprintf("%s: %v", f.Provider, f.Reason))
	}
	return fmt.Sprintf("all transcription providers failed: %s", strings.Join(reasons, " | "))
}

// Orchestrator tries each provider in priority order with bounded
// per-provider retries, returning the first non-empty transcription.
type Orchestrator struct {
	providers  []Provider
	maxRetries int
	retryDelay time.Duration
	deadline   time.Duration
	logger     logger.ILogger
}

func NewOrchestrator(providers []Provider, maxRetries int, retryDelay, deadline time.Duration, log logger.ILogger) (*Orchestrator, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no transcription providers configured")
	}

	configured := 0
	for _, p := range providers {
		if p.Configured() {
			configured++
		}
	}
	if configured == 0 {
		return nil, fmt.Errorf("no transcription provider has usable credentials")
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	return &Orchestrator{
		providers:  providers,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		deadline:   deadline,
		logger:     log,
	}, nil
}

// Transcribe runs the provider chain. The first provider to return
// non-empty text wins; on full exhaustion an *ExhaustedError is returned.
func (o *Orchestrator) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	var failures []ProviderFailure

	for _, provider := range o.providers {
		if !provider.Configured() {
			failures = append(failures, ProviderFailure{
				Provider: provider.Name(),
				Reason:   fmt.Errorf("missing credentials"),
			})
			continue
		}

		text, err := o.transcribeWithProvider(ctx, provider, audio)
		if err == nil {
			o.logger.Info("TranscriptionOrchestrator", "Transcription succeeded", map[string]interface{}{
				"provider": provider.Name(),
				"length":   len(text),
			})
			return text, nil
		}

		if ctx.Err() != nil {
			// Deadline or cancellation: stop the chain, report what we have.
			failures = append(failures, ProviderFailure{Provider: provider.Name(), Reason: ctx.Err()})
			return "", &ExhaustedError{Failures: failures}
		}

		o.logger.Warn("TranscriptionOrchestrator", "Provider failed, falling through", map[string]interface{}{
			"provider": provider.Name(),
			"error":    err.Error(),
		})
		failures = append(failures, ProviderFailure{Provider: provider.Name(), Reason: err})
	}

	return "", &ExhaustedError{Failures: failures}
}

// transcribeWithProvider applies the retry policy against a single provider.
// Auth and empty-result failures abort immediately; retryable failures get
// up to maxRetries attempts with a linearly growing delay.
func (o *Orchestrator) transcribeWithProvider(ctx context.Context, provider Provider, audio []byte) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		text, err := provider.Transcribe(ctx, audio)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", &ProviderError{
					Provider: provider.Name(),
					Kind:     KindEmptyResult,
					Err:      errors.New("received empty transcription"),
				}
			}
			return strings.TrimSpace(text), nil
		}

		if ErrorKindOf(err) == KindAuth {
			return "", err
		}

		lastErr = err
		if attempt < o.maxRetries {
			delay := o.retryDelay * time.Duration(attempt)
			o.logger.Warn("TranscriptionOrchestrator", "Attempt failed, retrying", map[string]interface{}{
				"provider": provider.Name(),
				"attempt":  attempt,
				"delay":    delay.String(),
				"error":    err.Error(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", lastErr
}
