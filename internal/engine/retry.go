package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines retry behavior for provider calls within a single
// iteration.
type RetryPolicy struct {
	MaxRetries   int           // maximum retry attempts (0 = no retries)
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // delay cap
	Multiplier   float64       // exponential backoff multiplier
	Jitter       bool          // add random jitter to delays
}

// DefaultRetryPolicy returns sensible provider retry defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// retryGenerate calls the provider with retry logic. Non-retryable
// errors return immediately; exhaustion returns RetryExhaustedError.
func retryGenerate(ctx context.Context, provider Provider, req GenerateRequest, policy RetryPolicy) (GenerateResponse, error) {
	attempt := 0

	for {
		resp, err := provider.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		class := ClassifyProviderError(err)
		if class == RetryClassNonRetryable {
			return GenerateResponse{}, err
		}

		if attempt >= policy.MaxRetries {
			return GenerateResponse{}, &RetryExhaustedError{Err: err, Attempts: attempt, MaxAttempts: policy.MaxRetries}
		}
		// "maybe" class gets at most two attempts regardless of policy.
		if class == RetryClassMaybe && attempt >= 2 {
			return GenerateResponse{}, &RetryExhaustedError{Err: err, Attempts: attempt, MaxAttempts: 2}
		}

		delay := calculateDelay(policy, attempt, err)

		select {
		case <-ctx.Done():
			return GenerateResponse{}, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}

		attempt++
	}
}

// calculateDelay computes the delay for a retry attempt, honoring
// Retry-After when the provider supplied one.
func calculateDelay(policy RetryPolicy, attempt int, err error) time.Duration {
	retryAfter := ExtractRetryAfter(err)
	if retryAfter > 0 {
		if retryAfter > policy.MaxDelay {
			return policy.MaxDelay
		}
		return retryAfter
	}

	delay := float64(policy.InitialDelay) * math.Pow(policy.Multiplier, float64(attempt))
	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}
	if policy.Jitter {
		delay += rand.Float64() * 0.2 * delay
	}
	return time.Duration(delay)
}
