package retry

import (
	"context"
	"time"

	"github.com/skyload/skyload/pkg/skyload"
)

// OnRetryFunc is called before each retry with the zero-based attempt, the
// error that triggered it and the delay about to be slept.
type OnRetryFunc func(attempt int, err error, delay time.Duration)

// Executor orchestrates retry attempts with backoff and error classification.
// Safe for concurrent use; it holds no mutable state.
type Executor struct {
	classifier skyload.ErrorClassifier
	strategy   skyload.BackoffStrategy
	onRetry    OnRetryFunc
}

// NewExecutor creates a retry executor. onRetry may be nil.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier skyload.ErrorClassifier, strategy skyload.BackoffStrategy, onRetry OnRetryFunc) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{
		classifier: classifier,
		strategy:   strategy,
		onRetry:    onRetry,
	}
}

// Execute runs operation, retrying transient failures until the strategy's
// attempt budget is spent. It returns the last error.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	lastErr := operation(ctx)
	if lastErr == nil || !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	maxAttempts := e.strategy.MaxAttempts()
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		lastErr = operation(ctx)
		if lastErr == nil || !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
