package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// flakyOperation fails with a transient error until failUntil invocations
// have happened, then returns finalErr.
type flakyOperation struct {
	invocations int
	failUntil   int
	finalErr    error
}

func (f *flakyOperation) execute(context.Context) error {
	f.invocations++
	if f.invocations < f.failUntil {
		return &pgconn.PgError{Code: "08006", Message: "connection failure"}
	}
	return f.finalErr
}

func fastStrategy(attempts int) *ExponentialBackoff {
	return NewExponentialBackoff(attempts, WithInitialDelay(time.Millisecond), WithJitter(0))
}

func TestExecutor_SuccessOnFirstAttempt(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(3), nil)
	op := &flakyOperation{failUntil: 1}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("invocations = %d, want 1", op.invocations)
	}
}

func TestExecutor_SuccessAfterRetries(t *testing.T) {
	var retries []int
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(5),
		func(attempt int, err error, delay time.Duration) {
			retries = append(retries, attempt)
		})
	op := &flakyOperation{failUntil: 4}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if op.invocations != 4 {
		t.Errorf("invocations = %d, want 4", op.invocations)
	}
	if len(retries) != 3 || retries[0] != 0 || retries[2] != 2 {
		t.Errorf("retries = %v, want [0 1 2]", retries)
	}
}

func TestExecutor_FatalErrorNotRetried(t *testing.T) {
	fatal := &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(5), nil)
	op := &flakyOperation{failUntil: 1, finalErr: fatal}

	err := executor.Execute(context.Background(), op.execute)
	if !errors.Is(err, fatal) {
		t.Fatalf("Execute() error = %v, want %v", err, fatal)
	}
	if op.invocations != 1 {
		t.Errorf("invocations = %d, want 1", op.invocations)
	}
}

func TestExecutor_ExhaustsAttempts(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(2), nil)
	op := &flakyOperation{failUntil: 100}

	err := executor.Execute(context.Background(), op.execute)
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "08006" {
		t.Fatalf("Execute() error = %v, want last transient error", err)
	}
	if op.invocations != 3 {
		t.Errorf("invocations = %d, want 3 (initial + 2 retries)", op.invocations)
	}
}

func TestExecutor_NoRetriesWhenZeroAttempts(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastStrategy(0), nil)
	op := &flakyOperation{failUntil: 100}

	if err := executor.Execute(context.Background(), op.execute); err == nil {
		t.Fatal("Execute() expected error")
	}
	if op.invocations != 1 {
		t.Errorf("invocations = %d, want 1", op.invocations)
	}
}

func TestExecutor_ContextCancelledDuringBackoff(t *testing.T) {
	strategy := NewExponentialBackoff(5, WithInitialDelay(time.Hour), WithMaxDelay(time.Hour), WithJitter(0))
	ctx, cancel := context.WithCancel(context.Background())
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), strategy,
		func(int, error, time.Duration) { cancel() })
	op := &flakyOperation{failUntil: 100}

	err := executor.Execute(ctx, op.execute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if op.invocations != 1 {
		t.Errorf("invocations = %d, want 1", op.invocations)
	}
}

func TestNewExecutor_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewExecutor(nil, ...) did not panic")
		}
	}()
	NewExecutor(nil, fastStrategy(1), nil)
}
