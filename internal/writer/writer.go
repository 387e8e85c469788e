// Package writer commits tuples to PostgreSQL in fixed-size batches.
//
// Every batch is one multi-row INSERT in its own transaction, committed
// before the next batch starts. A failed batch is never retried: the error
// names the table, batch index, row offset and how many rows earlier
// batches committed, so a caller can decide where to resume.
package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/skyload/skyload/internal/retry"
	"github.com/skyload/skyload/pkg/skyload"
)

// TxBeginner starts the per-batch transactions. skyload.SessionConn
// satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CommitHook is called after each committed batch.
type CommitHook func(table string, batch int)

// Result summarizes one Write call.
type Result struct {
	Table string
	// Rows counts submitted tuples, including those folded into a later
	// tuple with the same conflict key.
	Rows    int
	Batches int
	// Folded counts tuples merged away before submission.
	Folded int
}

// BatchWriter writes tuples for any Template.
//
// Thread-Safety: NOT safe for concurrent use; it shares one connection.
type BatchWriter struct {
	conn      TxBeginner
	batchSize int
	observer  skyload.ProgressObserver
	hook      CommitHook
	logger    skyload.Logger
}

// Option configures a BatchWriter.
type Option func(*BatchWriter)

// WithObserver reports progress after every commit.
func WithObserver(o skyload.ProgressObserver) Option {
	return func(w *BatchWriter) { w.observer = o }
}

// WithCommitHook calls hook after every commit.
func WithCommitHook(hook CommitHook) Option {
	return func(w *BatchWriter) { w.hook = hook }
}

// WithLogger logs each batch at verbose level.
func WithLogger(l skyload.Logger) Option {
	return func(w *BatchWriter) { w.logger = l }
}

// New creates a BatchWriter committing batchSize tuples per transaction.
// The effective size of a batch is further capped per template by the bind
// parameter limit.
func New(conn TxBeginner, batchSize int, opts ...Option) (*BatchWriter, error) {
	if conn == nil {
		return nil, fmt.Errorf("writer requires a connection: %w", skyload.ErrInvalidConfig)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d: %w", batchSize, skyload.ErrInvalidConfig)
	}
	w := &BatchWriter{conn: conn, batchSize: batchSize}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// BatchSize returns the rows per batch for tmpl after applying the bind
// parameter cap.
func (w *BatchWriter) BatchSize(tmpl Template) int {
	return min(w.batchSize, tmpl.MaxBatchRows())
}

// Write submits tuples in ceil(len/BatchSize) batches. Batches committed
// before a failure stay committed.
func (w *BatchWriter) Write(ctx context.Context, tmpl Template, tuples [][]any) (Result, error) {
	result := Result{Table: tmpl.Table}

	if err := tmpl.Validate(); err != nil {
		return result, err
	}
	for i, tuple := range tuples {
		if len(tuple) != len(tmpl.Columns) {
			return result, fmt.Errorf("tuple %d for %s has %d values, want %d", i, tmpl.Table, len(tuple), len(tmpl.Columns))
		}
	}

	size := w.BatchSize(tmpl)
	keyIdx := tmpl.conflictIndexes()
	total := len(tuples)

	for batch, span := range Partition(total, size) {
		rows := tuples[span.Offset : span.Offset+span.Len]
		if tmpl.Policy == ConflictUpdate {
			rows = fold(rows, keyIdx)
			result.Folded += span.Len - len(rows)
		}

		args := make([]any, 0, len(rows)*len(tmpl.Columns))
		for _, tuple := range rows {
			args = append(args, tuple...)
		}

		if err := w.commitBatch(ctx, tmpl.InsertSQL(len(rows)), args); err != nil {
			return result, classify(err, skyload.BatchError{
				Table:     tmpl.Table,
				Batch:     batch,
				Offset:    span.Offset,
				Size:      span.Len,
				Committed: result.Rows,
				Err:       err,
			})
		}

		result.Rows += span.Len
		result.Batches++

		if w.logger != nil {
			w.logger.Verbose("%s: batch %d committed (%d/%d rows)", tmpl.Table, batch, result.Rows, total)
		}
		if w.hook != nil {
			w.hook(tmpl.Table, batch)
		}
		if w.observer != nil {
			w.observer.Progress(tmpl.Table, result.Rows, total)
		}
	}

	return result, nil
}

func (w *BatchWriter) commitBatch(ctx context.Context, sql string, args []any) error {
	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// classify turns a raw batch failure into the matching typed error.
// Cancellation stays a plain BatchError so errors.Is(err, context.Canceled)
// keeps working.
func classify(err error, be skyload.BatchError) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &be
	}
	if constraint, ok := retry.IsConstraintViolation(err); ok {
		return &skyload.ConstraintViolationError{BatchError: be, Constraint: constraint}
	}
	if retry.IsConnectivity(err) {
		return &skyload.ConnectivityError{BatchError: be}
	}
	return &be
}
