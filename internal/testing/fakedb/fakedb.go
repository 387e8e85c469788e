// Package fakedb provides an in-memory stand-in for a pgx session
// connection. It records every statement, runs transactions without a
// server and lets tests script query results and failures.
package fakedb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/skyload/skyload/pkg/skyload"
)

// Statement is one recorded Exec or Query call.
type Statement struct {
	SQL  string
	Args []any
	// Tx is the 1-based id of the enclosing transaction, zero outside one.
	Tx int
}

// Conn implements skyload.SessionConn.
//
// ExecFunc and QueryFunc, when set, decide the outcome of each call. A nil
// ExecFunc succeeds with an empty command tag; a nil QueryFunc returns no rows.
type Conn struct {
	mu sync.Mutex

	ExecFunc   func(sql string, args []any) (pgconn.CommandTag, error)
	QueryFunc  func(sql string, args []any) (*Rows, error)
	BeginErr   error
	CommitFunc func(tx int) error

	Statements []Statement
	Committed  []int
	RolledBack []int

	txSeq int
}

// New creates an empty fake connection.
func New() *Conn {
	return &Conn{}
}

func (c *Conn) record(tx int, sql string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statements = append(c.Statements, Statement{SQL: sql, Args: args, Tx: tx})
}

func (c *Conn) exec(tx int, sql string, args []any) (pgconn.CommandTag, error) {
	c.record(tx, sql, args)
	if c.ExecFunc != nil {
		return c.ExecFunc(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

func (c *Conn) query(tx int, sql string, args []any) (pgx.Rows, error) {
	c.record(tx, sql, args)
	if c.QueryFunc != nil {
		rows, err := c.QueryFunc(sql, args)
		if err != nil {
			return nil, err
		}
		if rows != nil {
			return rows, nil
		}
	}
	return NewRows(), nil
}

func (c *Conn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.exec(0, sql, args)
}

func (c *Conn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.query(0, sql, args)
}

func (c *Conn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	rows, err := c.query(0, sql, args)
	return &row{rows: rows, err: err}
}

func (c *Conn) Begin(context.Context) (pgx.Tx, error) {
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	c.mu.Lock()
	c.txSeq++
	id := c.txSeq
	c.mu.Unlock()
	return &Tx{conn: c, id: id}, nil
}

// SQL returns the text of every recorded statement in order.
func (c *Conn) SQL() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Statements))
	for i, s := range c.Statements {
		out[i] = s.SQL
	}
	return out
}

var _ skyload.SessionConn = (*Conn)(nil)

// Tx is a transaction on a fake Conn. Methods outside the recorded subset
// panic through the embedded nil interface.
type Tx struct {
	pgx.Tx
	conn *Conn
	id   int
	done bool
}

// ErrTxDone is returned for use of a finished transaction.
var ErrTxDone = pgx.ErrTxClosed

func (t *Tx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.done {
		return pgconn.CommandTag{}, ErrTxDone
	}
	return t.conn.exec(t.id, sql, args)
}

func (t *Tx) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return t.conn.query(t.id, sql, args)
}

func (t *Tx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if t.done {
		return &row{err: ErrTxDone}
	}
	rows, err := t.conn.query(t.id, sql, args)
	return &row{rows: rows, err: err}
}

func (t *Tx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakedb: nested transactions are not supported")
}

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if t.conn.CommitFunc != nil {
		if err := t.conn.CommitFunc(t.id); err != nil {
			t.conn.mu.Lock()
			t.conn.RolledBack = append(t.conn.RolledBack, t.id)
			t.conn.mu.Unlock()
			return err
		}
	}
	t.conn.mu.Lock()
	t.conn.Committed = append(t.conn.Committed, t.id)
	t.conn.mu.Unlock()
	return nil
}

// Rollback of a finished transaction returns ErrTxDone, as pgx does.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.conn.mu.Lock()
	t.conn.RolledBack = append(t.conn.RolledBack, t.id)
	t.conn.mu.Unlock()
	return nil
}

// Rows is a scripted result set.
type Rows struct {
	data   [][]any
	pos    int
	err    error
	closed bool
}

// NewRows creates a result set returning data row by row.
func NewRows(data ...[]any) *Rows {
	return &Rows{data: data}
}

// WithErr makes Err report err after iteration.
func (r *Rows) WithErr(err error) *Rows {
	r.err = err
	return r
}

func (r *Rows) Close() { r.closed = true }

func (r *Rows) Err() error { return r.err }

func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *Rows) Next() bool {
	if r.closed || r.pos >= len(r.data) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Values() ([]any, error) {
	if r.pos == 0 || r.pos > len(r.data) {
		return nil, errors.New("fakedb: no current row")
	}
	return r.data[r.pos-1], nil
}

func (r *Rows) RawValues() [][]byte { return nil }

func (r *Rows) Conn() *pgx.Conn { return nil }

// Scan assigns the current row to dest, converting between numeric kinds.
func (r *Rows) Scan(dest ...any) error {
	values, err := r.Values()
	if err != nil {
		return err
	}
	if len(values) != len(dest) {
		return fmt.Errorf("fakedb: row has %d values, scan wants %d", len(values), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("fakedb: scan destination %d is not a pointer", i)
		}
		src := reflect.ValueOf(values[i])
		elem := target.Elem()
		if !src.IsValid() {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		if !src.Type().ConvertibleTo(elem.Type()) {
			return fmt.Errorf("fakedb: cannot scan %T into %s", values[i], elem.Type())
		}
		elem.Set(src.Convert(elem.Type()))
	}
	return nil
}

var _ pgx.Rows = (*Rows)(nil)

type row struct {
	rows pgx.Rows
	err  error
}

func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dest...)
}
