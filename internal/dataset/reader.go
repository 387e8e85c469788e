package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/skyload/skyload/internal/checksum"
	"github.com/skyload/skyload/pkg/skyload"
)

const utf8BOM = "\ufeff"

// Open opens path for reading, decompressing .gz and .zst files.
// Closing the result closes the decompressor and the file.
func Open(path string) (io.ReadCloser, error) {
	rc, err := open(path, nil)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// open is Open with every raw byte of the file, before decompression,
// copied to tee when it is non-nil.
func open(path string, tee io.Writer) (*stackedReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	var raw io.Reader = f
	if tee != nil {
		raw = io.TeeReader(f, tee)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		zr, err := gzip.NewReader(raw)
		if err != nil {
			f.Close()
			return nil, &skyload.DataFormatError{Reason: "invalid gzip stream", Err: err}
		}
		return &stackedReadCloser{Reader: zr, raw: raw, closers: []io.Closer{zr, f}}, nil

	case ".zst", ".zstd":
		zr, err := zstd.NewReader(raw)
		if err != nil {
			f.Close()
			return nil, &skyload.DataFormatError{Reason: "invalid zstd stream", Err: err}
		}
		rc := zr.IOReadCloser()
		return &stackedReadCloser{Reader: rc, raw: raw, closers: []io.Closer{rc, f}}, nil

	default:
		return &stackedReadCloser{Reader: raw, raw: raw, closers: []io.Closer{f}}, nil
	}
}

// stackedReadCloser closes a decompressor and its underlying file in order.
type stackedReadCloser struct {
	io.Reader
	raw     io.Reader
	closers []io.Closer
}

// drain consumes whatever the decoder left unread in the file.
func (s *stackedReadCloser) drain() error {
	_, err := io.Copy(io.Discard, s.raw)
	return err
}

func (s *stackedReadCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReadFile opens, parses and closes the dataset at path.
func ReadFile(path string) (*Table, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Read(rc)
}

// Read parses a complete CSV dataset. It is all-or-nothing: any problem
// returns a *skyload.DataFormatError and no table. A header with no data
// rows is a valid, empty table.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &skyload.DataFormatError{Reason: "dataset is empty"}
	}
	if err != nil {
		return nil, csvError(err, 1)
	}

	columns, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	table := &Table{Columns: header}
	lastLine := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err, lastLine+1)
		}
		line, _ := cr.FieldPos(0)
		lastLine = line

		row := make(Row, len(columns))
		for idx, col := range columns {
			v, err := ParseValue(record[idx], col.Kind, col.Required)
			if err != nil {
				fieldLine, _ := cr.FieldPos(idx)
				return nil, &skyload.DataFormatError{Line: fieldLine, Column: col.Name, Reason: err.Error()}
			}
			row[col.Name] = v
		}

		table.Rows = append(table.Rows, row)
		table.lines = append(table.lines, line)
	}

	return table, nil
}

// parseHeader validates the header row and returns the column spec for
// each position.
func parseHeader(header []string) ([]Column, error) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	seen := make(map[string]bool, len(header))
	columns := make([]Column, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if name == "" {
			return nil, &skyload.DataFormatError{Line: 1, Reason: fmt.Sprintf("header column %d has no name", i+1)}
		}
		if seen[name] {
			return nil, &skyload.DataFormatError{Line: 1, Column: name, Reason: "duplicate header column"}
		}
		seen[name] = true
		columns[i], _ = LookupColumn(name)
	}

	var missing []string
	for _, name := range RequiredColumns() {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &skyload.DataFormatError{
			Line:   1,
			Column: missing[0],
			Reason: "missing required columns: " + strings.Join(missing, ", "),
		}
	}

	return columns, nil
}

// csvError converts an encoding/csv failure into a DataFormatError.
// Errors from the underlying reader (e.g. a truncated gzip stream) are
// reported on the line being read.
func csvError(err error, line int) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		reason := parseErr.Err.Error()
		if errors.Is(parseErr.Err, csv.ErrFieldCount) {
			reason = "row has a different number of fields than the header"
		}
		return &skyload.DataFormatError{Line: parseErr.Line, Reason: reason}
	}
	return &skyload.DataFormatError{Line: line, Reason: "read failed", Err: err}
}

// Reader implements skyload.DatasetReader on top of Read.
type Reader struct {
	digest *checksum.Digest
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithDigest fingerprints the file as stored while it is parsed. The
// digest is reset at the start of every read and sealed only when the
// whole file parsed.
func WithDigest(d *checksum.Digest) ReaderOption {
	return func(r *Reader) {
		r.digest = d
	}
}

// NewReader creates a dataset reader.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadObservations reads the dataset at path and returns one Observation per row.
func (r *Reader) ReadObservations(path string) ([]skyload.Observation, error) {
	table, err := r.readFile(path)
	if err != nil {
		return nil, err
	}
	return table.Observations()
}

func (r *Reader) readFile(path string) (*Table, error) {
	if r.digest == nil {
		return ReadFile(path)
	}

	r.digest.Reset()
	rc, err := open(path, r.digest)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	table, err := Read(rc)
	if err != nil {
		return nil, err
	}
	if err := rc.drain(); err != nil {
		return nil, &skyload.DataFormatError{Reason: "read failed", Err: err}
	}
	r.digest.Seal()
	return table, nil
}

var _ skyload.DatasetReader = (*Reader)(nil)
