// Package progress renders per-table write progress.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/skyload/skyload/pkg/skyload"
)

// New returns the observer for mode. Bars are drawn on w.
func New(mode Mode, w io.Writer, logger skyload.Logger) skyload.ProgressObserver {
	if mode == ModeBar {
		return NewBarObserver(w)
	}
	return NewLogObserver(logger)
}

// BarObserver draws one bar per table.
type BarObserver struct {
	mu    sync.Mutex
	w     io.Writer
	table string
	bar   *progressbar.ProgressBar
}

// NewBarObserver creates a BarObserver writing to w.
func NewBarObserver(w io.Writer) *BarObserver {
	return &BarObserver{w: w}
}

// Progress implements skyload.ProgressObserver.
func (o *BarObserver) Progress(table string, written, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bar == nil || o.table != table {
		o.finish()
		o.table = table
		o.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(o.w),
			progressbar.OptionSetDescription(table),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(o.w) }),
		)
	}
	_ = o.bar.Set(written)
}

// Close finishes the current bar.
func (o *BarObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finish()
	return nil
}

func (o *BarObserver) finish() {
	if o.bar != nil && !o.bar.IsFinished() {
		_ = o.bar.Finish()
	}
	o.bar = nil
}

// LogObserver logs each committed batch at verbose level and the completion
// of each table at info level.
type LogObserver struct {
	logger skyload.Logger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger skyload.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// Progress implements skyload.ProgressObserver.
func (o *LogObserver) Progress(table string, written, total int) {
	if written >= total {
		o.logger.Info("%s: %d rows committed", table, written)
		return
	}
	o.logger.Verbose("%s: %d/%d rows committed", table, written, total)
}

// Multi fans progress out to several observers.
type Multi []skyload.ProgressObserver

// Progress implements skyload.ProgressObserver.
func (m Multi) Progress(table string, written, total int) {
	for _, o := range m {
		if o != nil {
			o.Progress(table, written, total)
		}
	}
}
