package progress

import (
	"os"

	"golang.org/x/term"
)

// Mode selects how progress is rendered.
type Mode int

const (
	// ModeLog reports progress through the logger (CI, pipes, redirected output).
	ModeLog Mode = iota
	// ModeBar draws a progress bar on a terminal.
	ModeBar
)

// DetectMode returns ModeLog if:
//   - SKYLOAD_NO_PROGRESS=1 is set
//   - CI is set
//   - NO_COLOR is set
//   - stderr is not a terminal
//
// Returns ModeBar otherwise.
func DetectMode() Mode {
	if os.Getenv("SKYLOAD_NO_PROGRESS") == "1" {
		return ModeLog
	}
	if os.Getenv("CI") != "" {
		return ModeLog
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModeLog
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return ModeLog
	}
	return ModeBar
}
