// Package logging provides concrete implementations of the skyload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: human-oriented lines on stderr
//   - ZapLogger: structured JSON or console output through go.uber.org/zap
//   - NullLogger: discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
