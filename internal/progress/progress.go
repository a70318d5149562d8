// Package progress defines the notification contract between the analysis
// engine and whatever presents its progress. The engine only needs a
// synchronous call target; how events reach a console, a log file or a
// polling HTTP client is entirely the collaborator's concern.
package progress

import "log"

// Level is the severity of a reported log line.
type Level string

// Log levels, ordered by severity.
const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARNING"
	LevelError Level = "ERROR"
)

// Reporter receives progress milestones and log lines from a running
// analysis. Implementations must be safe for concurrent use: price-resolution
// warnings can arrive from multiple worker goroutines.
type Reporter interface {
	// Progress reports an overall completion percentage (0-100) together
	// with a human-readable step label.
	Progress(percent int, step string)

	// Log reports a leveled log line tied to the current run.
	Log(level Level, message string)
}

// LogReporter writes progress events to the standard logger. Used by the CLI
// entry point and as a fallback when no other collaborator is wired in.
type LogReporter struct{}

// Progress logs the step change with its percentage.
func (LogReporter) Progress(percent int, step string) {
	log.Printf("[%3d%%] %s", percent, step)
}

// Log logs the message with its level prefix.
func (LogReporter) Log(level Level, message string) {
	log.Printf("%s: %s", level, message)
}

// Nop discards all events. Handy default so callers never have to nil-check.
type Nop struct{}

// Progress discards the event.
func (Nop) Progress(int, string) {}

// Log discards the event.
func (Nop) Log(Level, string) {}
