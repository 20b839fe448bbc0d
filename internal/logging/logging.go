// Package logging builds the charm loggers shared by every binary.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a [log.Logger] writing to w with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]. LOG_LEVEL selects the level and LOG_FORMAT=json
// switches to the JSON formatter.
func New(w io.Writer, prefix string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true, Prefix: prefix}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		opts.Formatter = log.JSONFormatter
	}
	logger := log.NewWithOptions(w, opts)
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if lvl, err := log.ParseLevel(raw); err == nil {
			logger.SetLevel(lvl)
		}
	}
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// With creates a child logger carrying the given key-value pairs.
func With(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}
