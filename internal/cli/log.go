package cli

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// levelFor picks the log level: --verbose wins, then the configured level,
// then info.
func levelFor(verbose bool, configured string) log.Level {
	if verbose {
		return log.DebugLevel
	}
	if configured != "" {
		if lvl, err := log.ParseLevel(strings.ToLower(configured)); err == nil {
			return lvl
		}
	}
	return log.InfoLevel
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
