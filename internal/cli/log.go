// Package cli implements the mdcanvas command-line interface.
//
// Documents are addressed by name in the document store, or by path when
// the argument contains a path separator or ends in ".json". Commands that
// change a document save it back where it came from.
//
// # Commands
//
// The main commands are:
//   - new, list: create and list stored documents
//   - inspect: print a document outline, or browse it with --interactive
//   - edit, convert, run: change nodes through the same commands the
//     browser and the HTTP API use
//   - explore, refresh, watch: mirror directories as folder explorer nodes
//   - settings: show and change preferences
//   - serve: expose a document over HTTP with Prometheus metrics
//   - cache: manage the local cache
//
// # Backends
//
// Documents live in local files unless MDCANVAS_MONGO_URI points at a
// MongoDB deployment. Preferences and the cache use Redis when
// MDCANVAS_REDIS_ADDR is set, and fall back to local files otherwise.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger. Timestamps look like "14:32:01.45".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long a scan or save took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Scanned 42 entries (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for the commands below the root.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or log.Default when ctx
// carries none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
