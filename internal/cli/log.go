// Package cli implements the packforge command-line interface.
//
// The commands cover the whole tool: RID queries, framework pack selection,
// package file conflict resolution, workload pack installation and
// dependency graph extraction from project lock files. The CLI is built with
// cobra, configured with viper and logs through charmbracelet/log.
//
// # Commands
//
//   - conflicts: Remove conflicting package files from a build's item lists
//   - select: Choose targeting, runtime and crossgen packs, optionally installing them
//   - deps: Extract and render the dependency graph of a project lock file
//   - workload: Install, repair, download, list and garbage-collect workload packs
//   - rid: Match and expand runtime identifiers
//   - cache: Manage the selection and feed caches
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/packforge/pkg/errors"
)

// newLogger creates a logger writing to w at level, with "15:04:05.00"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// parseLevel maps a log.level config value to a level. An empty value is
// info.
func parseLevel(s string) (log.Level, error) {
	if strings.TrimSpace(s) == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "log.level %q", s)
	}
	return lvl, nil
}

// commandLogger returns l prefixed with the command path below the root,
// e.g. "workload gc".
func commandLogger(l *log.Logger, cmd *cobra.Command) *log.Logger {
	path := cmd.CommandPath()
	if i := strings.IndexByte(path, ' '); i >= 0 {
		return l.WithPrefix(path[i+1:])
	}
	return l
}

// progress logs the completion of a step with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with keyvals and an "elapsed" field rounded to the
// millisecond, e.g. `Installed packs count=3 elapsed=1.234s`.
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
