// Package diagnostic provides the structured logging sink compiler
// lifecycle events are reported through (module started, parse
// finished, warnings emitted, fatal abort recovered) — distinct from
// the teacher's per-package debugRegAlloc/debugX hot-loop tracing
// consts (kept as-is in pkg/codegen/regalloc.go for register
// allocation tracing, where a structured logger's allocation cost
// would matter on every instruction).
package diagnostic

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger so callers depend on this package's
// narrow method set rather than the zerolog API directly.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing zerolog's timestamped JSON lines to w
// (cmd/eelc passes os.Stderr).
func New(w io.Writer) Logger {
	return Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// Default is a package-wide Logger writing to os.Stderr, for code that
// has no Logger threaded to it. cmd/eelc does not replace it; it builds
// its own Logger with New and passes that to the compiler.
var Default = New(os.Stderr)

// ModuleStarted records that compilation of a module began.
func (l Logger) ModuleStarted(name, file string) {
	l.zl.Info().Str("module", name).Str("file", file).Msg("compiling module")
}

// ModuleFinished records a module's compile outcome.
func (l Logger) ModuleFinished(name string, errs, warnings int) {
	ev := l.zl.Info()
	if errs > 0 {
		ev = l.zl.Error()
	}
	ev.Str("module", name).Int("errors", errs).Int("warnings", warnings).Msg("module compiled")
}

// Warning records a single compiler warning at its source position.
func (l Logger) Warning(file string, line int, msg string) {
	l.zl.Warn().Str("file", file).Int("line", line).Msg(msg)
}

// FatalRecovered records that a compile aborted via the panic/recover
// single-entry-point unwind (spec.md §5/§9) rather than finishing
// normally.
func (l Logger) FatalRecovered(file string, reason string) {
	l.zl.Error().Str("file", file).Str("reason", reason).Msg("compile aborted")
}
