// Package config carries the knobs a compile run is parameterized by.
// Deliberately free of any flag-parsing library: cmd/eelc owns parsing
// command-line input into a Config (via pflag), so every other package
// only ever depends on this plain struct.
package config

// Config mirrors the handful of run-wide switches the teacher's
// Compiler keeps as simple bool/int fields (ignoreTypeErrors,
// heapAlloc), generalized to the knobs spec.md's core actually needs.
type Config struct {
	// PascalDivision selects spec.md §4.7's integer-division-to-real
	// mode: `/` between two integers yields a real rather than
	// truncating, matching original_source's EEL_CF_PASCAL flag.
	PascalDivision bool

	// Peephole enables codegen's post-function peephole rewrite pass
	// (ec_optimizer.c). Disabling it is useful for debugging emitted
	// code one instruction at a time, matching EEL_coder.peephole.
	Peephole bool

	// TabSize is the column width a tab character advances the lexer's
	// line/column tracking by (spec.md §4.1). Default 8.
	TabSize int

	// AcceptStripped is set by cmd/eelc's --accept-stripped flag.
	// Nothing in the compile path reads it: input is always lexed as
	// raw EEL text, and stripped (.ess) input is not decoded.
	AcceptStripped bool
}

// Default returns the Config a bare `eelc` invocation with no flags
// should run with.
func Default() Config {
	return Config{
		PascalDivision: false,
		Peephole:       true,
		TabSize:        8,
		AcceptStripped: false,
	}
}
