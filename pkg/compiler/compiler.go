// Package compiler is the thin driver tying pkg/parser's direct-
// emission grammar to a run's pkg/config.Config and
// pkg/diagnostic.Logger: it has no compile logic of its own (no AST,
// no type checker — pkg/parser already drives pkg/codegen directly),
// it only wires configuration into the parser and narrates the
// module-compile lifecycle spec.md §5/§9 describe.
package compiler

import (
	"eel/pkg/config"
	"eel/pkg/diagnostic"
	"eel/pkg/errors"
	"eel/pkg/parser"
	"eel/pkg/source"
	"eel/pkg/value"
)

// CompileModule parses and code-generates file under cfg, logging the
// module's lifecycle through log. It is the single entry point a
// caller (cmd/eelc, or a test) uses instead of calling pkg/parser
// directly, mirroring the teacher's Compiler.Compile as the one
// documented seam between "I have source" and "I have bytecode" —
// without the teacher's own AST-walking/type-checking steps, which
// this core's grammar never builds in the first place.
func CompileModule(file *source.SourceFile, cfg config.Config, log diagnostic.Logger) (*parser.ModuleInfo, []errors.CompilerError, []*errors.Warning) {
	value.SetPascalDivision(cfg.PascalDivision)

	log.ModuleStarted(file.Name, file.Path)
	mod, errs, warnings := parser.ParseModule(file, cfg.TabSize, true, cfg.Peephole)
	for _, w := range warnings {
		log.Warning(file.Path, w.Position.Line, w.Msg)
	}
	log.ModuleFinished(mod.Data.Name, len(errs), len(warnings))
	return mod, errs, warnings
}
