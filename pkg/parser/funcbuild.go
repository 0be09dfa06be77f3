package parser

import (
	"eel/pkg/symtab"
	"eel/pkg/value"
)

// FuncBuild tracks the call-contract and provenance bits of the
// function currently being compiled (spec.md §3's Function fields)
// that aren't known until the declaration header and, for some of
// them, the body itself has been walked: arity, export/upvalue
// status, and the forward declaration it completes, if any.
type FuncBuild struct {
	Name string

	ReqArgs int
	OptArgs int
	TupArgs int
	Results int

	Exported     bool
	UsesUpvalues bool

	// Forward is the symbol a prior `function`/`procedure` forward
	// declaration installed, matched against this definition by name,
	// arity, and flags (spec.md §4.4).
	Forward *symtab.Symbol

	// Sym is the symbol this definition's compiled value is ultimately
	// stored into: the Static slot a call site's manipForVariable reads
	// back through (parser's function-reference-as-static-slot design).
	Sym *symtab.Symbol
}

func (fb *FuncBuild) flags() value.FunctionFlags {
	var f value.FunctionFlags
	if fb.OptArgs > 0 || fb.ReqArgs > 0 {
		f |= value.FlagArgs
	}
	if fb.TupArgs > 0 {
		f |= value.FlagArgs
	}
	if fb.Results > 0 {
		f |= value.FlagResults
	}
	if fb.UsesUpvalues {
		f |= value.FlagUpvalues
	}
	if fb.Exported {
		f |= value.FlagExport
	}
	return f
}
