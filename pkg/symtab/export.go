package symtab

import (
	"eel/pkg/errors"
	"eel/pkg/value"
)

// reservedExportKeys are never imported as ordinary symbols — they
// are the module's own metadata entries (spec.md §4.3, §6).
var reservedExportKeys = map[string]bool{
	"__init_module": true,
	"__modname":     true,
	"__filename":    true,
}

// ImportExports walks exporter's export table and, for every key not
// in reservedExportKeys, either raises a Scope conflict (pos is the
// import statement's position, for diagnostics) when a symbol of a
// conflicting kind already exists directly under into, or inserts a
// new symbol of kind Function, Class, or Constant depending on the
// exported value's class (spec.md §4.3).
func ImportExports(into *Symbol, exporter *value.TableData, pos errors.Position) {
	for _, key := range exporter.Keys() {
		sd, ok := key.Object().Payload.(*value.StringData)
		if !ok {
			continue
		}
		name := sd.String()
		if reservedExportKeys[name] {
			continue
		}
		val, _ := exporter.Get(key)
		kind := exportKindOf(val)

		if conflict := findDirectChildByName(into, name); conflict != nil {
			if conflict.Kind != kind {
				errors.Abort(errors.NewForSymbol(errors.Scope, pos, name,
					"import conflicts with existing symbol of a different kind"))
			}
			continue
		}
		interned := &Name{text: name}
		sym := Add(into, interned, kind)
		sym.Exported = true
	}
}

// findDirectChildByName scans only into's immediate children (export
// conflicts are checked against the local namespace, not ancestors).
func findDirectChildByName(into *Symbol, name string) *Symbol {
	for c := into.FirstChild; c != nil; c = c.NextSibling {
		if c.Name != nil && c.Name.text == name {
			return c
		}
	}
	return nil
}

// exportKindOf maps an exported value's class to the symbol kind it
// is imported as (spec.md §4.3: "Function | Class | Constant
// depending on the value's class").
func exportKindOf(v value.Value) Kind {
	if v.IsObject() && v.Object() != nil {
		switch v.Object().Class {
		case value.ClassFunction:
			return Function
		case value.ClassClassDef:
			return Class
		}
	}
	return Constant
}
