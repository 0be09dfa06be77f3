package compiler

import (
	"bytes"
	"testing"

	"eel/pkg/config"
	"eel/pkg/diagnostic"
	"eel/pkg/source"
)

func TestCompileModuleProducesInitFunction(t *testing.T) {
	file := source.NewSourceFile("test", "test.eel", "static x = 1 + 2;")
	var buf bytes.Buffer
	mod, errs, _ := CompileModule(file, config.Default(), diagnostic.New(&buf))
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(mod.Functions) == 0 {
		t.Fatal("expected at least the __init_module function")
	}
	if buf.Len() == 0 {
		t.Fatal("expected compile lifecycle to be logged")
	}
}

func TestCompileModulePascalDivision(t *testing.T) {
	cfg := config.Default()
	cfg.PascalDivision = true
	file := source.NewSourceFile("test", "test.eel", "static x = 1 / 2;")
	var buf bytes.Buffer
	_, errs, _ := CompileModule(file, cfg, diagnostic.New(&buf))
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestCompileModuleSurfacesSyntaxErrors(t *testing.T) {
	file := source.NewSourceFile("test", "test.eel", "static x = ;")
	var buf bytes.Buffer
	_, errs, _ := CompileModule(file, config.Default(), diagnostic.New(&buf))
	if len(errs) == 0 {
		t.Fatal("expected a syntax error")
	}
}
