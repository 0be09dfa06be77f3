// Command eelc is the thin CLI front end: read a source file, compile
// it, and print (or interactively page through) the resulting
// disassembly. Not counted against the core's scope — mirrors the
// teacher's cmd/compiler/main.go shape (read file, lex+parse+compile,
// disassemble, report errors) with config flags and TUI/profiling glue
// layered on.
package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/google/pprof/profile"
	"github.com/spf13/pflag"

	"eel/pkg/compiler"
	"eel/pkg/config"
	"eel/pkg/diagnostic"
	"eel/pkg/opcode"
	"eel/pkg/source"
	"eel/pkg/value"
)

func main() {
	cfg := config.Default()

	pflag.BoolVar(&cfg.PascalDivision, "pascal-division", cfg.PascalDivision, "integer / integer yields a real, not a truncated integer")
	noPeephole := pflag.Bool("no-peephole", false, "disable the post-function peephole rewrite pass")
	pflag.IntVar(&cfg.TabSize, "tab-size", cfg.TabSize, "columns a tab character advances")
	pflag.BoolVar(&cfg.AcceptStripped, "accept-stripped", cfg.AcceptStripped, "accepted but has no effect: stripped (.ess) input is not decoded")
	interactive := pflag.BoolP("interactive", "i", false, "page through the disassembly in a scrollable TUI view")
	profilePath := pflag.String("profile", "", "write a CPU profile of the compile to this file and summarize it")
	pflag.Parse()
	cfg.Peephole = !*noPeephole

	if pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.eel>\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(1)
	}
	filename := pflag.Arg(0)

	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %q: %v\n", filename, err)
		os.Exit(1)
	}
	file := source.NewSourceFile(filename, filename, string(src))

	log := diagnostic.New(os.Stderr)

	var stopProfile func()
	if *profilePath != "" {
		stopProfile = startProfile(*profilePath)
	}
	mod, errs, warnings := compiler.CompileModule(file, cfg, log)
	if stopProfile != nil {
		stopProfile()
	}

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s:%d: warning: %s\n", filename, w.Position.Line, w.Msg)
	}
	if len(errs) != 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s\n", e.Error())
		}
		os.Exit(1)
	}

	text := disassembleModule(mod.Data.Name, mod.Functions)
	if *interactive {
		runPager(filename, text)
		return
	}
	fmt.Print(text)
}

// disassembleModule renders every function the module produced,
// headed by its name and frame size, in the teacher's
// "--- Bytecode (name) ---" banner style (cmd/compiler/main.go).
func disassembleModule(name string, funcs []*value.Object) string {
	out := fmt.Sprintf("--- Bytecode (module %s) ---\n", name)
	for _, fn := range funcs {
		fd, ok := fn.Payload.(*value.FunctionData)
		if !ok {
			continue
		}
		out += fmt.Sprintf("\nfunction %s (frame=%d, clean=%d)\n", fd.Name, fd.FrameSize, fd.CleanSize)
		out += opcode.Disassemble(fd.Code)
	}
	return out
}

// startProfile wraps the compile in a runtime/pprof CPU profile and
// returns a closure that stops profiling and prints a flat-sample
// summary through google/pprof's own Profile reader — the driver a
// developer would otherwise reach for via `go tool pprof` on the
// compiler's own hot loops (register allocation, peephole passes).
func startProfile(path string) func() {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile: %v\n", err)
		return nil
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		fmt.Fprintf(os.Stderr, "profile: %v\n", err)
		f.Close()
		return nil
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
		summarizeProfile(path)
	}
}

func summarizeProfile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	prof, err := profile.Parse(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "profile written to %s (%d samples, %d locations)\n", path, len(prof.Sample), len(prof.Location))
}
