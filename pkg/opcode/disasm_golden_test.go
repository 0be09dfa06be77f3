package opcode

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// disasmFixtures holds one txtar file per case: the body lists one
// instruction per line as "OPNAME operand operand...", describing the
// sequence Disassemble is exercised against. Structuring the fixture
// set as a txtar archive (rather than a Go literal per case) is the
// "source in / disassembly out" golden-file shape SPEC_FULL.md's
// domain stack calls for golang.org/x/tools to serve.
var disasmFixtures = []byte(`
-- single_return --
RETURN

-- move_then_return --
MOVE 5 2
RETURNR 1
RETURN

-- push_chain --
PUSH
PUSH
CALL 1
`)

func TestDisassembleGolden(t *testing.T) {
	archive := txtar.Parse(disasmFixtures)
	if len(archive.Files) == 0 {
		t.Fatal("expected at least one fixture in the archive")
	}

	for _, f := range archive.Files {
		f := f
		t.Run(f.Name, func(t *testing.T) {
			lines := nonEmptyLines(string(f.Data))
			enc := NewEncoder()
			var wantLines []string
			for _, line := range lines {
				op, operands := parseFixtureLine(t, line)
				pc := enc.Pos()
				enc.Emit(op, 0, operands...)
				wantLines = append(wantLines, formatExpected(pc, op, operands))
			}

			got := Disassemble(enc.Code)
			want := strings.Join(wantLines, "\n") + "\n"
			if got != want {
				t.Fatalf("Disassemble(%s) mismatch:\ngot:\n%s\nwant:\n%s", f.Name, got, want)
			}
		})
	}
}

// formatExpected mirrors Instruction.String's format independently of
// the production code under test, so this test fails if that format
// ever silently drifts rather than passing by construction.
func formatExpected(pc int, op Opcode, operands []int32) string {
	s := fmt.Sprintf("%04d  %-10s", pc, Name(op))
	for _, v := range operands {
		s += fmt.Sprintf(" %d", v)
	}
	return s
}

func parseFixtureLine(t *testing.T, line string) (Opcode, []int32) {
	t.Helper()
	fields := strings.Fields(line)
	op, ok := opcodeByName(fields[0])
	if !ok {
		t.Fatalf("unknown opcode name %q in fixture", fields[0])
	}
	operands := make([]int32, 0, len(fields)-1)
	for _, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil {
			t.Fatalf("bad operand %q: %v", f, err)
		}
		operands = append(operands, int32(n))
	}
	return op, operands
}

func opcodeByName(name string) (Opcode, bool) {
	for op := Opcode(0); int(op) < opCount; op++ {
		if Name(op) == name {
			return op, true
		}
	}
	return 0, false
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
