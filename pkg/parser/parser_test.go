package parser

import (
	"testing"

	"eel/pkg/errors"
	"eel/pkg/opcode"
	"eel/pkg/source"
	"eel/pkg/value"
)

func parse(t *testing.T, src string) (*ModuleInfo, []errors.CompilerError, []*errors.Warning) {
	t.Helper()
	file := source.NewSourceFile("test", "test.eel", src)
	return ParseModule(file, 8, true, true)
}

func mustCompile(t *testing.T, src string) *ModuleInfo {
	t.Helper()
	mod, errs, _ := parse(t, src)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	return mod
}

func exportedFunc(t *testing.T, mod *ModuleInfo, name string) *value.FunctionData {
	t.Helper()
	v, ok := mod.Data.Exports.Get(value.ObjRefValue(value.NewString(name)))
	if !ok {
		t.Fatalf("expected module to export %q", name)
	}
	fd, ok := v.Object().Payload.(*value.FunctionData)
	if !ok {
		t.Fatalf("export %q is not a function", name)
	}
	return fd
}

// compiledFunc finds a compiled (not necessarily exported) function by
// name among every function the module produced.
func compiledFunc(t *testing.T, mod *ModuleInfo, name string) *value.FunctionData {
	t.Helper()
	for _, obj := range mod.Functions {
		fd, ok := obj.Payload.(*value.FunctionData)
		if ok && fd.Name == name {
			return fd
		}
	}
	t.Fatalf("expected module to have compiled a function named %q", name)
	return nil
}

// --- scenario 1 ---

func TestScenario1_ProcedureWithArithmeticLocal(t *testing.T) {
	mod := mustCompile(t, `procedure p() { local x = 1 + 2; }`)

	if _, ok := mod.Data.Exports.Get(value.ObjRefValue(value.NewString("__init_module"))); !ok {
		t.Fatalf("expected __init_module to be exported")
	}

	fd := compiledFunc(t, mod, "p")
	ins := opcode.DecodeAll(fd.Code)
	if len(ins) == 0 {
		t.Fatalf("expected p's body to contain instructions")
	}

	foundInit := false
	for _, in := range ins {
		if in.Op == opcode.OpInitI {
			foundInit = true
			if in.Operands[1] != 3 {
				t.Fatalf("expected the folded constant 3, got %d", in.Operands[1])
			}
		}
	}
	if !foundInit {
		t.Fatalf("expected an INITI (or equivalent immediate init) in p's body, got %v", ins)
	}
	if ins[len(ins)-1].Op != opcode.OpReturn {
		t.Fatalf("expected p's body to end with RETURN, got %s", ins[len(ins)-1].Op)
	}
}

// --- scenario 2 ---

func TestScenario2_ConstantConditionInitializationAccepted(t *testing.T) {
	mustCompile(t, `function print(v) { } local x; if (true) x = 1; print(x);`)
}

func TestScenario2_RuntimeConditionInitializationRejected(t *testing.T) {
	_, errs, _ := parse(t, `function cond() -> { return true; } function print(v) { } local x; if (cond()) x = 1; print(x);`)
	if len(errs) == 0 {
		t.Fatalf("expected a Maybe-uninitialized error")
	}
	found := false
	for _, e := range errs {
		if e.Kind() == errors.Init {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an Init-kind error, got %v", errs)
	}
}

func TestScenario2_DefiniteUninitializedReadRejected(t *testing.T) {
	_, errs, _ := parse(t, `function print(v) { } local x; print(x);`)
	if len(errs) == 0 {
		t.Fatalf("expected an uninitialized-read error")
	}
	if errs[0].Kind() != errors.Init {
		t.Fatalf("expected an Init-kind error, got %s", errs[0].Kind())
	}
}

// --- scenario 3 ---

func TestScenario3_ForLoopContinueBreak(t *testing.T) {
	mod := mustCompile(t, `for i = 0, 4, 1 { if i == 2 continue; if i == 3 break; }`)
	fd := exportedFunc(t, mod, "__init_module")
	ins := opcode.DecodeAll(fd.Code)

	var preloops, loops []opcode.Instruction
	for _, in := range ins {
		switch in.Op {
		case opcode.OpPreloop:
			preloops = append(preloops, in)
		case opcode.OpLoop:
			loops = append(loops, in)
		}
	}
	if len(preloops) != 1 {
		t.Fatalf("expected exactly one PRELOOP, got %d", len(preloops))
	}
	if len(loops) != 1 {
		t.Fatalf("expected exactly one LOOP, got %d", len(loops))
	}

	loop := loops[0]
	afterLoop := loop.PC + loop.Size

	foundContinue, foundBreak := false, false
	for _, in := range ins {
		if in.Op != opcode.OpJump {
			continue
		}
		off := int(in.Operands[0])
		target := in.PC + in.Size + off
		switch target {
		case loop.PC:
			foundContinue = true
		case afterLoop:
			foundBreak = true
		}
	}
	if !foundContinue {
		t.Fatalf("expected 'continue' to patch to LOOP's own position")
	}
	if !foundBreak {
		t.Fatalf("expected 'break' to patch to the position right after LOOP")
	}
}

// --- scenario 4 ---

func TestScenario4_SwitchDispatchTable(t *testing.T) {
	mod := mustCompile(t, `function x() -> { return 1; } function a() { } function b() { } function c() { }
switch x() { case 1 a(); case 2, 3 b(); default c(); }`)
	fd := exportedFunc(t, mod, "__init_module")
	ins := opcode.DecodeAll(fd.Code)

	var sw *opcode.Instruction
	for i := range ins {
		if ins[i].Op == opcode.OpSwitch {
			sw = &ins[i]
			break
		}
	}
	if sw == nil {
		t.Fatalf("expected a SWITCH instruction")
	}

	tableIdx := sw.Operands[1]
	tableVal := fd.Constants[tableIdx]
	table, ok := tableVal.Object().Payload.(*value.TableData)
	if !ok {
		t.Fatalf("expected the SWITCH table operand to name a Table constant")
	}

	posFor := func(k int32) int {
		v, ok := table.Get(value.IntegerValue(k))
		if !ok {
			t.Fatalf("expected case %d in the dispatch table", k)
		}
		return int(v.Integer())
	}

	if posFor(1) == posFor(3) {
		t.Fatalf("expected case 1 and case 3 to map to different bodies")
	}
	if posFor(2) != posFor(3) {
		t.Fatalf("expected case 2 and case 3 (same body) to map to the same position")
	}
}

func TestScenario4_DuplicateCaseValueIsScopeError(t *testing.T) {
	_, errs, _ := parse(t, `function x() -> { return 1; } function a() { } function b() { }
switch x() { case 1 a(); case 1 b(); }`)
	if len(errs) == 0 {
		t.Fatalf("expected a duplicate-case-value error")
	}
	if errs[0].Kind() != errors.Scope {
		t.Fatalf("expected a Scope-kind error, got %s", errs[0].Kind())
	}
}

// --- scenario 5 ---

func TestScenario5_TryExceptCompilesToOneTryOverTwoSubfunctions(t *testing.T) {
	mod := mustCompile(t, `function foo() { } try foo(); except throw exception;`)
	fd := exportedFunc(t, mod, "__init_module")
	ins := opcode.DecodeAll(fd.Code)

	var try *opcode.Instruction
	for i := range ins {
		if ins[i].Op == opcode.OpTry {
			try = &ins[i]
			break
		}
	}
	if try == nil {
		t.Fatalf("expected a TRY instruction")
	}

	exceptConst := fd.Constants[try.Operands[0]]
	tryConst := fd.Constants[try.Operands[1]]

	exceptFD, ok := exceptConst.Object().Payload.(*value.FunctionData)
	if !ok {
		t.Fatalf("expected TRY's first operand to name a function constant")
	}
	if _, ok := tryConst.Object().Payload.(*value.FunctionData); !ok {
		t.Fatalf("expected TRY's second operand to name a function constant")
	}

	exceptIns := opcode.DecodeAll(exceptFD.Code)
	foundReg0Read := false
	for _, in := range exceptIns {
		for _, op := range in.Operands {
			if op == 0 {
				foundReg0Read = true
			}
		}
	}
	if !foundReg0Read {
		t.Fatalf("expected the except sub-function to reference register 0")
	}
	if exceptIns[len(exceptIns)-1].Op != opcode.OpReturn {
		t.Fatalf("expected the except sub-function to end with RETURN")
	}
}

// --- scenario 6 ---

func TestScenario6_ExportedFunctionUsingOuterLocalIsRejected(t *testing.T) {
	_, errs, _ := parse(t, `function print(v) { } local outer = 1;
export function f() { upvalue outer; print(outer); }`)
	if len(errs) == 0 {
		t.Fatalf("expected an upvalue-export error")
	}
	found := false
	for _, e := range errs {
		if e.Message() == "Functions that use upvalues cannot be exported" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the exact upvalue-export message, got %v", errs)
	}
}

// --- additional coverage ---

func TestDeclareOneRejectsSameScopeRedeclaration(t *testing.T) {
	_, errs, _ := parse(t, `local x; local x;`)
	if len(errs) == 0 || errs[0].Kind() != errors.Scope {
		t.Fatalf("expected a Scope error for same-scope redeclaration, got %v", errs)
	}
}

func TestDeclareOneRequiresShadowForOuterConflict(t *testing.T) {
	_, errs, _ := parse(t, `local x; if (true) { local x; }`)
	if len(errs) == 0 || errs[0].Kind() != errors.Scope {
		t.Fatalf("expected a Scope error without 'shadow', got %v", errs)
	}
	mustCompile(t, `local x; if (true) { shadow local x; }`)
}

func TestShorthandAssignCompilesToOperatorThenStore(t *testing.T) {
	mustCompile(t, `local x = 1; x += 2;`)
}

func TestForwardDeclarationCompletedByMatchingDefinition(t *testing.T) {
	mustCompile(t, `function f(); function f() { }`)
}

func TestForwardDeclarationNeverDefinedIsReported(t *testing.T) {
	_, errs, _ := parse(t, `function f();`)
	if len(errs) == 0 || errs[0].Kind() != errors.Scope {
		t.Fatalf("expected an undefined-forward-declaration error, got %v", errs)
	}
}

func TestUntryCompilesIndependentOfTry(t *testing.T) {
	mod := mustCompile(t, `function foo() { } untry foo();`)
	fd := exportedFunc(t, mod, "__init_module")
	ins := opcode.DecodeAll(fd.Code)
	found := false
	for _, in := range ins {
		if in.Op == opcode.OpUntry {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an UNTRY instruction, got %v", ins)
	}
}

func TestConstantDeclarationFoldsAsLiteral(t *testing.T) {
	mustCompile(t, `function print(v) { } constant Answer = 42; function use() { print(Answer); }`)
}

func TestBitwiseAndRotateOperatorsFold(t *testing.T) {
	mustCompile(t, `static a = 3 & 1;
static b = 1 << 2;
static c = 5 xor 3;
static d = 1 rol 1;
static e = 1 ror 1;
static f = 1 brev 8;
static g = 3 min 7;
static h = 3 max 7;`)
}
