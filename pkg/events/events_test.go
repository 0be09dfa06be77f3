package events

import "testing"

func TestInitAndTestInit(t *testing.T) {
	root := NewRoot()
	if root.TestInit(3) != No {
		t.Fatalf("expected No before init, got %v", root.TestInit(3))
	}
	root.Init(3)
	if root.TestInit(3) != Yes {
		t.Fatalf("expected Yes after init, got %v", root.TestInit(3))
	}
}

func TestInitAlreadyYesPanics(t *testing.T) {
	root := NewRoot()
	root.Init(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double init")
		}
	}()
	root.Init(1)
}

func TestConditionalPopDropsExitAndTarget(t *testing.T) {
	root := NewRoot()
	child := root.Push(Conditional)
	child.Exit()
	child.Target()
	child.DeclareReg(5)
	child.Init(5)
	parent := child.Pop()
	if parent != root {
		t.Fatal("expected Pop to return parent")
	}
	if len(root.Siblings) != 1 {
		t.Fatalf("expected 1 sibling, got %d", len(root.Siblings))
	}
	sib := root.Siblings[0]
	if sib.Exit != No {
		t.Errorf("expected Exit dropped to No, got %v", sib.Exit)
	}
	if sib.Target != No {
		t.Errorf("expected Target dropped to No, got %v", sib.Target)
	}
	if sib.Regs[5] != No {
		t.Errorf("expected declared-in-context reg dropped to No, got %v", sib.Regs[5])
	}
}

func TestNonConditionalPopMerges(t *testing.T) {
	root := NewRoot()
	child := root.Push(NonConditional)
	child.Init(2)
	child.Return()
	child.Pop()
	if root.Events.Regs[2] != Yes {
		t.Errorf("expected reg 2 merged as Yes, got %v", root.Events.Regs[2])
	}
	if root.Events.Return != Yes {
		t.Errorf("expected Return merged as Yes, got %v", root.Events.Return)
	}
}

func TestFunctionPopKeepsOnlyReturnAndResult(t *testing.T) {
	root := NewRoot()
	xblock := root.Push(Function)
	xblock.Init(9)
	xblock.Return()
	xblock.Result()
	xblock.Exit()
	xblock.Pop()
	if root.Events.Return != Yes || root.Events.Result != Yes {
		t.Fatal("expected Return and Result to leak from xblock")
	}
	if root.Events.Regs[9] != No {
		t.Errorf("expected register init not to leak from function context, got %v", root.Events.Regs[9])
	}
	if root.Events.Exit != No {
		t.Errorf("expected Exit not to leak from function context, got %v", root.Events.Exit)
	}
}

func TestMergeAllBranchesYesWithYesModulator(t *testing.T) {
	root := NewRoot()
	for i := 0; i < 2; i++ {
		branch := root.Push(Conditional)
		branch.Return()
		branch.Pop()
	}
	root.Merge(Yes)
	if root.Events.Return != Yes {
		t.Fatalf("expected Return=Yes when all branches return and modulator=Yes, got %v", root.Events.Return)
	}
}

func TestMergeIfWithoutElseClampsToMaybe(t *testing.T) {
	root := NewRoot()
	branch := root.Push(Conditional)
	branch.Return()
	branch.Pop()
	// if without else: only one branch collected, modulator Maybe
	root.Merge(Maybe)
	if root.Events.Return != Maybe {
		t.Fatalf("expected Return clamped to Maybe, got %v", root.Events.Return)
	}
}

func TestMergeMixedBranchesIsMaybe(t *testing.T) {
	root := NewRoot()
	b1 := root.Push(Conditional)
	b1.Init(4)
	b1.Pop()
	b2 := root.Push(Conditional)
	b2.Pop() // does not init reg 4
	root.Merge(Yes)
	if root.Events.Regs[4] != Maybe {
		t.Fatalf("expected Maybe for reg initialized on only one branch, got %v", root.Events.Regs[4])
	}
}

func TestTestExitClearedByTarget(t *testing.T) {
	root := NewRoot()
	root.Return()
	if root.TestExit() != Yes {
		t.Fatalf("expected Yes after Return, got %v", root.TestExit())
	}
	root.Target()
	if root.TestExit() != No {
		t.Fatalf("expected backward jump target to clear Exit test to No, got %v", root.TestExit())
	}
}

func TestBreakDepth(t *testing.T) {
	root := NewRoot()
	loop := root.Push(Conditional)
	inner := loop.Push(Conditional)
	inner.Break(loop)
	if inner.Events.BreakTo != 1 {
		t.Fatalf("expected break_to 1, got %d", inner.Events.BreakTo)
	}
}
