package optimizer

import (
	"testing"

	"corevm/internal/bytecode"
)

// TestFoldNegatedConstants is the negated-constant peephole: source `-3`
// compiles to LOAD_CONST 3; UNARY_NEGATIVE (2 opcodes) but after
// optimization executes as a single LOAD_CONST of the already-negated
// constant, with the neg opcode turned into a NO_OP (instruction count,
// and every later jump target, stays unchanged).
func TestFoldNegatedConstants(t *testing.T) {
	code := bytecode.NewCodeObject("<test>")
	threeIdx := code.AddConst(int64(3))
	code.Emit(bytecode.LoadConst, threeIdx, 1, -1)
	code.Emit(bytecode.UnaryNegative, 0, 1, -1)
	code.Emit(bytecode.ReturnValue, 0, 1, -1)

	Optimize(code)

	if len(code.Codes) != 3 {
		t.Fatalf("optimization must not change instruction count, got %d", len(code.Codes))
	}
	if code.Codes[1].Op != bytecode.NoOp {
		t.Fatalf("UNARY_NEGATIVE must become NO_OP, got %v", code.Codes[1].Op)
	}
	loadArg := code.Codes[0].Arg
	if code.Codes[0].Op != bytecode.LoadConst {
		t.Fatalf("first instruction must remain LOAD_CONST, got %v", code.Codes[0].Op)
	}
	got := code.Consts[loadArg]
	if got != int64(-3) {
		t.Fatalf("expected the folded constant to be -3, got %v", got)
	}
}

// TestFuseNameIndexing checks the LOAD_NAME a; LOAD_NAME x; BUILD_INDEX 1
// => FAST_INDEX peephole, with both name indices packed into one operand.
func TestFuseNameIndexing(t *testing.T) {
	code := bytecode.NewCodeObject("<test>")
	containerIdx := code.AddName("container", bytecode.ScopeLocal)
	indexIdx := code.AddName("index", bytecode.ScopeLocal)

	code.Emit(bytecode.LoadName, containerIdx, 1, -1)
	code.Emit(bytecode.LoadName, indexIdx, 1, -1)
	code.Emit(bytecode.BuildIndex, 1, 1, -1)
	code.Emit(bytecode.ReturnValue, 0, 1, -1)

	Optimize(code)

	if code.Codes[0].Op != bytecode.FastIndex {
		t.Fatalf("expected the triple to fuse into FAST_INDEX, got %v", code.Codes[0].Op)
	}
	if code.Codes[1].Op != bytecode.NoOp || code.Codes[2].Op != bytecode.NoOp {
		t.Fatalf("the two now-unused slots must become NO_OP, got %v, %v", code.Codes[1].Op, code.Codes[2].Op)
	}
	a, b := bytecode.UnpackNamePair(code.Codes[0].Arg)
	if a != containerIdx || b != indexIdx {
		t.Fatalf("expected packed name pair (%d, %d), got (%d, %d)", containerIdx, indexIdx, a, b)
	}
}

// TestFuseNameIndexingIgnoresRefForm: BUILD_INDEX with Arg != 1 marks the
// ref-form (LOAD_NAME_REF-paired assignment target) and must not fuse.
func TestFuseNameIndexingIgnoresRefForm(t *testing.T) {
	code := bytecode.NewCodeObject("<test>")
	containerIdx := code.AddName("container", bytecode.ScopeLocal)
	indexIdx := code.AddName("index", bytecode.ScopeLocal)

	code.Emit(bytecode.LoadName, containerIdx, 1, -1)
	code.Emit(bytecode.LoadName, indexIdx, 1, -1)
	code.Emit(bytecode.BuildIndex, 0, 1, -1)

	Optimize(code)

	if code.Codes[0].Op != bytecode.LoadName {
		t.Fatalf("BUILD_INDEX with arg != 1 must not be fused, got %v", code.Codes[0].Op)
	}
}

// TestPrecomputeLocalsHashGivesCollisionFreeSlots checks that every local
// name referenced by LOAD_LOCAL/STORE_LOCAL ends up at a distinct slot
// under the chosen capacity/seed.
func TestPrecomputeLocalsHashGivesCollisionFreeSlots(t *testing.T) {
	code := bytecode.NewCodeObject("<test>")
	names := []string{"a", "b", "c", "d"}
	var idxs []int32
	for _, n := range names {
		idxs = append(idxs, code.AddName(n, bytecode.ScopeLocal))
	}
	for _, idx := range idxs {
		code.Emit(bytecode.LoadLocal, idx, 1, -1)
	}

	Optimize(code)

	if code.PerfectLocalsCapacity == 0 {
		t.Fatal("expected a perfect-hash capacity to be found for 4 locals")
	}
	seen := make(map[uint64]bool)
	for _, n := range names {
		slot := fnv1a(n, code.PerfectHashSeed) & uint64(code.PerfectLocalsCapacity-1)
		if seen[slot] {
			t.Fatalf("local %q collided with another local at slot %d", n, slot)
		}
		seen[slot] = true
	}
}

// TestOptimizeIsANoOpOnceAlreadyOptimized checks the code.Optimized guard.
func TestOptimizeIsANoOpOnceAlreadyOptimized(t *testing.T) {
	code := bytecode.NewCodeObject("<test>")
	threeIdx := code.AddConst(int64(3))
	code.Emit(bytecode.LoadConst, threeIdx, 1, -1)
	code.Emit(bytecode.UnaryNegative, 0, 1, -1)

	Optimize(code)
	firstPassConsts := len(code.Consts)
	Optimize(code)
	if len(code.Consts) != firstPassConsts {
		t.Fatal("re-running Optimize on an already-optimized CodeObject must be a no-op")
	}
}
