package vm

import (
	"testing"

	"corevm/internal/bytecode"
	"corevm/internal/optimizer"
)

// buildFBinding constructs def f(a, b=2, *c): return (a, b, c) directly as
// a FunctionPayload.
func buildFBinding(rt *Runtime) *Object {
	code := bytecode.NewCodeObject("f")
	aIdx := code.AddName("a", bytecode.ScopeLocal)
	bIdx := code.AddName("b", bytecode.ScopeLocal)
	cIdx := code.AddName("c", bytecode.ScopeLocal)

	// return (a, b, c)
	code.Emit(bytecode.LoadLocal, aIdx, 1, -1)
	code.Emit(bytecode.LoadLocal, bIdx, 1, -1)
	code.Emit(bytecode.LoadLocal, cIdx, 1, -1)
	code.Emit(bytecode.BuildTuple, 3, 1, -1)
	code.Emit(bytecode.ReturnValue, 0, 1, -1)

	fp := &FunctionPayload{
		Name:       "f",
		Code:       code,
		ParamNames: []string{"a", "b"},
		Defaults:   []Value{MustInt(2)},
		StarParam:  "c",
	}
	return &Object{Type: rt.TypeFunction, Kind: KindFunction, Payload: fp}
}

func TestCallFunctionBindingMatrix(t *testing.T) {
	rt := NewVM()
	mod := rt.NewModule("m")
	fObj := buildFBinding(rt)
	fObj.Payload.(*FunctionPayload).Module = mod.Object()
	fn := NewHeap(fObj)

	result, err := rt.CallValue(fn, []Value{MustInt(1)}, nil, false)
	if err != nil {
		t.Fatalf("f(1): %v", err)
	}
	checkTuple(t, result, MustInt(1), MustInt(2), rt.NewTuple(nil))

	result, err = rt.CallValue(fn, []Value{MustInt(1), MustInt(5)}, nil, false)
	if err != nil {
		t.Fatalf("f(1,5): %v", err)
	}
	checkTuple(t, result, MustInt(1), MustInt(5), rt.NewTuple(nil))

	result, err = rt.CallValue(fn, []Value{MustInt(1), MustInt(5), MustInt(9), MustInt(10)}, nil, false)
	if err != nil {
		t.Fatalf("f(1,5,9,10): %v", err)
	}
	tup := result.Object().Payload.([]Value)
	rest := tup[2].Object().Payload.([]Value)
	if len(rest) != 2 || rest[0].Int() != 9 || rest[1].Int() != 10 {
		t.Fatalf("expected c=(9,10), got %v", rest)
	}

	_, err = rt.CallValue(fn, []Value{MustInt(1), MustInt(2)}, []KwArg{{Name: "z", Value: MustInt(9)}}, false)
	if err == nil {
		t.Fatal("f(1, 2, z=9) must raise TypeError for unknown keyword")
	}
}

// TestCallFunctionUsesOptimizerPrecomputedLocalsCapacity runs the real
// optimizer pass over f's code before calling it, so the locals dict
// callFunction builds is NewAttrDictSized(code.PerfectLocalsCapacity,
// code.PerfectHashSeed) with a genuinely nonzero capacity, not the
// capacity==0 fallback most other tests exercise.
func TestCallFunctionUsesOptimizerPrecomputedLocalsCapacity(t *testing.T) {
	rt := NewVM()
	mod := rt.NewModule("m")
	fObj := buildFBinding(rt)
	fp := fObj.Payload.(*FunctionPayload)
	fp.Module = mod.Object()
	optimizer.Optimize(fp.Code)
	if fp.Code.PerfectLocalsCapacity == 0 {
		t.Fatal("expected the optimizer to find a perfect capacity for a 3-name local set")
	}
	fn := NewHeap(fObj)

	result, err := rt.CallValue(fn, []Value{MustInt(1), MustInt(5), MustInt(9)}, nil, false)
	if err != nil {
		t.Fatalf("f(1,5,9): %v", err)
	}
	checkTuple(t, result, MustInt(1), MustInt(5), rt.NewTuple(nil))
	tup := result.Object().Payload.([]Value)
	rest := tup[2].Object().Payload.([]Value)
	if len(rest) != 1 || rest[0].Int() != 9 {
		t.Fatalf("expected c=(9,), got %v", rest)
	}
}

func checkTuple(t *testing.T, v Value, want ...Value) {
	t.Helper()
	items := v.Object().Payload.([]Value)
	if len(items) != len(want) {
		t.Fatalf("tuple length = %d, want %d", len(items), len(want))
	}
	for i := range want {
		if i == 2 {
			continue // the *args tuple, checked separately where it matters
		}
		if items[i].Tag() != want[i].Tag() || (items[i].IsInt() && items[i].Int() != want[i].Int()) {
			t.Fatalf("tuple[%d] = %+v, want %+v", i, items[i], want[i])
		}
	}
}
