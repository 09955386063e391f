package vm

import (
	"testing"

	"corevm/internal/bytecode"
	cerr "corevm/internal/errors"
)

// TestExceptHandlerBindsExceptionValue builds:
//
//	try:
//	    boom()          # raises ValueError("x")
//	except as e:
//	    return e.args[0]
//
// directly as a CodeObject, exercising the "except ValueError as e:
// e.args[0] yields 'x'" contract all the way through SETUP_TRY/RAISE's
// block-stack rerouting.
func TestExceptHandlerBindsExceptionValue(t *testing.T) {
	rt := NewVM()
	mod := rt.NewModule("m")
	rt.BindFunc(mod.Object(), "boom", 0, func(rt *Runtime, args []Value) (Value, error) {
		return Value{}, valueErrorf("x")
	})

	code := bytecode.NewCodeObject("<test>")
	boomIdx := code.AddName("boom", bytecode.ScopeGlobal)
	eIdx := code.AddName("e", bytecode.ScopeLocal)
	argsIdx := code.AddName("args", bytecode.ScopeLocal)
	zeroConst := code.AddConst(int64(0))

	setupTryIP := code.Emit(bytecode.SetupTry, 0, 1, -1) // arg patched below
	code.Emit(bytecode.LoadGlobal, boomIdx, 2, -1)
	code.Emit(bytecode.CallFunction, 0, 2, -1)
	code.Emit(bytecode.Pop, 0, 2, -1)
	jumpIP := code.Emit(bytecode.Jump, 0, 3, -1) // arg patched below

	handlerIP := int32(len(code.Codes))
	code.Emit(bytecode.StoreLocal, eIdx, 4, -1)
	code.Emit(bytecode.LoadLocal, eIdx, 4, -1)
	code.Emit(bytecode.LoadAttr, argsIdx, 4, -1)
	code.Emit(bytecode.LoadConst, zeroConst, 4, -1)
	code.Emit(bytecode.BuildIndex, 0, 4, -1)
	code.Emit(bytecode.ReturnValue, 0, 4, -1)

	endIP := int32(len(code.Codes))
	code.Emit(bytecode.LoadConst, code.AddConst(nil), 5, -1)
	code.Emit(bytecode.ReturnValue, 0, 5, -1)

	code.Codes[setupTryIP].Arg = handlerIP
	code.Codes[jumpIP].Arg = endIP

	result, err := rt.Exec(mod, code)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	s, err := rt.rawString(result)
	if err != nil || s != "x" {
		t.Fatalf("expected e.args[0] == \"x\", got %+v (err %v)", result, err)
	}
}

// TestUncaughtRaisePropagatesAcrossNestedCalls builds a 3-deep interpreted
// call chain (outer -> middle -> inner) where inner raises unconditionally
// with no handler anywhere, and checks the exception escapes Exec with a
// traceback entry accumulated for every frame unwound.
func TestUncaughtRaisePropagatesAcrossNestedCalls(t *testing.T) {
	rt := NewVM()
	mod := rt.NewModule("m")

	innerCode := bytecode.NewCodeObject("inner")
	rt.BindFunc(mod.Object(), "boom", 0, func(rt *Runtime, args []Value) (Value, error) {
		return Value{}, valueErrorf("boom")
	})
	boomIdx := innerCode.AddName("boom", bytecode.ScopeGlobal)
	innerCode.Emit(bytecode.LoadGlobal, boomIdx, 1, -1)
	innerCode.Emit(bytecode.CallFunction, 0, 1, -1)
	innerCode.Emit(bytecode.ReturnValue, 0, 1, -1)
	innerFn := &FunctionPayload{Name: "inner", Code: innerCode, Module: mod.Object()}
	innerVal := NewHeap(&Object{Type: rt.TypeFunction, Kind: KindFunction, Payload: innerFn})
	mod.Object().Payload.(*ModulePayload).Globals.Set("inner", innerVal)

	middleCode := bytecode.NewCodeObject("middle")
	innerIdx := middleCode.AddName("inner", bytecode.ScopeGlobal)
	middleCode.Emit(bytecode.LoadGlobal, innerIdx, 1, -1)
	middleCode.Emit(bytecode.CallFunction, 0, 1, -1)
	middleCode.Emit(bytecode.ReturnValue, 0, 1, -1)
	middleFn := &FunctionPayload{Name: "middle", Code: middleCode, Module: mod.Object()}
	middleVal := NewHeap(&Object{Type: rt.TypeFunction, Kind: KindFunction, Payload: middleFn})
	mod.Object().Payload.(*ModulePayload).Globals.Set("middle", middleVal)

	outerCode := bytecode.NewCodeObject("outer")
	middleIdx := outerCode.AddName("middle", bytecode.ScopeGlobal)
	outerCode.Emit(bytecode.LoadGlobal, middleIdx, 1, -1)
	outerCode.Emit(bytecode.CallFunction, 0, 1, -1)
	outerCode.Emit(bytecode.ReturnValue, 0, 1, -1)

	_, err := rt.Exec(mod, outerCode)
	if err == nil {
		t.Fatal("expected the unhandled ValueError to escape Exec")
	}
	excErr, ok := err.(*cerr.Error)
	if !ok {
		t.Fatalf("expected *cerr.Error, got %T", err)
	}
	if excErr.Type != cerr.ValueError {
		t.Fatalf("expected ValueError, got %s", excErr.Type)
	}
	if len(excErr.CallStack) != 3 {
		t.Fatalf("expected one traceback frame per unwound frame (inner/middle/outer), got %d: %+v",
			len(excErr.CallStack), excErr.CallStack)
	}
	if excErr.CallStack[0].Function != "inner" || excErr.CallStack[2].Function != "<module>" {
		t.Fatalf("expected traceback innermost-first (inner, middle, <module>), got %+v", excErr.CallStack)
	}
}
