package vm

import (
	"corevm/internal/bytecode"

	"golang.org/x/exp/slices"
)

// KwArg is one keyword argument in a call.
type KwArg struct {
	Name  string
	Value Value
}

// BoundMethodPayload is the payload of a KindBoundMethod object: a
// callable paired with its implicit first argument.
type BoundMethodPayload struct {
	Self Value
	Func Value
}

// FunctionPayload is the payload of a KindFunction object: an interpreted
// function closing over its defining module and (optionally) an enclosing
// scope.
type FunctionPayload struct {
	Name    string
	Code    *bytecode.CodeObject
	Module  *Object
	Closure *AttrDict

	// ParamNames are the declared positional-or-keyword parameter names,
	// in order. Defaults holds default values for the trailing len(Defaults)
	// of them, in the same declared order.
	ParamNames []string
	Defaults   []Value

	// StarParam is the name bound to a tuple of leftover positionals, or
	// "" if the function declares no *args parameter.
	StarParam string

	IsGenerator bool
}

// CallOutcome distinguishes a CallValue result that is already final from
// one where a new interpreted frame was merely pushed and the caller (the
// outer FrameLoop) must keep running to produce it.
type CallOutcome uint8

const (
	CallReturned CallOutcome = iota
	CallPushedFrame
)

// CallValue is the CallDispatcher: the single entry point every
// callable Value (type, bound method, native function, interpreted
// function, or a plain object with __call__) goes through.
func (rt *Runtime) CallValue(callee Value, pos []Value, kw []KwArg, opCall bool) (Value, error) {
	v, outcome, err := rt.callValue(callee, pos, kw, opCall, 0)
	if err != nil {
		return Value{}, err
	}
	if outcome == CallPushedFrame {
		// opCall was requested but this call site (e.g. TypeOps invoking
		// __len__) always wants the final value, so finish the nested
		// loop here rather than surfacing the sentinel.
		return rt.runFrameLoop()
	}
	return v, nil
}

// callValue is CallValue's internal form that preserves the
// pushed-frame-vs-returned distinction for the opcode dispatch loop.
func (rt *Runtime) callValue(callee Value, pos []Value, kw []KwArg, opCall bool, depth int) (Value, CallOutcome, error) {
	pos = rt.expandSpread(pos)

	if !callee.IsHeap() {
		return Value{}, CallReturned, typeErrorf("%q object is not callable", rt.typeName(rt.TypeOf(callee)))
	}
	obj := callee.Object()

	switch obj.Kind {
	case KindType:
		return rt.callType(obj, pos, kw)

	case KindBoundMethod:
		bm := obj.Payload.(*BoundMethodPayload)
		return rt.callValue(bm.Func, append([]Value{bm.Self}, pos...), kw, opCall, depth)

	case KindNativeFunc:
		return rt.callNative(obj, pos, kw)

	case KindFunction:
		return rt.callFunction(obj, pos, kw, opCall)

	default:
		if callFn, ok := rt.lookupMethod(callee, "__call__"); ok {
			return rt.callValue(callFn, pos, kw, opCall, depth+1)
		}
		return Value{}, CallReturned, typeErrorf("%q object is not callable", rt.typeName(obj.Type))
	}
}

// expandSpread replaces any KindSpread marker in pos with the elements of
// its wrapped iterable, in place.
func (rt *Runtime) expandSpread(pos []Value) []Value {
	isSpread := func(p Value) bool { return p.IsHeap() && p.Object().Kind == KindSpread }
	if !slices.ContainsFunc(pos, isSpread) {
		return pos
	}
	out := make([]Value, 0, len(pos))
	for _, p := range pos {
		if isSpread(p) {
			inner := p.Object().Payload.(Value)
			out = append(out, rt.iterToSlice(inner)...)
			continue
		}
		out = append(out, p)
	}
	return out
}

func (rt *Runtime) iterToSlice(v Value) []Value {
	if v.IsHeap() {
		switch v.Object().Kind {
		case KindTuple:
			return v.Object().Payload.([]Value)
		case KindList:
			return v.Object().Payload.(*ListPayload).Items
		}
	}
	it, err := rt.AsIter(v)
	if err != nil {
		return nil
	}
	var out []Value
	for {
		val, ok, err := it.Next(rt)
		if err != nil || !ok {
			break
		}
		out = append(out, val)
	}
	return out
}

// callType handles type construction via __new__/__init__.
func (rt *Runtime) callType(typeObj *Object, pos []Value, kw []KwArg) (Value, CallOutcome, error) {
	typeIdx := typeObj.Payload.(int)

	if newFn, ok := rt.lookupClassMethod(typeIdx, "__new__"); ok {
		return rt.callValue(newFn, append([]Value{NewHeap(typeObj)}, pos...), kw, false, 0)
	}

	inst := &Object{Type: typeIdx, Kind: KindInstance, Attrs: NewAttrDict()}
	instVal := NewHeap(inst)

	if initFn, ok := rt.lookupClassMethod(typeIdx, "__init__"); ok {
		_, _, err := rt.callValue(initFn, append([]Value{instVal}, pos...), kw, false, 0)
		if err != nil {
			return Value{}, CallReturned, err
		}
	}
	return instVal, CallReturned, nil
}

// lookupClassMethod looks a name up through the MRO starting at typeIdx's
// class dict, without going through descriptor binding (constructor
// dispatch calls __new__/__init__ unbound, passing the instance itself).
func (rt *Runtime) lookupClassMethod(typeIdx int, name string) (Value, bool) {
	for _, t := range rt.Types.MRO(typeIdx) {
		e := rt.Types.Entry(t)
		if e == nil || e.Self.Attrs == nil {
			continue
		}
		if fn, ok := e.Self.Attrs.Get(name); ok {
			return fn, true
		}
	}
	return Value{}, false
}

// callNative dispatches a call to a native (Go-implemented) function.
func (rt *Runtime) callNative(obj *Object, pos []Value, kw []KwArg) (Value, CallOutcome, error) {
	nf := obj.Payload.(*NativeFunctionPayload)
	if len(kw) > 0 {
		return Value{}, CallReturned, typeErrorf("%s() takes no keyword arguments", nf.Name)
	}
	want := nf.Argc
	if nf.IsMethod {
		want++ // Argc excludes self; pos already has self prepended by the bound-method unwrap.
	}
	if len(pos) != want {
		return Value{}, CallReturned, typeErrorf("%s() expected %d arguments, got %d", nf.Name, want, len(pos))
	}
	result, err := nf.Fn(rt, pos)
	if err != nil {
		return Value{}, CallReturned, err
	}
	return result, CallReturned, nil
}

// callFunction performs full positional/keyword/variadic argument binding
// for an interpreted function.
func (rt *Runtime) callFunction(obj *Object, pos []Value, kw []KwArg, opCall bool) (Value, CallOutcome, error) {
	fp := obj.Payload.(*FunctionPayload)

	// The optimizer precomputes a perfect-hash capacity/seed for the local
	// names this function's code reads or writes via LOAD_LOCAL/STORE_LOCAL
	// (internal/optimizer); a locals
	// dict built from them gets single-probe lookups from its first Set
	// instead of only after a later TryPerfectRehash call.
	locals := NewAttrDictSized(fp.Code.PerfectLocalsCapacity, fp.Code.PerfectHashSeed)
	nParams := len(fp.ParamNames)
	nRequired := nParams - len(fp.Defaults)

	// 1. Bind positional parameters in order.
	bound := 0
	for bound < len(pos) && bound < nParams {
		locals.Set(fp.ParamNames[bound], pos[bound])
		bound++
	}

	// 2. Seed default-kwarg values for parameters not yet bound.
	for i := bound; i < nParams; i++ {
		if i >= nRequired {
			locals.Set(fp.ParamNames[i], fp.Defaults[i-nRequired])
		}
	}

	// 3. Leftover positionals: collect into *args, or spill onto named
	// kwargs in declared order, or error.
	leftover := pos[bound:]
	if fp.StarParam != "" {
		tup := &Object{Type: rt.TypeTuple, Kind: KindTuple, Payload: append([]Value{}, leftover...)}
		locals.Set(fp.StarParam, NewHeap(tup))
	} else {
		i := bound
		for _, v := range leftover {
			if i >= nParams {
				return Value{}, CallReturned, typeErrorf("%s() takes at most %d arguments", fp.Name, nParams)
			}
			locals.Set(fp.ParamNames[i], v)
			i++
		}
	}

	// 4. Apply keyword arguments; reject unknown names.
	for _, kv := range kw {
		found := false
		for _, p := range fp.ParamNames {
			if p == kv.Name {
				found = true
				break
			}
		}
		if !found {
			return Value{}, CallReturned, typeErrorf("%s() got an unexpected keyword argument %q", fp.Name, kv.Name)
		}
		locals.Set(kv.Name, kv.Value)
	}

	// Verify every required parameter ended up bound.
	for i := 0; i < nRequired; i++ {
		if !locals.Contains(fp.ParamNames[i]) {
			return Value{}, CallReturned, typeErrorf("%s() missing required argument: %q", fp.Name, fp.ParamNames[i])
		}
	}

	id := rt.nextFrameID()
	frame := NewFrame(id, fp.Code, fp.Module, locals, fp.Closure, fp.Name, codeFile(fp.Code))
	frame.maxStack = rt.maxStack

	if fp.IsGenerator {
		gen := &Object{
			Type: rt.TypeGenerator,
			Kind: KindGenerator,
			Payload: &GeneratorPayload{
				State: GeneratorFresh,
				Frame: frame,
			},
		}
		return NewHeap(gen), CallReturned, nil
	}

	if err := rt.pushFrame(frame); err != nil {
		return Value{}, CallReturned, err
	}
	if opCall {
		return Value{}, CallPushedFrame, nil
	}
	result, err := rt.runFrameLoop()
	if err != nil {
		return Value{}, CallReturned, err
	}
	return result, CallReturned, nil
}

func codeFile(code *bytecode.CodeObject) string {
	if code == nil {
		return "<unknown>"
	}
	return code.Name
}
