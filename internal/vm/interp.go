package vm

import "corevm/internal/bytecode"

// runFrame drives frame's instruction pointer forward until it hits one of
// the FrameLoop's three control points: a return, a yield, or a
// tail call that pushed a new frame (the CallFunction opcode with
// opCall == true). Concrete opcode semantics beyond the frame loop's own
// control-flow contract (arithmetic, comparisons, string/number coercions)
// are a compiler concern and out of scope here; this covers exactly the
// opcode set internal/bytecode defines plus what internal/optimizer
// rewrites.
func (rt *Runtime) runFrame(frame *Frame) (v Value, sentinel frameSentinel, raised bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stackOverflow); !ok {
				panic(r)
			}
			// The overflowing Push left the stack full; drop the failed
			// opcode's top operand so the exception value itself fits.
			frame.Pop()
			v, sentinel, raised = rt.signalRaise(frame, recursionErrorf("maximum value stack depth exceeded"))
		}
	}()
	for {
		instr, ok := frame.Code.At(frame.IP)
		if !ok {
			return rt.None, sentinelReturn, false
		}
		frame.IP++

		switch instr.Op {
		case bytecode.NoOp:
			// nothing

		case bytecode.LoadConst:
			frame.Push(rt.constValue(frame.Code.Consts[instr.Arg]))

		case bytecode.LoadLocal:
			name := frame.Code.Names[instr.Arg].Name
			v, err := rt.resolveLocal(frame, name)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			frame.Push(v)

		case bytecode.StoreLocal:
			name := frame.Code.Names[instr.Arg].Name
			frame.Locals.Set(name, frame.Pop())

		case bytecode.LoadGlobal:
			name := frame.Code.Names[instr.Arg].Name
			v, err := rt.resolveGlobal(frame, name)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			frame.Push(v)

		case bytecode.StoreGlobal:
			name := frame.Code.Names[instr.Arg].Name
			rt.moduleGlobals(frame).Set(name, frame.Pop())

		case bytecode.LoadName, bytecode.LoadNameRef:
			// Both opcodes resolve a name through locals, closure, then module
			// globals (resolveName), whatever its recorded scope; LoadNameRef
			// is kept distinct purely so the optimizer can recognize the
			// LOAD_NAME container; LOAD_NAME index; BUILD_INDEX 1 triple and
			// fuse it into FastIndex (see internal/optimizer).
			name := frame.Code.Names[instr.Arg].Name
			v, err := rt.resolveName(frame, name)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			frame.Push(v)

		case bytecode.LoadAttr:
			name := frame.Code.Names[instr.Arg].Name
			obj := frame.Pop()
			v, err := rt.GetAttr(obj, name)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			frame.Push(v)

		case bytecode.StoreAttr:
			name := frame.Code.Names[instr.Arg].Name
			value := frame.Pop()
			obj := frame.Pop()
			if err := rt.SetAttr(obj, name, value); err != nil {
				return rt.signalRaise(frame, err)
			}

		case bytecode.BuildIndex:
			idx := frame.Pop()
			container := frame.Pop()
			v, err := rt.getItem(container, idx)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			frame.Push(v)

		case bytecode.FastIndex:
			containerIdx, indexIdx := bytecode.UnpackNamePair(instr.Arg)
			containerName := frame.Code.Names[containerIdx].Name
			indexName := frame.Code.Names[indexIdx].Name
			container, err := rt.resolveName(frame, containerName)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			index, err := rt.resolveName(frame, indexName)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			v, err := rt.getItem(container, index)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			frame.Push(v)

		case bytecode.BuildTuple:
			n := int(instr.Arg)
			items := make([]Value, n)
			for i := n - 1; i >= 0; i-- {
				items[i] = frame.Pop()
			}
			frame.Push(rt.NewTuple(items))

		case bytecode.BuildList:
			n := int(instr.Arg)
			items := make([]Value, n)
			for i := n - 1; i >= 0; i-- {
				items[i] = frame.Pop()
			}
			frame.Push(rt.NewList(items))

		case bytecode.UnaryNegative:
			neg, err := rt.NumNegated(frame.Pop())
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			frame.Push(neg)

		case bytecode.Pop:
			frame.Pop()

		case bytecode.Dup:
			frame.Push(frame.Peek(0))

		case bytecode.Jump:
			frame.IP = int(instr.Arg)

		case bytecode.JumpIfFalse:
			cond, err := rt.AsBool(frame.Pop())
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			if !cond {
				frame.IP = int(instr.Arg)
			}

		case bytecode.SetupTry:
			frame.PushBlock(Block{
				Kind:      bytecode.BlockTry,
				HandlerIP: int(instr.Arg),
				StackSize: frame.StackLen(),
			})

		case bytecode.PopBlock:
			frame.PopBlock()

		case bytecode.Raise:
			// The exception value is already on the stack; leave it there
			// and let raise() (frameloop.go) find it via frame.Pop().
			return Value{}, sentinelReturn, true

		case bytecode.CallFunction:
			nargs := int(instr.Arg)
			args := make([]Value, nargs)
			for i := nargs - 1; i >= 0; i-- {
				args[i] = frame.Pop()
			}
			callee := frame.Pop()
			result, outcome, err := rt.callValue(callee, args, nil, true, 0)
			if err != nil {
				return rt.signalRaise(frame, err)
			}
			if outcome == CallPushedFrame {
				return Value{}, sentinelCall, false
			}
			frame.Push(result)

		case bytecode.MakeFunction:
			tmpl := frame.Code.Consts[instr.Arg].(*bytecode.FunctionTemplate)
			defaults := make([]Value, tmpl.NumDefaults)
			for i := tmpl.NumDefaults - 1; i >= 0; i-- {
				defaults[i] = frame.Pop()
			}
			fn := &Object{
				Type: rt.TypeFunction,
				Kind: KindFunction,
				Payload: &FunctionPayload{
					Name:        tmpl.Code.Name,
					Code:        tmpl.Code,
					Module:      frame.Module,
					Closure:     frame.Locals,
					ParamNames:  tmpl.ParamNames,
					Defaults:    defaults,
					StarParam:   tmpl.StarParam,
					IsGenerator: tmpl.Code.IsGenerator,
				},
			}
			frame.Push(NewHeap(fn))

		case bytecode.ReturnValue:
			return frame.Pop(), sentinelReturn, false

		case bytecode.YieldValue:
			return frame.Pop(), sentinelYield, false
		}
	}
}

// constValue boxes a raw constant-pool entry (placed there by the
// compiler) into a Value. int64/float64/string/bool/nil cover the scalar
// literal kinds a constant pool holds; anything else (e.g. a nested
// *bytecode.FunctionTemplate) is read directly by its own opcode instead
// of going through here.
func (rt *Runtime) constValue(raw interface{}) Value {
	switch c := raw.(type) {
	case int64:
		return MustInt(c)
	case int:
		return MustInt(int64(c))
	case float64:
		return NewFloat(c)
	case string:
		return rt.NewString(c)
	case bool:
		if c {
			return rt.True
		}
		return rt.False
	case nil:
		return rt.None
	default:
		return rt.None
	}
}

func (rt *Runtime) moduleGlobals(frame *Frame) *AttrDict {
	return frame.Module.Payload.(*ModulePayload).Globals
}

func (rt *Runtime) resolveLocal(frame *Frame, name string) (Value, error) {
	if v, ok := frame.Locals.Get(name); ok {
		return v, nil
	}
	if frame.Closure != nil {
		if v, ok := frame.Closure.Get(name); ok {
			return v, nil
		}
	}
	return Value{}, nameErrorf("name %q is not defined", name)
}

func (rt *Runtime) resolveGlobal(frame *Frame, name string) (Value, error) {
	if v, ok := rt.moduleGlobals(frame).Get(name); ok {
		return v, nil
	}
	return Value{}, nameErrorf("name %q is not defined", name)
}

// resolveName is LOAD_NAME's full lookup chain: local/closure, then
// module globals, matching ordinary lexical scoping.
func (rt *Runtime) resolveName(frame *Frame, name string) (Value, error) {
	if v, ok := frame.Locals.Get(name); ok {
		return v, nil
	}
	if frame.Closure != nil {
		if v, ok := frame.Closure.Get(name); ok {
			return v, nil
		}
	}
	if v, ok := rt.moduleGlobals(frame).Get(name); ok {
		return v, nil
	}
	return Value{}, nameErrorf("name %q is not defined", name)
}

// getItem implements subscript get (BUILD_INDEX/FAST_INDEX): built-in
// sequence/mapping kinds are handled directly, anything else falls back to
// a __getitem__ method lookup.
func (rt *Runtime) getItem(container, index Value) (Value, error) {
	if container.IsHeap() {
		switch container.Object().Kind {
		case KindList:
			lp := container.Object().Payload.(*ListPayload)
			i, err := rt.seqIndex(index, len(lp.Items))
			if err != nil {
				return Value{}, err
			}
			return lp.Items[i], nil
		case KindTuple:
			items := container.Object().Payload.([]Value)
			i, err := rt.seqIndex(index, len(items))
			if err != nil {
				return Value{}, err
			}
			return items[i], nil
		case KindMap:
			mp := container.Object().Payload.(*MapPayload)
			v, ok, err := mp.Get(rt, index)
			if err != nil {
				return Value{}, err
			}
			if !ok {
				repr, _ := rt.AsRepr(index)
				return Value{}, keyErrorf("%s", repr)
			}
			return v, nil
		case KindString:
			s := container.Object().Payload.(string)
			i, err := rt.seqIndex(index, len(s))
			if err != nil {
				return Value{}, err
			}
			return rt.NewString(string(s[i])), nil
		}
	}
	if getFn, ok := rt.lookupMethod(container, "__getitem__"); ok {
		return rt.CallValue(getFn, []Value{container, index}, nil, false)
	}
	return Value{}, typeErrorf("%q object is not subscriptable", rt.typeName(rt.TypeOf(container)))
}

func (rt *Runtime) seqIndex(index Value, length int) (int, error) {
	if !index.IsInt() {
		return 0, typeErrorf("indices must be integers")
	}
	i := index.Int()
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, indexErrorf("index out of range")
	}
	return int(i), nil
}
