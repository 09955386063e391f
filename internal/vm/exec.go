package vm

import (
	"corevm/internal/bytecode"
	cerr "corevm/internal/errors"
)

// Exec implements the embedding host's primary entry point: run
// code as the top-level frame of module, returning its final expression
// value (or None) on success, or the unhandled exception's *cerr.Error
// (wrapped as a plain Go error) on failure. A single call to Exec owns one
// full FrameLoop invocation from an empty call stack.
func (rt *Runtime) Exec(module Value, code *bytecode.CodeObject) (Value, error) {
	mod := module.Object()
	mp := mod.Payload.(*ModulePayload)

	frame := NewFrame(rt.nextFrameID(), code, mod, mp.Globals, nil, "<module>", code.Name)
	frame.maxStack = rt.maxStack
	if err := rt.pushFrame(frame); err != nil {
		return Value{}, err
	}

	result, err := rt.runFrameLoop()
	if err != nil {
		// Exec always starts from an empty call stack, so raise() can only
		// ever escape here (never cross a nonexistent outer FrameLoop
		// boundary), meaning err is always the unhandled *cerr.Error itself.
		if excErr, ok := err.(*cerr.Error); ok {
			rt.writeUnhandled(excErr)
		}
		return Value{}, err
	}
	return result, nil
}
