package vm

import cerr "corevm/internal/errors"

// frameSentinel distinguishes what runFrame handed back to the loop: a
// real value, or one of the two control sentinels.
type frameSentinel uint8

const (
	sentinelReturn frameSentinel = iota
	sentinelCall
	sentinelYield
)

// errToBeRaised is returned by runFrameLoop when an unhandled exception
// has unwound past frames belonging to an *outer* FrameLoop invocation
// (one still waiting on a nested, non-tail CallValue made from deeper in
// this loop). The caller one level up, always a runFrame opcode handler
// that made that nested call, must treat this exactly like any other
// raised exception (the value is already sitting on its current top
// frame's stack) rather than as an ordinary Go error.
type errToBeRaised struct{}

func (errToBeRaised) Error() string { return "exception propagating across frame-loop boundary" }

// runFrameLoop is the outer _exec driver: it reads base_id from the
// current top frame and runs until that exact frame is popped, threading
// native/interpreted calls, yields, and exception propagation across
// frames. It is re-entered by every non-tail CallValue (opCall == false),
// which is how a native function calling back into the interpreter ends up
// running its own nested FrameLoop invocation.
func (rt *Runtime) runFrameLoop() (Value, error) {
	frame := rt.topFrame()
	baseID := frame.ID

	for {
		result, sentinel, raised := rt.runFrame(frame)
		if raised {
			outcome, err := rt.raise(baseID)
			switch outcome {
			case raiseHandled:
				frame = rt.topFrame()
				continue
			case raiseToBeRaised:
				return Value{}, errToBeRaised{}
			default: // raiseEscaped
				return Value{}, err
			}
		}

		switch sentinel {
		case sentinelYield:
			return result, nil
		case sentinelCall:
			frame = rt.topFrame()
		default:
			popped := rt.popFrame()
			if popped.ID == baseID {
				return result, nil
			}
			frame = rt.topFrame()
			frame.Push(result)
		}
	}
}

type raiseOutcome uint8

const (
	raiseHandled raiseOutcome = iota
	raiseToBeRaised
	raiseEscaped
)

// raise propagates the in-flight exception, already sitting on the top
// frame's value stack. If the frame's block stack can catch it, control
// has already been rerouted there. Otherwise the frame unwinds: a
// traceback entry is appended, the frame pops, and the exception is
// pushed onto the new top frame, recursing to retry the catch there.
func (rt *Runtime) raise(baseID int64) (raiseOutcome, error) {
	frame := rt.topFrame()
	if frame.JumpToExceptionHandler() {
		return raiseHandled, nil
	}

	excValue := frame.Pop()
	excErr := rt.errorFromException(excValue)
	excErr.AddStackFrame(frame.FuncName(), frame.File(), frame.CurrentLine(), 0)

	rt.popFrame()
	if len(rt.callStack) == 0 {
		return raiseEscaped, excErr
	}
	newTop := rt.topFrame()
	newTop.Push(excValue)
	if newTop.ID < baseID {
		return raiseToBeRaised, nil
	}
	return rt.raise(baseID)
}

// signalRaise converts a Go error surfaced from an opcode's operation
// (AttrResolver, CallDispatcher, TypeOps, ...) into the "raised" outcome
// runFrame reports to runFrameLoop. If err is already errToBeRaised, the
// exception value is already on frame's stack (pushed by a nested raise())
// and nothing further needs pushing.
func (rt *Runtime) signalRaise(frame *Frame, err error) (Value, frameSentinel, bool) {
	if _, ok := err.(errToBeRaised); ok {
		return Value{}, sentinelReturn, true
	}
	excErr := toRuntimeError(err)
	frame.Push(rt.newExceptionValue(excErr))
	return Value{}, sentinelReturn, true
}

func toRuntimeError(err error) *cerr.Error {
	if re, ok := err.(*cerr.Error); ok {
		return re
	}
	return cerr.New(cerr.Exception, "%s", err.Error())
}
