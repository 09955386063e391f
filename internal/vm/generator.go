package vm

// Generator state machine.
const (
	GeneratorFresh = iota
	GeneratorSuspended
	GeneratorExhausted
)

// GeneratorPayload is the payload of a KindGenerator object: the frame it
// exclusively owns while suspended, and its current state. The frame is
// nil once the generator reaches GeneratorExhausted, releasing the last
// reference so its locals can be collected.
type GeneratorPayload struct {
	State int
	Frame *Frame
}

// Next implements the NativeIterator contract directly on
// GeneratorPayload, so a KindGenerator Object's Payload satisfies
// NativeIterator without a wrapper: push the owned frame onto the call
// stack, run a nested FrameLoop. A yield suspends the frame back into the
// generator (popping the yielded value off its stack so the next resume
// starts clean); a normal return exhausts the generator.
func (gp *GeneratorPayload) Next(rt *Runtime) (Value, bool, error) {
	switch gp.State {
	case GeneratorExhausted:
		return Value{}, false, nil
	case GeneratorSuspended, GeneratorFresh:
		// fall through
	}

	if err := rt.pushFrame(gp.Frame); err != nil {
		return Value{}, false, err
	}
	gp.State = GeneratorSuspended

	result, sentinel, err := rt.runGeneratorFrame(gp.Frame)
	if err != nil {
		gp.State = GeneratorExhausted
		gp.Frame = nil
		return Value{}, false, err
	}

	switch sentinel {
	case sentinelYield:
		return result, true, nil
	default:
		gp.State = GeneratorExhausted
		gp.Frame = nil
		return Value{}, false, nil
	}
}

// runGeneratorFrame is runFrameLoop specialized for a generator's owned
// frame: it reports which sentinel stopped it (yield or the frame's own
// return) and, on a yield, pops the frame off the call stack so the
// generator alone owns it. The generator frame is the base frame of this
// invocation, so a plain return means exhaustion rather than "pop into
// caller".
func (rt *Runtime) runGeneratorFrame(frame *Frame) (Value, frameSentinel, error) {
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
				return Value{}, sentinelReturn, errToBeRaised{}
			default:
				return Value{}, sentinelReturn, err
			}
		}

		switch sentinel {
		case sentinelYield:
			rt.popFrame() // generator keeps ownership via gp.Frame, not the call stack
			return result, sentinelYield, nil
		case sentinelCall:
			frame = rt.topFrame()
		default:
			popped := rt.popFrame()
			if popped.ID == baseID {
				return result, sentinelReturn, nil
			}
			frame = rt.topFrame()
			frame.Push(result)
		}
	}
}
