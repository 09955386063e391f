package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNewSetsKindAndFormattedMessage(t *testing.T) {
	err := NewTypeErrorf("bad operand type for unary -: %q", "str")
	if err.Type != TypeError {
		t.Fatalf("Type = %v, want TypeError", err.Type)
	}
	want := `bad operand type for unary -: "str"`
	if err.Message != want {
		t.Fatalf("Message = %q, want %q", err.Message, want)
	}
}

func TestAddStackFrameAccumulatesInnermostFirst(t *testing.T) {
	err := NewValueErrorf("x")
	err.AddStackFrame("inner", "inner.py", 3, 0)
	err.AddStackFrame("middle", "middle.py", 7, 0)
	err.AddStackFrame("<module>", "outer.py", 1, 0)

	if len(err.CallStack) != 3 {
		t.Fatalf("CallStack length = %d, want 3", len(err.CallStack))
	}
	if err.CallStack[0].Function != "inner" || err.CallStack[2].Function != "<module>" {
		t.Fatalf("expected innermost-first ordering, got %+v", err.CallStack)
	}

	rendered := err.Error()
	if !strings.Contains(rendered, "ValueError: x") {
		t.Fatalf("rendered error missing kind/message: %q", rendered)
	}
	if !strings.Contains(rendered, "at inner (inner.py:3:0)") {
		t.Fatalf("rendered error missing inner frame: %q", rendered)
	}
}

func TestWrapPreservesCauseAndReportsIOError(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(cause, "writing output")

	if wrapped.Type != IOError {
		t.Fatalf("Type = %v, want IOError", wrapped.Type)
	}
	if !strings.Contains(wrapped.Message, "writing output") || !strings.Contains(wrapped.Message, "disk full") {
		t.Fatalf("Message = %q, want it to mention both the context and the cause", wrapped.Message)
	}
	if got := wrapped.Unwrap(); got != cause {
		t.Fatalf("Unwrap() = %v, want the original cause", got)
	}
}

func TestErrorWithNoCallStackOmitsTraceSection(t *testing.T) {
	err := NewNameErrorf("name %q is not defined", "x")
	if strings.Contains(err.Error(), "Call Stack:") {
		t.Fatalf("expected no Call Stack section when no frames were recorded, got %q", err.Error())
	}
}
