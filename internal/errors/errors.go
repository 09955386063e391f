// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorType represents the type of error. Each one is also the qualified
// name of a built-in exception type reachable from interpreted code, with
// Exception as their common base.
type ErrorType string

const (
	TypeError ErrorType = "TypeError"

	ValueError          ErrorType = "ValueError"
	IndexError          ErrorType = "IndexError"
	KeyError            ErrorType = "KeyError"
	AttributeError      ErrorType = "AttributeError"
	NameError           ErrorType = "NameError"
	ZeroDivisionError   ErrorType = "ZeroDivisionError"
	OverflowError       ErrorType = "OverflowError"
	IOError             ErrorType = "IOError"
	RecursionError      ErrorType = "RecursionError"
	NotImplementedError ErrorType = "NotImplementedError"
	Exception           ErrorType = "Exception"
)

// Error is a raised exception: kind, message, and an accumulating
// traceback, the same shape whether it started at the native layer
// (NewTypeErrorf et al.) or crossed in from a host error via Wrap.
type Error struct {
	Type      ErrorType
	Message   string
	CallStack []StackFrame
	cause     error
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
	Column   int
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder

	// Error type and message
	sb.WriteString(fmt.Sprintf("%s: %s\n", e.Type, e.Message))

	// Stack trace, innermost frame first (the order frames are appended
	// to it as the FrameLoop unwinds).
	if len(e.CallStack) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, frame := range e.CallStack {
			if frame.Function != "" {
				sb.WriteString(fmt.Sprintf("  at %s (%s:%d:%d)\n",
					frame.Function, frame.File, frame.Line, frame.Column))
			} else {
				sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n",
					frame.File, frame.Line, frame.Column))
			}
		}
	}

	return sb.String()
}

// Unwrap exposes a wrapped host-native error, if this Error was built by Wrap.
func (e *Error) Unwrap() error { return e.cause }

// New builds a bare exception of the given kind with no traceback yet; the
// caller (the FrameLoop's raise()) appends call-stack frames as it
// propagates.
func New(kind ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: kind, Message: fmt.Sprintf(format, args...)}
}

func NewTypeErrorf(format string, args ...interface{}) *Error {
	return New(TypeError, format, args...)
}

func NewValueErrorf(format string, args ...interface{}) *Error {
	return New(ValueError, format, args...)
}

func NewIndexErrorf(format string, args ...interface{}) *Error {
	return New(IndexError, format, args...)
}

func NewKeyErrorf(format string, args ...interface{}) *Error {
	return New(KeyError, format, args...)
}

func NewAttributeErrorf(format string, args ...interface{}) *Error {
	return New(AttributeError, format, args...)
}

func NewNameErrorf(format string, args ...interface{}) *Error {
	return New(NameError, format, args...)
}

func NewZeroDivisionErrorf(format string, args ...interface{}) *Error {
	return New(ZeroDivisionError, format, args...)
}

func NewOverflowErrorf(format string, args ...interface{}) *Error {
	return New(OverflowError, format, args...)
}

func NewIOErrorf(format string, args ...interface{}) *Error {
	return New(IOError, format, args...)
}

func NewRecursionErrorf(format string, args ...interface{}) *Error {
	return New(RecursionError, format, args...)
}

func NewNotImplementedErrorf(format string, args ...interface{}) *Error {
	return New(NotImplementedError, format, args...)
}

// Wrap adapts a host-native error (surfaced from a bound native function
// calling back into the host, e.g. file or socket I/O) into an Error of
// kind IOError, preserving the original for Unwrap.
func Wrap(err error, context string) *Error {
	wrapped := pkgerrors.Wrap(err, context)
	return &Error{Type: IOError, Message: wrapped.Error(), cause: err}
}

// AddStackFrame appends one traceback entry; the FrameLoop calls this once
// per frame popped while an exception unwinds unhandled.
func (e *Error) AddStackFrame(function, file string, line, column int) *Error {
	e.CallStack = append(e.CallStack, StackFrame{
		Function: function,
		File:     file,
		Line:     line,
		Column:   column,
	})
	return e
}
