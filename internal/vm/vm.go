// Package vm implements the interpreter core: the tagged Value
// representation, the heap Object/TypeTable layout, AttrDict, Frame,
// TypeOps coercions, the AttrResolver (getattr/setattr), the
// CallDispatcher, the outer FrameLoop, and Generators. It is one package,
// several files split by concern, rather than many small packages.
package vm

import (
	"fmt"
	"io"
	"os"

	cerr "corevm/internal/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Runtime is a single embeddable VM instance. Every piece of state that is
// process-wide relative to a VM instance lives here as a field, never as
// a package global, so that multiple Runtimes stay fully isolated.
type Runtime struct {
	id uuid.UUID

	Types *TypeTable

	// Well-known type indices, registered during bootstrap.
	TypeInt, TypeFloat, TypeBool, TypeNoneType, TypeEllipsisType       int
	TypeStr, TypeTuple, TypeList, TypeMap                              int
	TypeFunction, TypeNativeFunction, TypeBoundMethod, TypeModule      int
	TypeSuper, TypeGenerator                                          int
	TypeException                                                     int
	exceptionTypes                                                    map[cerr.ErrorType]int

	None     Value
	True     Value
	False    Value
	Ellipsis Value

	callStack    []*Frame
	nextFrameVal int64

	recursionLimit int
	maxStack       int

	modules map[string]*Object

	typeRegGroup   *singleflight.Group
	namedTypeIndex map[string]int

	stdout io.Writer
	stderr io.Writer
}

// Option configures a Runtime at construction time.
type Option func(*Runtime)

func WithStdout(w io.Writer) Option { return func(r *Runtime) { r.stdout = w } }
func WithStderr(w io.Writer) Option { return func(r *Runtime) { r.stderr = w } }
func WithRecursionLimit(n int) Option {
	return func(r *Runtime) { r.recursionLimit = n }
}
func WithMaxStack(n int) Option { return func(r *Runtime) { r.maxStack = n } }

// NewVM constructs a Runtime, bootstraps object/type, registers the
// singletons and built-in scalar/container/exception types, and wires the
// default stdio sinks (a host that wants to opt out of system stdio
// should pass WithStdout/WithStderr pointing at in-memory buffers instead).
func NewVM(opts ...Option) *Runtime {
	rt := &Runtime{
		id:             uuid.New(),
		Types:          NewTypeTable(),
		modules:        make(map[string]*Object),
		recursionLimit: 1000,
		maxStack:       65536,
		typeRegGroup:   &singleflight.Group{},
		namedTypeIndex: make(map[string]int),
		stdout:         os.Stdout,
		stderr:         os.Stderr,
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.bootstrapTypes()
	return rt
}

func (rt *Runtime) bootstrapTypes() {
	rt.TypeInt = rt.Types.NewType("int", TypeObject)
	rt.TypeFloat = rt.Types.NewType("float", TypeObject)
	rt.TypeBool = rt.Types.NewType("bool", rt.TypeInt)
	rt.TypeNoneType = rt.Types.NewType("NoneType", TypeObject)
	rt.TypeEllipsisType = rt.Types.NewType("ellipsis", TypeObject)
	rt.TypeStr = rt.Types.NewType("str", TypeObject)
	rt.TypeTuple = rt.Types.NewType("tuple", TypeObject)
	rt.TypeList = rt.Types.NewType("list", TypeObject)
	rt.TypeMap = rt.Types.NewType("dict", TypeObject)
	rt.TypeFunction = rt.Types.NewType("function", TypeObject)
	rt.TypeNativeFunction = rt.Types.NewType("native_function", TypeObject)
	rt.TypeBoundMethod = rt.Types.NewType("bound_method", TypeObject)
	rt.TypeModule = rt.Types.NewType("module", TypeObject)
	rt.TypeSuper = rt.Types.NewType("super", TypeObject)
	rt.TypeGenerator = rt.Types.NewType("generator", TypeObject)

	rt.TypeException = rt.Types.NewType(string(cerr.Exception), TypeObject)
	rt.exceptionTypes = map[cerr.ErrorType]int{cerr.Exception: rt.TypeException}
	for _, kind := range []cerr.ErrorType{
		cerr.TypeError, cerr.ValueError, cerr.IndexError, cerr.KeyError,
		cerr.AttributeError, cerr.NameError, cerr.ZeroDivisionError,
		cerr.OverflowError, cerr.IOError, cerr.RecursionError,
		cerr.NotImplementedError,
	} {
		rt.exceptionTypes[kind] = rt.Types.NewType(string(kind), rt.TypeException)
	}

	rt.None = NewHeap(&Object{Type: rt.TypeNoneType, Kind: KindNone})
	rt.True = NewHeap(&Object{Type: rt.TypeBool, Kind: KindBool, Payload: true})
	rt.False = NewHeap(&Object{Type: rt.TypeBool, Kind: KindBool, Payload: false})
	rt.Ellipsis = NewHeap(&Object{Type: rt.TypeEllipsisType, Kind: KindEllipsis})
}

// TypeOf returns the type index of v: TagInt/TagFloat resolve to the
// built-in int/float types, heap values read it off their Object.
func (rt *Runtime) TypeOf(v Value) int {
	switch v.Tag() {
	case TagInt:
		return rt.TypeInt
	case TagFloat:
		return rt.TypeFloat
	default:
		return v.Object().Type
	}
}

// IsInstance implements isinstance(obj, T).
func (rt *Runtime) IsInstance(v Value, target int) bool {
	return rt.Types.IsInstance(rt.TypeOf(v), target)
}

func (rt *Runtime) nextFrameID() int64 {
	rt.nextFrameVal++
	return rt.nextFrameVal
}

func (rt *Runtime) pushFrame(f *Frame) error {
	if len(rt.callStack) >= rt.recursionLimit {
		return recursionErrorf("maximum recursion depth exceeded")
	}
	rt.callStack = append(rt.callStack, f)
	return nil
}

func (rt *Runtime) popFrame() *Frame {
	n := len(rt.callStack)
	f := rt.callStack[n-1]
	rt.callStack = rt.callStack[:n-1]
	return f
}

func (rt *Runtime) topFrame() *Frame {
	if len(rt.callStack) == 0 {
		return nil
	}
	return rt.callStack[len(rt.callStack)-1]
}

// NewModule registers a new module value in the module registry.
func (rt *Runtime) NewModule(name string) Value {
	mod := &Object{
		Type:  rt.TypeModule,
		Kind:  KindModule,
		Attrs: NewAttrDict(),
		Payload: &ModulePayload{
			Name:    name,
			Globals: NewAttrDict(),
		},
	}
	rt.modules[name] = mod
	return NewHeap(mod)
}

// ModulePayload is the payload of a KindModule object: its name and its own
// globals dict (what code running "in" the module reads/writes names
// against). Externally-visible attributes live in the module Object's
// Attrs; BindFunc/BindMethod write a bound name to both dicts.
type ModulePayload struct {
	Name    string
	Globals *AttrDict
}

// BindFunc registers a native plain function under name on target (a type
// or module Object), arity-checked against argc.
func (rt *Runtime) BindFunc(target *Object, name string, argc int, fn NativeFn) {
	nf := &Object{
		Type: rt.TypeNativeFunction,
		Kind: KindNativeFunc,
		Payload: &NativeFunctionPayload{
			Name: name, Argc: argc, IsMethod: false, Fn: fn,
		},
	}
	rt.setMemberAttr(target, name, NewHeap(nf))
}

// BindMethod registers a native method (first arg is self) under name on
// target (always a type), arity-checked against argc excluding self.
func (rt *Runtime) BindMethod(target *Object, name string, argc int, fn NativeFn) {
	nf := &Object{
		Type: rt.TypeNativeFunction,
		Kind: KindNativeFunc,
		Payload: &NativeFunctionPayload{
			Name: name, Argc: argc, IsMethod: true, Fn: fn,
		},
	}
	rt.setMemberAttr(target, name, NewHeap(nf))
}

func (rt *Runtime) setMemberAttr(target *Object, name string, v Value) {
	if target.Kind == KindModule {
		mp := target.Payload.(*ModulePayload)
		mp.Globals.Set(name, v)
		target.Attrs.Set(name, v)
		return
	}
	target.Attrs.Set(name, v)
}

// NativeFn is a native function/method body bound via BindFunc/BindMethod.
type NativeFn func(rt *Runtime, args []Value) (Value, error)

// NativeFunctionPayload is the payload of a KindNativeFunc object.
type NativeFunctionPayload struct {
	Name     string
	Argc     int
	IsMethod bool
	Fn       NativeFn
}

// Stdout/Stderr expose the configured sinks to callers that need to write
// host-visible diagnostics (e.g. the Exec error summary below).
func (rt *Runtime) Stdout() io.Writer { return rt.stdout }
func (rt *Runtime) Stderr() io.Writer { return rt.stderr }

func (rt *Runtime) instanceID() string { return rt.id.String() }

func (rt *Runtime) writeUnhandled(err *cerr.Error) {
	fmt.Fprintf(rt.stderr, "corevm[%s]: unhandled exception\n%s", rt.instanceID(), err.Error())
}
