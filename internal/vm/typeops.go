package vm

import (
	"fmt"
	"math"
	"unsafe"
)

// identityHash hashes a heap object by its address, for kinds (None,
// Ellipsis) that are singletons compared and hashed by identity alone.
func identityHash(obj *Object) int64 {
	return int64(uintptr(unsafe.Pointer(obj)))
}

// NumNegated implements num_negated: defined on int and float only.
func (rt *Runtime) NumNegated(v Value) (Value, error) {
	switch v.Tag() {
	case TagInt:
		neg, err := NewInt(-v.Int())
		if err != nil {
			return Value{}, err
		}
		return neg, nil
	case TagFloat:
		return NewFloat(-v.Float()), nil
	default:
		return Value{}, typeErrorf("bad operand type for unary -: %q", rt.typeName(rt.TypeOf(v)))
	}
}

// NumToFloat implements num_to_float.
func (rt *Runtime) NumToFloat(v Value) (float64, error) {
	switch v.Tag() {
	case TagFloat:
		return v.Float(), nil
	case TagInt:
		return float64(v.Int()), nil
	default:
		return 0, typeErrorf("cannot convert %q to float", rt.typeName(rt.TypeOf(v)))
	}
}

// AsBool implements asBool: identity on bool; None -> False;
// int/float compared to zero; else try __len__ and test >0; else True.
func (rt *Runtime) AsBool(v Value) (bool, error) {
	if v.IsHeap() {
		switch v.Object().Kind {
		case KindBool:
			return Same(v, rt.True), nil
		case KindNone:
			return false, nil
		case KindList:
			return len(v.Object().Payload.(*ListPayload).Items) > 0, nil
		case KindTuple:
			return len(v.Object().Payload.([]Value)) > 0, nil
		case KindMap:
			return v.Object().Payload.(*MapPayload).Len() > 0, nil
		case KindString:
			return len(v.Object().Payload.(string)) > 0, nil
		}
	}
	switch v.Tag() {
	case TagInt:
		return v.Int() != 0, nil
	case TagFloat:
		return v.Float() != 0, nil
	}

	if lenFn, ok := rt.lookupMethod(v, "__len__"); ok {
		result, err := rt.CallValue(lenFn, []Value{v}, nil, false)
		if err != nil {
			return false, err
		}
		if !result.IsInt() {
			return false, typeErrorf("__len__ must return an int")
		}
		return result.Int() > 0, nil
	}
	return true, nil
}

// tupleHashSeed/tupleHashMix implement the documented combine function for
// tuple hashing: x = x XOR (y + 0x9e3779b9 + (x<<6) + (x>>2)),
// seed 1000003.
const tupleHashSeed = int64(1000003)

func tupleHashMix(x, y int64) int64 {
	return x ^ (y + 0x9e3779b9 + (x << 6) + (x >> 2))
}

// Hash implements hash(): strings by their FNV-1a hash (recomputed on each
// call, not cached), ints by
// identity, tuples by the documented mix, types by identity bits, bools as
// 1/0, floats via the host double-hash, other heap kinds raise TypeError
// unhashable (lists and maps are mutable, so they are never hashable).
func (rt *Runtime) Hash(v Value) (int64, error) {
	switch v.Tag() {
	case TagInt:
		return v.Int(), nil
	case TagFloat:
		return hashFloat(v.Float()), nil
	}

	obj := v.Object()
	switch obj.Kind {
	case KindBool:
		if obj.Payload.(bool) {
			return 1, nil
		}
		return 0, nil
	case KindNone, KindEllipsis:
		return identityHash(obj), nil
	case KindString:
		return hashString(obj.Payload.(string)), nil
	case KindType:
		return int64(obj.Payload.(int)), nil
	case KindTuple:
		items := obj.Payload.([]Value)
		x := tupleHashSeed
		for _, item := range items {
			y, err := rt.Hash(item)
			if err != nil {
				return 0, err
			}
			x = tupleHashMix(x, y)
		}
		return x, nil
	default:
		return 0, typeErrorf("unhashable type: %q", rt.typeName(obj.Type))
	}
}

// hashString computes the FNV-1a hash of s. Strings are stored as plain Go
// string payloads, so the hash is recomputed on every call; it is not
// cached anywhere.
func hashString(s string) int64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return int64(h)
}

func hashFloat(f float64) int64 {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	bits := math.Float64bits(f)
	return int64(bits ^ (bits >> 32))
}

// AsRepr implements asRepr: dispatch to __repr__.
func (rt *Runtime) AsRepr(v Value) (string, error) {
	if reprFn, ok := rt.lookupMethod(v, "__repr__"); ok {
		result, err := rt.CallValue(reprFn, []Value{v}, nil, false)
		if err != nil {
			return "", err
		}
		return rt.rawString(result)
	}
	return rt.defaultRepr(v), nil
}

// AsStr implements asStr: dispatch to __str__ if defined, else
// asRepr.
func (rt *Runtime) AsStr(v Value) (string, error) {
	if strFn, ok := rt.lookupMethod(v, "__str__"); ok {
		result, err := rt.CallValue(strFn, []Value{v}, nil, false)
		if err != nil {
			return "", err
		}
		return rt.rawString(result)
	}
	return rt.AsRepr(v)
}

func (rt *Runtime) rawString(v Value) (string, error) {
	if v.IsHeap() && v.Object().Kind == KindString {
		return v.Object().Payload.(string), nil
	}
	return "", typeErrorf("__str__/__repr__ returned non-string")
}

func (rt *Runtime) defaultRepr(v Value) string {
	switch v.Tag() {
	case TagInt:
		return fmt.Sprintf("%d", v.Int())
	case TagFloat:
		return fmt.Sprintf("%g", v.Float())
	}
	obj := v.Object()
	switch obj.Kind {
	case KindNone:
		return "None"
	case KindEllipsis:
		return "Ellipsis"
	case KindBool:
		if obj.Payload.(bool) {
			return "True"
		}
		return "False"
	case KindString:
		return fmt.Sprintf("%q", obj.Payload.(string))
	case KindType:
		return fmt.Sprintf("<class '%s'>", rt.typeName(obj.Payload.(int)))
	case KindTuple:
		items := obj.Payload.([]Value)
		s := "("
		for i, it := range items {
			if i > 0 {
				s += ", "
			}
			s += rt.defaultRepr(it)
		}
		if len(items) == 1 {
			s += ","
		}
		return s + ")"
	default:
		return fmt.Sprintf("<%s object>", rt.typeName(obj.Type))
	}
}

// NativeIterator is satisfied by any already-native iterator Payload; used
// by AsIter's fast path.
type NativeIterator interface {
	Next(rt *Runtime) (Value, bool, error)
}

// AsIter implements asIter: if already a native iterator, return it
// as-is; else call __iter__; else TypeError.
func (rt *Runtime) AsIter(v Value) (NativeIterator, error) {
	if v.IsHeap() {
		if it, ok := v.Object().Payload.(NativeIterator); ok {
			return it, nil
		}
	}
	if iterFn, ok := rt.lookupMethod(v, "__iter__"); ok {
		result, err := rt.CallValue(iterFn, []Value{v}, nil, false)
		if err != nil {
			return nil, err
		}
		if result.IsHeap() {
			if it, ok := result.Object().Payload.(NativeIterator); ok {
				return it, nil
			}
		}
		return nil, typeErrorf("__iter__ returned non-iterator")
	}
	return nil, typeErrorf("%q object is not iterable", rt.typeName(rt.TypeOf(v)))
}

func (rt *Runtime) typeName(idx int) string {
	if e := rt.Types.Entry(idx); e != nil {
		return e.Name
	}
	return "?"
}

// lookupMethod resolves a dunder method through the MRO without going
// through full getattr/descriptor machinery (dunder lookup is always
// class-level in the object model this core implements, never shadowed by
// instance dict entries, matching the classic special-method-lookup rule).
func (rt *Runtime) lookupMethod(v Value, name string) (Value, bool) {
	objType := rt.TypeOf(v)
	for _, t := range rt.Types.MRO(objType) {
		e := rt.Types.Entry(t)
		if e == nil || e.Self.Attrs == nil {
			continue
		}
		if fn, ok := e.Self.Attrs.Get(name); ok {
			bound := &Object{
				Type:    rt.TypeBoundMethod,
				Kind:    KindBoundMethod,
				Payload: &BoundMethodPayload{Self: v, Func: fn},
			}
			return NewHeap(bound), true
		}
	}
	return Value{}, false
}
