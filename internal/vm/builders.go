package vm

import cerr "corevm/internal/errors"

// NewString boxes a host string as a KindString heap value. Strings are
// immutable, so no Attrs dict is allocated.
func (rt *Runtime) NewString(s string) Value {
	return NewHeap(&Object{Type: rt.TypeStr, Kind: KindString, Payload: s})
}

// NewTuple boxes a fixed, immutable sequence of values.
func (rt *Runtime) NewTuple(items []Value) Value {
	cp := append([]Value{}, items...)
	return NewHeap(&Object{Type: rt.TypeTuple, Kind: KindTuple, Payload: cp})
}

// ListPayload backs a KindList object: a pointer to a slice so every Value
// sharing this Object sees in-place mutation, matching list's reference
// semantics.
type ListPayload struct {
	Items []Value
}

func (rt *Runtime) NewList(items []Value) Value {
	cp := append([]Value{}, items...)
	return NewHeap(&Object{Type: rt.TypeList, Kind: KindList, Payload: &ListPayload{Items: cp}})
}

type listIterator struct {
	payload *ListPayload
	i       int
}

func (it *listIterator) Next(rt *Runtime) (Value, bool, error) {
	if it.i >= len(it.payload.Items) {
		return Value{}, false, nil
	}
	v := it.payload.Items[it.i]
	it.i++
	return v, true, nil
}

type tupleIterator struct {
	items []Value
	i     int
}

func (it *tupleIterator) Next(rt *Runtime) (Value, bool, error) {
	if it.i >= len(it.items) {
		return Value{}, false, nil
	}
	v := it.items[it.i]
	it.i++
	return v, true, nil
}

// NewListIterator/NewTupleIterator wrap a container's elements as a
// NativeIterator heap value. The frame interpreter has no iteration opcode,
// so nothing in this package calls them.
func (rt *Runtime) NewListIterator(lp *ListPayload) Value {
	return NewHeap(&Object{Type: rt.TypeList, Kind: KindInstance, Payload: &listIterator{payload: lp}})
}

func (rt *Runtime) NewTupleIterator(items []Value) Value {
	return NewHeap(&Object{Type: rt.TypeTuple, Kind: KindInstance, Payload: &tupleIterator{items: items}})
}

// mapEntry is one slot of a MapPayload's backing store.
type mapEntry struct {
	key   Value
	value Value
	live  bool
}

// MapPayload backs a KindMap object: insertion-ordered entries plus a hash
// bucket index, mirroring AttrDict's shape but keyed on arbitrary hashable
// Values instead of bare strings (dict keys need not be strings).
type MapPayload struct {
	entries []mapEntry
	buckets map[int64][]int
}

func newMapPayload() *MapPayload {
	return &MapPayload{buckets: make(map[int64][]int)}
}

func (rt *Runtime) NewMap() Value {
	return NewHeap(&Object{Type: rt.TypeMap, Kind: KindMap, Payload: newMapPayload()})
}

func (mp *MapPayload) find(rt *Runtime, key Value) (int, int64, error) {
	h, err := rt.Hash(key)
	if err != nil {
		return -1, 0, err
	}
	for _, idx := range mp.buckets[h] {
		e := &mp.entries[idx]
		if !e.live {
			continue
		}
		eq, err := rt.valuesEqual(e.key, key)
		if err != nil {
			return -1, h, err
		}
		if eq {
			return idx, h, nil
		}
	}
	return -1, h, nil
}

func (mp *MapPayload) Get(rt *Runtime, key Value) (Value, bool, error) {
	idx, _, err := mp.find(rt, key)
	if err != nil || idx < 0 {
		return Value{}, false, err
	}
	return mp.entries[idx].value, true, nil
}

func (mp *MapPayload) Set(rt *Runtime, key, value Value) error {
	idx, h, err := mp.find(rt, key)
	if err != nil {
		return err
	}
	if idx >= 0 {
		mp.entries[idx].value = value
		return nil
	}
	mp.entries = append(mp.entries, mapEntry{key: key, value: value, live: true})
	newIdx := len(mp.entries) - 1
	mp.buckets[h] = append(mp.buckets[h], newIdx)
	return nil
}

func (mp *MapPayload) Delete(rt *Runtime, key Value) (bool, error) {
	idx, _, err := mp.find(rt, key)
	if err != nil || idx < 0 {
		return false, err
	}
	mp.entries[idx].live = false
	return true, nil
}

func (mp *MapPayload) Len() int {
	n := 0
	for _, e := range mp.entries {
		if e.live {
			n++
		}
	}
	return n
}

func (mp *MapPayload) Items() []struct{ Key, Value Value } {
	out := make([]struct{ Key, Value Value }, 0, len(mp.entries))
	for _, e := range mp.entries {
		if e.live {
			out = append(out, struct{ Key, Value Value }{e.key, e.value})
		}
	}
	return out
}

// valuesEqual implements the equality CallDispatcher/container code needs
// for key lookups: dispatch to __eq__ when the left operand's type defines
// one, else fall back to tag/payload comparison for the scalar and string
// kinds, else identity.
func (rt *Runtime) valuesEqual(a, b Value) (bool, error) {
	if eqFn, ok := rt.lookupMethod(a, "__eq__"); ok {
		result, err := rt.CallValue(eqFn, []Value{a, b}, nil, false)
		if err != nil {
			return false, err
		}
		return rt.AsBool(result)
	}
	if a.Tag() != b.Tag() {
		return false, nil
	}
	switch a.Tag() {
	case TagInt:
		return a.Int() == b.Int(), nil
	case TagFloat:
		return a.Float() == b.Float(), nil
	}
	ao, bo := a.Object(), b.Object()
	if ao.Kind == KindString && bo.Kind == KindString {
		return ao.Payload.(string) == bo.Payload.(string), nil
	}
	return Same(a, b), nil
}

// ExceptionPayload is the payload of a KindException object: the bridge
// between a boxed in-language exception value and the Go-side *cerr.Error
// the FrameLoop's raise()/host API operate on.
type ExceptionPayload struct {
	Err *cerr.Error
}

// newExceptionValue boxes a *cerr.Error raised natively (by a builtin
// operation, AttrResolver, TypeOps, ...) as a KindException heap value
// with the matching built-in exception type, so interpreted `except`
// clauses can isinstance-match it like any other exception.
func (rt *Runtime) newExceptionValue(err *cerr.Error) Value {
	typeIdx, ok := rt.exceptionTypes[err.Type]
	if !ok {
		typeIdx = rt.TypeException
	}
	obj := &Object{
		Type:    typeIdx,
		Kind:    KindException,
		Attrs:   NewAttrDict(),
		Payload: &ExceptionPayload{Err: err},
	}
	obj.Attrs.Set("args", rt.NewTuple([]Value{rt.NewString(err.Message)}))
	return NewHeap(obj)
}

// errorFromException unwraps a value being raised back into a *cerr.Error
// for the FrameLoop's unwind machinery. Raising a KindException value
// recovers its carried Error as-is (preserving type/message/cause); raising
// anything else (a plain string, say) is accepted leniently as a generic
// Exception, matching a dynamic language's willingness to raise arbitrary
// values.
func (rt *Runtime) errorFromException(v Value) *cerr.Error {
	if v.IsHeap() && v.Object().Kind == KindException {
		return v.Object().Payload.(*ExceptionPayload).Err
	}
	msg, err := rt.AsStr(v)
	if err != nil {
		msg = "<unprintable>"
	}
	return cerr.New(cerr.Exception, "%s", msg)
}

// NewExceptionOf constructs a fresh KindException value of the named
// built-in exception kind with a message, for use by native functions and
// the RAISE opcode's "construct from a type + args" path.
func (rt *Runtime) NewExceptionOf(kind cerr.ErrorType, format string, args ...interface{}) Value {
	return rt.newExceptionValue(cerr.New(kind, format, args...))
}
