package vm

// SuperPayload is the payload of a KindSuper object: super(T, obj)
// redirects attribute lookup to start one step past T in obj's MRO, while
// still binding any found function to obj.
type SuperPayload struct {
	StartType int // search MRO(TypeOf(Instance)) starting just past this type
	Instance  Value
}

func (rt *Runtime) NewSuper(startType int, instance Value) Value {
	return NewHeap(&Object{
		Type:    rt.TypeSuper,
		Kind:    KindSuper,
		Payload: &SuperPayload{StartType: startType, Instance: instance},
	})
}

// GetAttr implements the AttrResolver's getattr: data descriptors
// found in the MRO win over the instance dict; otherwise the instance dict
// wins over a non-data descriptor or plain class attribute; plain
// functions found at class level are returned bound to the instance.
func (rt *Runtime) GetAttr(v Value, name string) (Value, error) {
	searchType, instance, bindSelf := rt.resolveAttrSearch(v)

	classAttr, foundClass, ownerType := rt.walkMRO(searchType, name)

	if foundClass && rt.isDataDescriptor(classAttr) {
		return rt.invokeDescriptorGet(classAttr, instance, ownerType)
	}

	if instance.IsHeap() && instance.Object().CanHaveAttrs() {
		if val, ok := instance.Object().Attrs.TryGet(name); ok {
			return val, nil
		}
	}

	if foundClass {
		if rt.isNonDataDescriptor(classAttr) {
			return rt.invokeDescriptorGet(classAttr, instance, ownerType)
		}
		if bindSelf && rt.isPlainCallable(classAttr) {
			return rt.bindMethod(classAttr, instance), nil
		}
		return classAttr, nil
	}

	return Value{}, attributeErrorf("%q object has no attribute %q", rt.typeName(rt.TypeOf(instance)), name)
}

// SetAttr implements the AttrResolver's setattr: a data descriptor
// in the MRO always wins; otherwise the value lands in the instance dict,
// or TypeError if the target cannot carry instance attributes at all.
func (rt *Runtime) SetAttr(v Value, name string, value Value) error {
	searchType, instance, _ := rt.resolveAttrSearch(v)

	classAttr, foundClass, ownerType := rt.walkMRO(searchType, name)
	if foundClass && rt.isDataDescriptor(classAttr) {
		return rt.invokeDescriptorSet(classAttr, instance, ownerType, value)
	}

	if !instance.IsHeap() || !instance.Object().CanHaveAttrs() {
		return typeErrorf("%q object has no attributes to set", rt.typeName(rt.TypeOf(instance)))
	}
	instance.Object().Attrs.Set(name, value)
	return nil
}

// resolveAttrSearch unwraps a KindSuper redirection
// lookups start one MRO step past T"); for every other value it searches
// starting at the value's own type.
func (rt *Runtime) resolveAttrSearch(v Value) (searchType int, instance Value, bindSelf bool) {
	if v.IsHeap() && v.Object().Kind == KindSuper {
		sp := v.Object().Payload.(*SuperPayload)
		mro := rt.Types.MRO(rt.TypeOf(sp.Instance))
		for i, t := range mro {
			if t == sp.StartType && i+1 < len(mro) {
				return mro[i+1], sp.Instance, true
			}
		}
		return TypeObject, sp.Instance, true
	}
	return rt.TypeOf(v), v, true
}

// walkMRO finds name in the class dict of the first type in searchType's
// MRO that defines it.
func (rt *Runtime) walkMRO(searchType int, name string) (Value, bool, int) {
	for _, t := range rt.Types.MRO(searchType) {
		e := rt.Types.Entry(t)
		if e == nil || e.Self.Attrs == nil {
			continue
		}
		if val, ok := e.Self.Attrs.TryGet(name); ok {
			return val, true, t
		}
	}
	return Value{}, false, -1
}

func (rt *Runtime) isPlainCallable(v Value) bool {
	if !v.IsHeap() {
		return false
	}
	switch v.Object().Kind {
	case KindFunction:
		return true
	case KindNativeFunc:
		return v.Object().Payload.(*NativeFunctionPayload).IsMethod
	}
	return false
}

func (rt *Runtime) bindMethod(fn, self Value) Value {
	bound := &Object{
		Type:    rt.TypeBoundMethod,
		Kind:    KindBoundMethod,
		Payload: &BoundMethodPayload{Self: self, Func: fn},
	}
	return NewHeap(bound)
}

// isDataDescriptor/isNonDataDescriptor consult whether v's own type defines
// __get__/__set__ (the user-level descriptor protocol), independent of
// the built-in plain-function binding handled by isPlainCallable.
func (rt *Runtime) isDataDescriptor(v Value) bool {
	if !v.IsHeap() {
		return false
	}
	_, hasGet := rt.lookupClassMethod(v.Object().Type, "__get__")
	_, hasSet := rt.lookupClassMethod(v.Object().Type, "__set__")
	return hasGet && hasSet
}

func (rt *Runtime) isNonDataDescriptor(v Value) bool {
	if !v.IsHeap() {
		return false
	}
	_, hasGet := rt.lookupClassMethod(v.Object().Type, "__get__")
	_, hasSet := rt.lookupClassMethod(v.Object().Type, "__set__")
	return hasGet && !hasSet
}

func (rt *Runtime) invokeDescriptorGet(descriptor, instance Value, ownerType int) (Value, error) {
	getFn, _ := rt.lookupClassMethod(descriptor.Object().Type, "__get__")
	ownerVal := NewHeap(rt.Types.TypeObjectOf(ownerType))
	return rt.CallValue(getFn, []Value{descriptor, instance, ownerVal}, nil, false)
}

func (rt *Runtime) invokeDescriptorSet(descriptor, instance Value, ownerType int, value Value) error {
	setFn, _ := rt.lookupClassMethod(descriptor.Object().Type, "__set__")
	_, err := rt.CallValue(setFn, []Value{descriptor, instance, value}, nil, false)
	return err
}
