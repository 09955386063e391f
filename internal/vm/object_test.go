package vm

import "testing"

func TestBootstrapTypeIdentity(t *testing.T) {
	rt := NewVM()
	// type(type) == type, type(object) == type.
	if rt.TypeOf(NewHeap(rt.Types.TypeObjectOf(TypeType))) != TypeType {
		t.Fatal("type(type) must be type")
	}
	if rt.TypeOf(NewHeap(rt.Types.TypeObjectOf(TypeObject))) != TypeType {
		t.Fatal("type(object) must be type")
	}
}

func TestIsInstanceWalksMRO(t *testing.T) {
	rt := NewVM()
	base := rt.Types.NewType("Animal", TypeObject)
	derived := rt.Types.NewType("Dog", base)

	inst := NewHeap(&Object{Type: derived, Kind: KindInstance, Attrs: NewAttrDict()})

	if !rt.IsInstance(inst, derived) {
		t.Fatal("instance must be instance of its own type")
	}
	if !rt.IsInstance(inst, base) {
		t.Fatal("instance must be instance of its base type")
	}
	if !rt.IsInstance(inst, TypeObject) {
		t.Fatal("every instance must be instance of object")
	}
	other := rt.Types.NewType("Cat", TypeObject)
	if rt.IsInstance(inst, other) {
		t.Fatal("instance must not be instance of an unrelated type")
	}
}
