package vm

import "testing"

func TestHashTupleCombinesElementHashes(t *testing.T) {
	rt := NewVM()
	a := rt.NewTuple([]Value{MustInt(1), MustInt(2)})
	b := rt.NewTuple([]Value{MustInt(1), MustInt(2)})
	c := rt.NewTuple([]Value{MustInt(2), MustInt(1)})

	ha, err := rt.Hash(a)
	if err != nil {
		t.Fatalf("Hash(a): %v", err)
	}
	hb, err := rt.Hash(b)
	if err != nil {
		t.Fatalf("Hash(b): %v", err)
	}
	hc, err := rt.Hash(c)
	if err != nil {
		t.Fatalf("Hash(c): %v", err)
	}
	if ha != hb {
		t.Fatalf("equal tuples must hash equal: %d != %d", ha, hb)
	}
	if ha == hc {
		t.Fatalf("differently-ordered tuples should not collide in this test (got equal hashes %d)", ha)
	}
}

func TestHashListIsUnhashable(t *testing.T) {
	rt := NewVM()
	l := rt.NewList([]Value{MustInt(1)})
	if _, err := rt.Hash(l); err == nil {
		t.Fatal("expected TypeError hashing a list")
	}
}

func TestAsBoolScalarAndContainerRules(t *testing.T) {
	rt := NewVM()

	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"zero int", MustInt(0), false},
		{"nonzero int", MustInt(5), true},
		{"zero float", NewFloat(0), false},
		{"None", rt.None, false},
		{"True", rt.True, true},
		{"False", rt.False, false},
		{"empty list", rt.NewList(nil), false},
		{"nonempty list", rt.NewList([]Value{MustInt(1)}), true},
	}
	for _, c := range cases {
		got, err := rt.AsBool(c.v)
		if err != nil {
			t.Fatalf("%s: AsBool error: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s: AsBool = %v, want %v", c.name, got, c.want)
		}
	}
}
