package vm

import (
	"sync"
	"testing"
)

// TestEnsureTypeCollapsesConcurrentFirstUse registers the same extension
// type name from many goroutines at once (several native modules racing
// to register a shared type the first time any of them needs it, during
// VM construction) and checks every caller observes the same index and
// the builder only ran once.
func TestEnsureTypeCollapsesConcurrentFirstUse(t *testing.T) {
	rt := NewVM()

	var builds int
	var mu sync.Mutex

	const n = 32
	indices := make([]int, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			indices[i] = rt.EnsureType("Point", TypeObject, func(rt *Runtime, idx int) {
				mu.Lock()
				builds++
				mu.Unlock()
				rt.Types.TypeObjectOf(idx).Attrs.Set("origin", MustInt(0))
			})
		}()
	}
	wg.Wait()

	if builds != 1 {
		t.Fatalf("expected exactly one builder invocation for a shared first-use registration, got %d", builds)
	}
	for i, idx := range indices {
		if idx != indices[0] {
			t.Fatalf("caller %d got type index %d, want %d (all callers must see the same type)", i, idx, indices[0])
		}
	}

	entry := rt.Types.Entry(indices[0])
	if entry == nil || entry.Name != "Point" {
		t.Fatalf("expected a registered type named Point, got %+v", entry)
	}
	if _, ok := rt.Types.TypeObjectOf(indices[0]).Attrs.Get("origin"); !ok {
		t.Fatal("expected the build callback's class-level attribute to have been installed")
	}

	// A second, sequential EnsureType call for the same name must not
	// register a duplicate type or re-run the builder.
	again := rt.EnsureType("Point", TypeObject, func(rt *Runtime, idx int) {
		builds++
	})
	if again != indices[0] || builds != 1 {
		t.Fatalf("expected EnsureType to be idempotent after the first registration, got idx=%d builds=%d", again, builds)
	}
}
