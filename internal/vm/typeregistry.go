package vm

// EnsureType registers a type exactly once under name in this Runtime, even
// if multiple goroutines race to register the same extension type while
// binding native modules into it concurrently.
// build is invoked with the Runtime and the type's reserved index to let
// it install class-level methods after NewType but before concurrent
// callers could observe a half-built entry.
//
// typeRegGroup and namedTypeIndex are allocated once, in NewVM's struct
// literal, before any goroutine can reach this method — EnsureType itself
// never lazily initializes them, so there is no check-then-set race on
// first use.
func (rt *Runtime) EnsureType(name string, base int, build func(rt *Runtime, idx int)) int {
	v, _, _ := rt.typeRegGroup.Do(name, func() (interface{}, error) {
		if idx, ok := rt.namedTypeIndex[name]; ok {
			return idx, nil
		}
		idx := rt.Types.NewType(name, base)
		if build != nil {
			build(rt, idx)
		}
		rt.namedTypeIndex[name] = idx
		return idx, nil
	})
	return v.(int)
}
