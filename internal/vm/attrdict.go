package vm

import "golang.org/x/exp/maps"

// AttrDict is an insertion-ordered name -> Value mapping. Every heap
// object's instance dict, every module's globals, and every function's
// locals are one of these. After a type finishes installing its
// class-level names, TryPerfectRehash can be called once to give the
// known key set single-probe lookup without changing behavior for keys
// outside that set. NewAttrDictSized does the same up front, from a
// precomputed capacity/seed pair (CodeObject.PerfectLocalsCapacity/
// PerfectHashSeed), so a function's locals dict gets single-probe slot
// lookups from its very first Set instead of only after a later rehash.
type AttrDict struct {
	keys   []string       // insertion order
	index  map[string]int // name -> slot in values
	values []Value

	perfect  bool
	capacity int
	seed     uint64
	slots    []int // capacity-sized; slots[perfectSlot(name)] -> index into keys/values, or -1
}

func NewAttrDict() *AttrDict {
	return &AttrDict{index: make(map[string]int)}
}

// NewAttrDictSized builds an AttrDict that is perfect-hash-ready from the
// start, using a capacity/seed pair the optimizer already proved
// collision-free for the key set it was computed from (e.g. the local names
// a function's code reads or writes via LOAD_LOCAL/STORE_LOCAL). A non-positive capacity means no
// precompute was available, so this is equivalent to NewAttrDict.
func NewAttrDictSized(capacity int, seed uint64) *AttrDict {
	if capacity <= 0 {
		return NewAttrDict()
	}
	slots := make([]int, capacity)
	for i := range slots {
		slots[i] = -1
	}
	return &AttrDict{
		index:    make(map[string]int, capacity),
		perfect:  true,
		capacity: capacity,
		seed:     seed,
		slots:    slots,
	}
}

// Get returns the value for name, or the zero Value and false if absent.
// When the dict has a perfect-hash table, the slot it names is checked
// first; a slot miss (key not present, or present but not part of the
// precomputed set) falls back to the ordinary map lookup, so correctness
// never depends on the precompute having covered every key.
func (d *AttrDict) Get(name string) (Value, bool) {
	if d.perfect {
		slot := perfectSlot(name, d.seed, d.capacity)
		if i := d.slots[slot]; i >= 0 && d.keys[i] == name {
			return d.values[i], true
		}
	}
	i, ok := d.index[name]
	if !ok {
		return Value{}, false
	}
	return d.values[i], true
}

// TryGet is an alias for Get.
func (d *AttrDict) TryGet(name string) (Value, bool) { return d.Get(name) }

func (d *AttrDict) Contains(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Set inserts or overwrites name -> v, preserving original insertion
// position on overwrite.
func (d *AttrDict) Set(name string, v Value) {
	if i, ok := d.index[name]; ok {
		d.values[i] = v
		return
	}
	idx := len(d.values)
	d.index[name] = idx
	d.keys = append(d.keys, name)
	d.values = append(d.values, v)
	if d.perfect {
		d.slots[perfectSlot(name, d.seed, d.capacity)] = idx
	}
}

// Update copies every entry of other into d, in other's insertion order.
func (d *AttrDict) Update(other *AttrDict) {
	for _, k := range other.keys {
		v, _ := other.Get(k)
		d.Set(k, v)
	}
}

// Items returns (name, value) pairs in insertion order.
func (d *AttrDict) Items() []struct {
	Name  string
	Value Value
} {
	out := make([]struct {
		Name  string
		Value Value
	}, len(d.keys))
	for i, k := range d.keys {
		v, _ := d.Get(k)
		out[i] = struct {
			Name  string
			Value Value
		}{k, v}
	}
	return out
}

// Len reports the number of entries.
func (d *AttrDict) Len() int { return len(d.keys) }

// perfectLoadFactor bounds the capacity TryPerfectRehash searches within.
const perfectLoadFactor = 0.67

// TryPerfectRehash chooses a capacity and seed such that every key
// currently present hashes (via FNV-1a mixed with the seed, masked to
// capacity) to a distinct slot, then builds the slot table Get/Set consult
// from then on. It is safe to call on a dict that already has entries:
// keys added afterward, or lookups of never-present keys, fall back to the
// ordinary map and remain correct either way.
func (d *AttrDict) TryPerfectRehash() bool {
	n := len(d.keys)
	if n == 0 {
		d.installPerfect(1, 0)
		return true
	}
	capacity := 1
	for float64(n)/float64(capacity) > perfectLoadFactor {
		capacity <<= 1
	}
	const maxSeedAttempts = 1 << 16
	for seed := uint64(0); seed < maxSeedAttempts; seed++ {
		seen := make(map[uint64]bool, n)
		ok := true
		for _, k := range d.keys {
			slot := perfectSlot(k, seed, capacity)
			if seen[slot] {
				ok = false
				break
			}
			seen[slot] = true
		}
		if ok {
			d.installPerfect(capacity, seed)
			return true
		}
		// Growing capacity occasionally unblocks a stubborn key set that
		// the first guess can't find a collision-free seed for.
		if seed == maxSeedAttempts/2 {
			capacity <<= 1
		}
	}
	return false
}

// installPerfect records capacity/seed and fills the slot table from the
// current key set.
func (d *AttrDict) installPerfect(capacity int, seed uint64) {
	d.perfect = true
	d.capacity = capacity
	d.seed = seed
	d.slots = make([]int, capacity)
	for i := range d.slots {
		d.slots[i] = -1
	}
	for i, k := range d.keys {
		d.slots[perfectSlot(k, seed, capacity)] = i
	}
}

func perfectSlot(key string, seed uint64, capacity int) uint64 {
	h := fnv1a(key, seed)
	return h & uint64(capacity-1)
}

func fnv1a(s string, seed uint64) uint64 {
	h := uint64(1469598103934665603) ^ seed
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// IsPerfect reports whether the dict has a perfect-hash slot table, either
// from a successful TryPerfectRehash or from NewAttrDictSized with a
// positive capacity.
func (d *AttrDict) IsPerfect() bool { return d.perfect }

// Capacity/Seed expose the chosen parameters for diagnostics/tests.
func (d *AttrDict) Capacity() int   { return d.capacity }
func (d *AttrDict) Seed() uint64    { return d.seed }

// Keys returns a copy of the insertion-ordered key list.
func (d *AttrDict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// consistent checks the insertion-ordered key list and the name->slot
// index agree on membership; used by tests that probe AttrDict internals
// after a sequence of Set/TryPerfectRehash calls.
func (d *AttrDict) consistent() bool {
	if len(maps.Keys(d.index)) != len(d.keys) {
		return false
	}
	for i, k := range d.keys {
		if j, ok := d.index[k]; !ok || j != i {
			return false
		}
	}
	return true
}
