package vm

// ObjectKind tags the known-to-the-type payload kind a heap Object
// carries. Concrete per-kind data lives in Object.Payload, whose dynamic
// type is selected by Kind.
type ObjectKind uint8

const (
	KindType ObjectKind = iota
	KindNone
	KindBool
	KindEllipsis
	KindString
	KindTuple
	KindList
	KindMap
	KindFunction
	KindNativeFunc
	KindBoundMethod
	KindModule
	KindSuper
	KindGenerator
	KindException
	KindInstance // generic user-defined-type instance
	KindSpread   // pre-dispatch marker: "expand this iterable into positional args"
)

// Object is the heap variant every non-tagged Value points to. Every
// object has a Type (an index into the owning VM's TypeTable) and,
// for attr-capable kinds, an AttrDict for instance attributes.
type Object struct {
	Type    int
	Kind    ObjectKind
	Attrs   *AttrDict // nil for kinds that cannot carry instance attributes
	Payload interface{}
}

// CanHaveAttrs reports whether setattr may write to this object's instance
// dict at all. Tagged Values (int/float) never reach here; heap objects
// without an AttrDict (e.g. plain tuples) are not attr-capable either.
func (o *Object) CanHaveAttrs() bool {
	return o != nil && o.Attrs != nil
}

// TypeEntry is one TypeTable row: a type's own Object plus its bookkeeping.
type TypeEntry struct {
	Self     *Object // this type's own Object; Self.Payload == its own index
	Base     int     // index of the base type, or -1 for object
	Name     string  // qualified name
	Bound    *Object // the module or owner this type is bound to, or nil if anonymous
}

// TypeTable is the per-VM registry of types: a field the VM owns, never a
// package-level variable, so that multiple VM instances stay isolated.
type TypeTable struct {
	entries []TypeEntry
}

// Well-known type indices, fixed by the two-step bootstrap in NewTypeTable.
const (
	TypeObject = 0
	TypeType   = 1
)

// NewTypeTable performs the self-referential bootstrap: `object` and
// `type` must exist before any other type, and `type(type) == type`
// requires constructing `type`'s Object before the table row that's
// supposed to hold its own index exists. The trick: allocate both rows
// first with a placeholder Self, then patch each row's
// Self.Type/Self.Payload in a second pass once both indices are known.
func NewTypeTable() *TypeTable {
	tt := &TypeTable{entries: make([]TypeEntry, 0, 16)}

	// Step 1: reserve the two bootstrap slots with blank objects.
	objType := &Object{Attrs: NewAttrDict()}
	typeType := &Object{Attrs: NewAttrDict()}
	tt.entries = append(tt.entries, TypeEntry{Self: objType, Base: -1, Name: "object"})
	tt.entries = append(tt.entries, TypeEntry{Self: typeType, Base: TypeObject, Name: "type"})

	// Step 2: patch both objects now that TypeObject/TypeType are known.
	objType.Type = TypeType
	objType.Kind = KindType
	objType.Payload = TypeObject

	typeType.Type = TypeType
	typeType.Kind = KindType
	typeType.Payload = TypeType

	return tt
}

// NewType appends a new type row, returning its index. base must already
// be a valid index (or -1 only for `object`, which NewTypeTable already
// created). The new type's own Object is created with Type=TypeType and
// Payload equal to its own index.
func (tt *TypeTable) NewType(name string, base int) int {
	idx := len(tt.entries)
	self := &Object{Type: TypeType, Kind: KindType, Payload: idx, Attrs: NewAttrDict()}
	tt.entries = append(tt.entries, TypeEntry{Self: self, Base: base, Name: name})
	return idx
}

func (tt *TypeTable) Entry(idx int) *TypeEntry {
	if idx < 0 || idx >= len(tt.entries) {
		return nil
	}
	return &tt.entries[idx]
}

func (tt *TypeTable) TypeObjectOf(idx int) *Object {
	e := tt.Entry(idx)
	if e == nil {
		return nil
	}
	return e.Self
}

// BindToModule records that a type is reachable as an attribute of a
// module (vs. anonymous, e.g. the singleton types NoneType/EllipsisType).
func (tt *TypeTable) BindToModule(idx int, mod *Object) {
	if e := tt.Entry(idx); e != nil {
		e.Bound = mod
	}
}

// MRO returns the method-resolution-order chain starting at idx and
// walking Base indices until the `object` sentinel is reached. Single
// inheritance means this is just a linear walk, not a C3 merge.
func (tt *TypeTable) MRO(idx int) []int {
	var chain []int
	for idx != -1 {
		chain = append(chain, idx)
		e := tt.Entry(idx)
		if e == nil {
			break
		}
		idx = e.Base
	}
	return chain
}

// IsInstance walks objType's MRO looking for target.
func (tt *TypeTable) IsInstance(objType, target int) bool {
	for _, t := range tt.MRO(objType) {
		if t == target {
			return true
		}
	}
	return false
}
