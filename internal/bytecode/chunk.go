package bytecode

// CodeObject is the immutable-after-optimization structure the compiler
// hands the core. The core only ever reads it, and once, runs the
// peephole optimizer over it.
type CodeObject struct {
	Name  string
	Codes []Instruction
	Consts []interface{}
	Names  []NameEntry
	Blocks []BlockDesc

	IsGenerator bool

	// Populated by internal/optimizer's one optimization pass.
	PerfectLocalsCapacity int
	PerfectHashSeed       uint64
	Optimized             bool
}

func NewCodeObject(name string) *CodeObject {
	return &CodeObject{
		Name:   name,
		Codes:  []Instruction{},
		Consts: []interface{}{},
		Names:  []NameEntry{},
		Blocks: []BlockDesc{},
	}
}

// Emit appends one instruction and returns its index.
func (c *CodeObject) Emit(op Op, arg int32, line int32, block int32) int {
	c.Codes = append(c.Codes, Instruction{Op: op, Arg: arg, Line: line, Block: block})
	return len(c.Codes) - 1
}

// AddConst interns a constant and returns its index. Unlike names, constants
// are not deduplicated here; the compiler is expected to do that if it
// cares (this core only needs indexable storage).
func (c *CodeObject) AddConst(v interface{}) int32 {
	c.Consts = append(c.Consts, v)
	return int32(len(c.Consts) - 1)
}

// AddName interns a name table entry and returns its index, reusing an
// existing entry with the same name and scope if present.
func (c *CodeObject) AddName(name string, scope ScopeClass) int32 {
	for i, n := range c.Names {
		if n.Name == name && n.Scope == scope {
			return int32(i)
		}
	}
	c.Names = append(c.Names, NameEntry{Name: name, Scope: scope})
	return int32(len(c.Names) - 1)
}

// AddBlock appends a block descriptor and returns its index.
func (c *CodeObject) AddBlock(b BlockDesc) int32 {
	c.Blocks = append(c.Blocks, b)
	return int32(len(c.Blocks) - 1)
}

func (c *CodeObject) At(ip int) (Instruction, bool) {
	if ip < 0 || ip >= len(c.Codes) {
		return Instruction{}, false
	}
	return c.Codes[ip], true
}

// FunctionTemplate is what the compiler stores in a CodeObject's constant
// pool for a nested function/lambda/generator definition; MAKE_FUNCTION
// reads one of these by const index and pairs it with the N default-value
// cells already sitting on the stack (N == NumDefaults).
type FunctionTemplate struct {
	Code        *CodeObject
	ParamNames  []string
	NumDefaults int
	StarParam   string
}
