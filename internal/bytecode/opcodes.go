package bytecode

// Op is the instruction opcode. The core only needs to know the semantics
// of the opcodes the peephole optimizer rewrites (internal/optimizer) and
// the ones the frame loop's control-flow contract touches (call, return,
// yield, raise, block setup/teardown, jumps); everything else about a
// concrete language's opcode set is the compiler's concern and stays
// opaque to this package.
type Op uint8

const (
	NoOp Op = iota

	LoadConst
	LoadLocal
	StoreLocal
	LoadGlobal
	StoreGlobal
	LoadAttr
	StoreAttr

	// The peephole optimizer fuses LoadName; LoadName; BuildIndex 1 into
	// FastIndex; LoadNameRef is the ref form it leaves alone. See
	// internal/optimizer.
	LoadName
	LoadNameRef
	BuildIndex
	FastIndex

	BuildTuple
	BuildList

	UnaryNegative

	Pop
	Dup

	Jump
	JumpIfFalse

	SetupTry
	PopBlock
	Raise

	CallFunction
	MakeFunction
	ReturnValue
	YieldValue
)

// Instruction is one slot of a CodeObject's flat instruction stream.
type Instruction struct {
	Op    Op
	Arg   int32
	Line  int32
	Block int32 // index into Blocks, or -1 if not inside one
}

// ScopeClass classifies a name table entry by where it resolves.
type ScopeClass uint8

const (
	ScopeLocal ScopeClass = iota
	ScopeGlobal
	ScopeFree
)

// NameEntry is one entry of a CodeObject's name table.
type NameEntry struct {
	Name  string
	Scope ScopeClass
}

// BlockKind distinguishes the two things a block-stack entry guards.
type BlockKind uint8

const (
	BlockLoop BlockKind = iota
	BlockTry
)

// BlockDesc describes one lexical block (loop or try) for the frame's
// block stack; HandlerIP is only meaningful for BlockTry.
type BlockDesc struct {
	Kind      BlockKind
	HandlerIP int32
}

// PackNamePair/UnpackNamePair encode two Names-table indices into a single
// Instruction.Arg. FastIndex is the only opcode that needs this: it is the
// peephole-fused form of LOAD_NAME container; LOAD_NAME index; BUILD_INDEX
// 1, and Instruction carries only one 32-bit operand, so the optimizer
// packs both 16-bit indices into it rather than growing Instruction.
func PackNamePair(a, b int32) int32 { return (a << 16) | (b & 0xffff) }

func UnpackNamePair(packed int32) (int32, int32) {
	return packed >> 16, packed & 0xffff
}
