// Package optimizer implements the single peephole optimization pass the
// core runtime performs on a compiled CodeObject before it is ever
// executed: constant-fold a literal unary negation, fuse a two-name
// subscript load into one instruction, and precompute a perfect hash over
// the function's local-variable names.
package optimizer

import "corevm/internal/bytecode"

// Optimize runs the pass over code exactly once; re-running it on an
// already-optimized CodeObject is a no-op (code.Optimized guards it), so a
// second call neither rescans the instructions nor repeats the locals-hash
// search.
func Optimize(code *bytecode.CodeObject) {
	if code.Optimized {
		return
	}
	foldNegatedConstants(code)
	fuseNameIndexing(code)
	precomputeLocalsHash(code)
	code.Optimized = true
}

// foldNegatedConstants rewrites LOAD_CONST k; UNARY_NEGATIVE into a single
// LOAD_CONST pointing at a freshly interned negated constant followed by a
// NO_OP, so the instruction stream length (and every other instruction's
// jump targets) never changes.
func foldNegatedConstants(code *bytecode.CodeObject) {
	for i := 0; i+1 < len(code.Codes); i++ {
		loadInstr := code.Codes[i]
		negInstr := code.Codes[i+1]
		if loadInstr.Op != bytecode.LoadConst || negInstr.Op != bytecode.UnaryNegative {
			continue
		}
		negated, ok := negateConst(code.Consts[loadInstr.Arg])
		if !ok {
			continue
		}
		newIdx := code.AddConst(negated)
		code.Codes[i] = bytecode.Instruction{Op: bytecode.LoadConst, Arg: newIdx, Line: loadInstr.Line, Block: loadInstr.Block}
		code.Codes[i+1] = bytecode.Instruction{Op: bytecode.NoOp, Line: negInstr.Line, Block: negInstr.Block}
	}
}

func negateConst(raw interface{}) (interface{}, bool) {
	switch c := raw.(type) {
	case int64:
		return -c, true
	case int:
		return -c, true
	case float64:
		return -c, true
	default:
		return nil, false
	}
}

// fuseNameIndexing rewrites LOAD_NAME container; LOAD_NAME index;
// BUILD_INDEX 1 into FAST_INDEX, packing both Names-table indices into the
// fused instruction's operand (bytecode.PackNamePair). The two now-unused
// slots collapse to NO_OP so later instructions' positions (and every
// jump target computed before optimization ran) stay valid.
func fuseNameIndexing(code *bytecode.CodeObject) {
	for i := 0; i+2 < len(code.Codes); i++ {
		a := code.Codes[i]
		b := code.Codes[i+1]
		c := code.Codes[i+2]
		if a.Op != bytecode.LoadName || b.Op != bytecode.LoadName || c.Op != bytecode.BuildIndex || c.Arg != 1 {
			continue
		}
		code.Codes[i] = bytecode.Instruction{
			Op:    bytecode.FastIndex,
			Arg:   bytecode.PackNamePair(a.Arg, b.Arg),
			Line:  c.Line,
			Block: c.Block,
		}
		code.Codes[i+1] = bytecode.Instruction{Op: bytecode.NoOp, Line: b.Line, Block: b.Block}
		code.Codes[i+2] = bytecode.Instruction{Op: bytecode.NoOp, Line: c.Line, Block: c.Block}
	}
}

// perfectLoadFactor mirrors vm.AttrDict's own constant; kept as a separate
// copy here because internal/optimizer must not import internal/vm (the
// optimizer runs at compile time, before any Runtime exists, and operates
// purely on bytecode.CodeObject).
const perfectLoadFactor = 0.67

// precomputeLocalsHash chooses a capacity/seed such that every local
// variable name referenced by a LOAD_LOCAL/STORE_LOCAL instruction hashes
// to a distinct slot, recording the result on the CodeObject for the
// runtime's Frame/AttrDict construction to consult.
func precomputeLocalsHash(code *bytecode.CodeObject) {
	seen := make(map[string]bool)
	var names []string
	for _, instr := range code.Codes {
		if instr.Op != bytecode.LoadLocal && instr.Op != bytecode.StoreLocal {
			continue
		}
		if instr.Arg < 0 || int(instr.Arg) >= len(code.Names) {
			continue
		}
		n := code.Names[instr.Arg].Name
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		code.PerfectLocalsCapacity = 1
		code.PerfectHashSeed = 0
		return
	}

	capacity := 1
	for float64(len(names))/float64(capacity) > perfectLoadFactor {
		capacity <<= 1
	}
	const maxSeedAttempts = 1 << 16
	for seed := uint64(0); seed < maxSeedAttempts; seed++ {
		if seedFitsAll(names, seed, capacity) {
			code.PerfectLocalsCapacity = capacity
			code.PerfectHashSeed = seed
			return
		}
		if seed == maxSeedAttempts/2 {
			capacity <<= 1
		}
	}
	// No seed found within the search budget: leave capacity/seed at their
	// zero values. CallDispatcher.callFunction (internal/vm) treats
	// PerfectLocalsCapacity == 0 as "no precompute available" and builds
	// an ordinary AttrDict instead, which is always correct, just without
	// the single-probe guarantee.
}

func seedFitsAll(names []string, seed uint64, capacity int) bool {
	seen := make(map[uint64]bool, len(names))
	for _, n := range names {
		slot := fnv1a(n, seed) & uint64(capacity-1)
		if seen[slot] {
			return false
		}
		seen[slot] = true
	}
	return true
}

func fnv1a(s string, seed uint64) uint64 {
	h := uint64(1469598103934665603) ^ seed
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
