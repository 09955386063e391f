package vm

import (
	"fmt"
	"strings"

	"corevm/internal/bytecode"
	"github.com/kr/pretty"
	"github.com/kr/text"
)

var opNames = map[bytecode.Op]string{
	bytecode.NoOp:         "NO_OP",
	bytecode.LoadConst:    "LOAD_CONST",
	bytecode.LoadLocal:    "LOAD_LOCAL",
	bytecode.StoreLocal:   "STORE_LOCAL",
	bytecode.LoadGlobal:   "LOAD_GLOBAL",
	bytecode.StoreGlobal:  "STORE_GLOBAL",
	bytecode.LoadAttr:     "LOAD_ATTR",
	bytecode.StoreAttr:    "STORE_ATTR",
	bytecode.LoadName:     "LOAD_NAME",
	bytecode.LoadNameRef:  "LOAD_NAME_REF",
	bytecode.BuildIndex:   "BUILD_INDEX",
	bytecode.FastIndex:    "FAST_INDEX",
	bytecode.BuildTuple:   "BUILD_TUPLE",
	bytecode.BuildList:    "BUILD_LIST",
	bytecode.UnaryNegative: "UNARY_NEGATIVE",
	bytecode.Pop:          "POP",
	bytecode.Dup:          "DUP",
	bytecode.Jump:         "JUMP",
	bytecode.JumpIfFalse:  "JUMP_IF_FALSE",
	bytecode.SetupTry:     "SETUP_TRY",
	bytecode.PopBlock:     "POP_BLOCK",
	bytecode.Raise:        "RAISE",
	bytecode.CallFunction: "CALL_FUNCTION",
	bytecode.MakeFunction: "MAKE_FUNCTION",
	bytecode.ReturnValue:  "RETURN_VALUE",
	bytecode.YieldValue:   "YIELD_VALUE",
}

// Disassemble renders a diagnostic (non-contractual) listing of a
// CodeObject: one line per instruction, followed by the constant pool
// dumped with github.com/kr/pretty's struct-aware formatter and indented
// with github.com/kr/text so the constant dump reads as a nested block
// under the instruction listing.
func (rt *Runtime) Disassemble(code *bytecode.CodeObject) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "corevm[%s] %s:\n", rt.instanceID(), code.Name)
	for ip, instr := range code.Codes {
		name, ok := opNames[instr.Op]
		if !ok {
			name = fmt.Sprintf("OP_%d", instr.Op)
		}
		fmt.Fprintf(&sb, "%4d  %-16s %6d  (line %d)\n", ip, name, instr.Arg, instr.Line)
	}

	sb.WriteString("constants:\n")
	dump := pretty.Sprint(code.Consts)
	sb.WriteString(text.Indent(dump, "  "))
	sb.WriteString("\n")

	if code.Optimized {
		fmt.Fprintf(&sb, "locals: perfect capacity=%d seed=%d\n", code.PerfectLocalsCapacity, code.PerfectHashSeed)
	}
	return sb.String()
}
