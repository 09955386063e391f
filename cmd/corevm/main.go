// cmd/corevm/main.go
//
// corevm is a thin embedding-host demonstration, not a language toolchain:
// this repository implements the interpreter core only, with no
// lexer/parser/compiler attached. main wires together a small hand-built
// program using the same CodeObject/Runtime surface a real compiler would
// target, to exercise NewVM, BindFunc, the optimizer pass, and Exec.
package main

import (
	"flag"
	"fmt"
	"os"

	"corevm/internal/bytecode"
	"corevm/internal/optimizer"
	"corevm/internal/vm"
)

func main() {
	disasm := flag.Bool("disasm", false, "print the disassembled program before running it")
	recursionLimit := flag.Int("recursion-limit", 1000, "maximum interpreter call-stack depth")
	flag.Parse()

	rt := vm.NewVM(vm.WithRecursionLimit(*recursionLimit))
	mod := rt.NewModule("__main__")
	installBuiltins(rt, mod.Object())

	code := buildDemoProgram()
	optimizer.Optimize(code)

	if *disasm {
		fmt.Fprint(os.Stdout, rt.Disassemble(code))
	}

	if _, err := rt.Exec(mod, code); err != nil {
		os.Exit(1)
	}
}

// installBuiltins binds the handful of native functions the demo program
// calls, the way a host embedding this core registers its own stdlib.
func installBuiltins(rt *vm.Runtime, mod *vm.Object) {
	rt.BindFunc(mod, "print", 1, func(rt *vm.Runtime, args []Value) (Value, error) {
		s, err := rt.AsStr(args[0])
		if err != nil {
			return Value{}, err
		}
		fmt.Fprintln(rt.Stdout(), s)
		return rt.None, nil
	})
}

type Value = vm.Value

// buildDemoProgram hand-assembles `print(-3)` as a CodeObject: a
// "LOAD_CONST 3; UNARY_NEGATIVE" peephole case, chosen so running with
// -disasm shows the fused constant the optimizer produces.
func buildDemoProgram() *bytecode.CodeObject {
	code := bytecode.NewCodeObject("<demo>")
	printIdx := code.AddName("print", bytecode.ScopeGlobal)
	threeIdx := code.AddConst(int64(3))

	code.Emit(bytecode.LoadGlobal, printIdx, 1, -1)
	code.Emit(bytecode.LoadConst, threeIdx, 1, -1)
	code.Emit(bytecode.UnaryNegative, 0, 1, -1)
	code.Emit(bytecode.CallFunction, 1, 1, -1)
	code.Emit(bytecode.Pop, 0, 1, -1)
	code.Emit(bytecode.LoadConst, code.AddConst(nil), 1, -1)
	code.Emit(bytecode.ReturnValue, 0, 1, -1)
	return code
}
