package codegen

import (
	"strings"
	"testing"

	"qbx/parser"
	"qbx/symbol"
)

func generate(t *testing.T, src string, abi ABI) string {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table := symbol.NewTable()
	if err := table.Collect(prog); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if _, err := symbol.NewResolver(table).Resolve(prog); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out, err := Generate(prog, table, abi)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return out
}

func TestGeneratesMainEntryPoint(t *testing.T) {
	asm := generate(t, "PRINT \"hi\"\n", SysV(""))
	if !strings.Contains(asm, "main:") {
		t.Fatal("expected a main label")
	}
	if !strings.Contains(asm, ".globl main") {
		t.Fatal("expected .globl main")
	}
}

func TestSysVPrefixAppliesToRuntimeCalls(t *testing.T) {
	asm := generate(t, "PRINT \"hi\"\n", SysV("_"))
	if !strings.Contains(asm, "call __rt_print_string") {
		t.Fatal("expected the macOS underscore prefix on the runtime call")
	}
}

func TestUserFunctionEmitsProcLabel(t *testing.T) {
	src := "X = DOUBLEIT(3)\nEND\nFUNCTION DOUBLEIT(N)\n    DOUBLEIT = N * 2\nEND FUNCTION\n"
	asm := generate(t, src, SysV(""))
	if !strings.Contains(asm, "_proc_DOUBLEIT:") {
		t.Fatal("expected a _proc_DOUBLEIT label")
	}
	if !strings.Contains(asm, "call _proc_DOUBLEIT") {
		t.Fatal("expected the call site to reference _proc_DOUBLEIT")
	}
}

func TestGosubStackOnlyEmittedWhenUsed(t *testing.T) {
	withGosub := generate(t, "GOSUB L1\nEND\nL1:\nRETURN\n", SysV(""))
	if !strings.Contains(withGosub, "_gosub_stack") {
		t.Fatal("expected the gosub return stack to be emitted")
	}
	without := generate(t, "PRINT 1\n", SysV(""))
	if strings.Contains(without, "_gosub_stack") {
		t.Fatal("did not expect the gosub return stack without any GOSUB")
	}
}

func TestDataTableEmitsTagPayloadPairs(t *testing.T) {
	asm := generate(t, "DATA 1, 2.5, \"hi\"\nREAD X\n", SysV(""))
	if !strings.Contains(asm, "_data_table:") {
		t.Fatal("expected a _data_table label")
	}
	if !strings.Contains(asm, ".quad 0, 1") {
		t.Fatal("expected an Integer-tagged DATA entry")
	}
}

func TestComparisonProducesLongNotIntegerWidth(t *testing.T) {
	asm := generate(t, "X = 1\nY = (X = 1)\n", SysV(""))
	if !strings.Contains(asm, "neg eax") {
		t.Fatal("expected the -1/0 BASIC boolean convention in the comparison lowering")
	}
}

func TestDimAllocatesViaMalloc(t *testing.T) {
	asm := generate(t, "DIM A(10)\nA(1) = 5\n", SysV(""))
	if !strings.Contains(asm, "call malloc") {
		t.Fatal("expected DIM to heap-allocate via malloc")
	}
}

func TestWin64UsesItsOwnArgumentRegisters(t *testing.T) {
	asm := generate(t, "PRINT \"hi\"\n", Win64())
	if !strings.Contains(asm, "mov rcx, rax") {
		t.Fatal("expected Win64's rcx to carry the first integer argument")
	}
}

func TestThreeArgInstrPassesAllFiveOperands(t *testing.T) {
	asm := generate(t, "X = INSTR(2, \"abcabc\", \"bc\")\n", SysV(""))
	for _, reg := range []string{"rdi", "rsi", "rdx", "rcx", "r8"} {
		if !strings.Contains(asm, "mov "+reg+",") {
			t.Fatalf("expected the 3-arg INSTR call to load %s before calling _rt_str_instr", reg)
		}
	}
	if !strings.Contains(asm, "call _rt_str_instr") {
		t.Fatal("expected a call to _rt_str_instr")
	}
}

func TestThreeArgInstrOnWin64SpillsFifthOperandPastShadowSpace(t *testing.T) {
	asm := generate(t, "X = INSTR(2, \"abcabc\", \"bc\")\n", Win64())
	if !strings.Contains(asm, "mov [rsp+32],") {
		t.Fatal("expected the needle length, the 5th logical argument, to spill to [rsp+32] on Win64")
	}
}

func TestInputIntoArrayElementReadsAndStores(t *testing.T) {
	asm := generate(t, "DIM A&(10)\nINPUT A&(1)\n", SysV(""))
	if !strings.Contains(asm, "call _rt_input_number") {
		t.Fatal("expected INPUT into a numeric array element to call _rt_input_number")
	}
	if !strings.Contains(asm, "cvttsd2si rax, xmm0") {
		t.Fatal("expected the Double result to be converted to the array's Long element type")
	}
	if !strings.Contains(asm, "mov dword [r15], eax") {
		t.Fatal("expected the converted value to be stored into the array element")
	}
}

func TestInputIntoArrayElementWithoutSuffixStoresAsDouble(t *testing.T) {
	asm := generate(t, "DIM A(10)\nINPUT A(1)\n", SysV(""))
	if !strings.Contains(asm, "call _rt_input_number") {
		t.Fatal("expected INPUT into a numeric array element to call _rt_input_number")
	}
	if strings.Contains(asm, "cvttsd2si rax, xmm0") {
		t.Fatal("a suffixless array defaults to Double, so no GPR conversion should be emitted")
	}
	if !strings.Contains(asm, "movsd [r15], xmm0") {
		t.Fatal("expected the Double result to be stored directly into the array element")
	}
}

func TestInputIntoStringArrayElement(t *testing.T) {
	asm := generate(t, "DIM S$(10)\nINPUT S$(1)\n", SysV(""))
	if !strings.Contains(asm, "call _rt_input_string") {
		t.Fatal("expected INPUT into a string array element to call _rt_input_string")
	}
	if !strings.Contains(asm, "mov [r15+8], rdx") {
		t.Fatal("expected the string's (ptr, len) pair to be stored into the array element")
	}
}

func TestStringBuiltinLoadsCharCodeFromAStringOperand(t *testing.T) {
	asm := generate(t, "X$ = STRING$(5, \"x\")\n", SysV(""))
	if !strings.Contains(asm, "movzx r8, byte [rax]") {
		t.Fatal("expected STRING$ to load the fill byte from the string operand, not its pointer")
	}
}
