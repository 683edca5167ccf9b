package codegen

import (
	"fmt"
	"strings"

	"qbx/symbol"
	"qbx/types"
)

// varSlot records where one resolved variable lives once codegen has
// assigned it a concrete address, generalizing the teacher's Var_Pos
// (is_on_stack/index/reg) to the five-type lattice and to the
// Global/Local/Param storage classes symbol.Resolve assigns.
//
// Every scalar and every array variable occupies a uniform 8-byte slot
// (16 bytes for String, which carries a pointer and a length) whether
// that slot is a fixed data/bss label (Global) or an rbp-relative stack
// offset (Local/Param). Narrower types (Integer, Single) simply leave
// the high bytes of their slot unused; this trades a few bytes of
// padding for one addressing convention instead of the teacher's
// per-alignment-tier bucketing, since §4.4 already commits to carrying
// every GPR value sign-extended to 64 bits and every SSE value as a
// double during evaluation.
type varSlot struct {
	Info    *symbol.VarInfo
	Label   string // set when Class == symbol.Global
	Offset  int    // set when Class == symbol.Local or symbol.Param; rbp-relative
	IsArray bool
}

func (s varSlot) slotSize() int { return slotSizeFor(s) }

// operand renders the addressing expression for a slot's primary
// qword (the only qword, for scalars and array pointers; the pointer
// half of a String pair).
func (s varSlot) operand() string {
	if s.Label != "" {
		return fmt.Sprintf("[rip+%s]", s.Label)
	}
	return fmt.Sprintf("[rbp%+d]", s.Offset)
}

// lenOperand renders the addressing expression for a String slot's
// length qword, stored immediately after the pointer qword.
func (s varSlot) lenOperand() string {
	if s.Label != "" {
		return fmt.Sprintf("[rip+%s+8]", s.Label)
	}
	return fmt.Sprintf("[rbp%+d]", s.Offset+8)
}

// frame is the complete slot assignment for one procedure (or __main):
// every variable in its symbol.Scope mapped to a varSlot, plus the
// total stack space __main's callees must reserve.
type frame struct {
	Slots     map[symbol.VarKey]varSlot
	FrameSize int // bytes to reserve below rbp, 16-byte aligned; 0 for Global scopes
}

func (f frame) slot(key symbol.VarKey) (varSlot, bool) {
	s, ok := f.Slots[key]
	return s, ok
}

// globalLabel names the fixed data/bss label for a Global variable,
// deterministic from its VarKey so every reference to the same
// variable computes the same label independently.
func globalLabel(key symbol.VarKey) string {
	return fmt.Sprintf("_g_%s_%d", strings.ToLower(key.Name), key.Suffix)
}

// buildGlobalFrame assigns every variable in __main's scope a fixed
// label; __main has no stack frame of its own (§3.4: "Global scalars
// reside at fixed labels in the data section").
func buildGlobalFrame(scope *symbol.Scope) frame {
	f := frame{Slots: make(map[symbol.VarKey]varSlot)}
	for _, v := range scope.Order {
		f.Slots[v.Key] = varSlot{Info: v, Label: globalLabel(v.Key), IsArray: v.IsArray}
	}
	return f
}

// buildLocalFrame assigns every Param and Local variable in a
// procedure's scope a stack slot below rbp, in declaration order
// (params first, since symbol.Resolve declares them before resolving
// the body). This generalizes the teacher's generate_assembly
// alignment-tier layout to a single uniform slot size per §4.4.
func buildLocalFrame(scope *symbol.Scope) frame {
	f := frame{Slots: make(map[symbol.VarKey]varSlot)}
	offset := 0
	for _, v := range scope.Order {
		slot := varSlot{Info: v, IsArray: v.IsArray}
		offset -= slotSizeFor(slot)
		slot.Offset = offset
		f.Slots[v.Key] = slot
	}
	size := -offset
	f.FrameSize = (size + 15) &^ 15
	return f
}

func slotSizeFor(s varSlot) int {
	if s.IsArray {
		return 8
	}
	if s.Info.Type == types.String {
		return 16
	}
	return 8
}
