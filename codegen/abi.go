package codegen

// ABI abstracts the two calling conventions the generator targets.
// Grounded on original_source/src/abi.rs's Abi trait, reimplemented as
// a Go interface with two concrete values instead of a trait object.
type ABI interface {
	// IntArgRegs lists the integer/pointer argument registers, in order.
	IntArgRegs() []string
	// FloatArgRegs lists the SSE argument registers, in order.
	FloatArgRegs() []string
	// SymbolPrefix is prepended to every external (libc/runtime) symbol
	// name ("_" on macOS, "" elsewhere).
	SymbolPrefix() string
	// ShadowSpace is the caller-reserved scratch area below the return
	// address a callee may clobber (32 bytes on Win64, 0 on SysV).
	ShadowSpace() int
	// Name identifies the ABI for diagnostics and generated comments.
	Name() string
}

type sysV struct{ prefix string }

// SysV is the System V AMD64 ABI (Linux, BSD; pass prefix "_" for
// macOS, "" for ELF targets).
func SysV(symbolPrefix string) ABI { return sysV{prefix: symbolPrefix} }

func (sysV) IntArgRegs() []string    { return []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"} }
func (sysV) FloatArgRegs() []string  { return []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"} }
func (a sysV) SymbolPrefix() string  { return a.prefix }
func (sysV) ShadowSpace() int        { return 0 }
func (sysV) Name() string            { return "sysv" }

type win64 struct{}

// Win64 is the Windows x64 calling convention.
func Win64() ABI { return win64{} }

func (win64) IntArgRegs() []string   { return []string{"rcx", "rdx", "r8", "r9"} }
func (win64) FloatArgRegs() []string { return []string{"xmm0", "xmm1", "xmm2", "xmm3"} }
func (win64) SymbolPrefix() string   { return "" }
func (win64) ShadowSpace() int       { return 32 }
func (win64) Name() string           { return "win64" }
