package codegen

import (
	"fmt"
	"strings"
)

// asmWriter accumulates the three sections of the emitted assembly
// file. This generalizes the teacher's Nasm struct (text_sec/data_sec
// string builders plus its addf helper) to a three-section (text/
// data/bss) GAS-Intel-syntax file instead of NASM.
type asmWriter struct {
	text   strings.Builder
	data   strings.Builder
	bss    strings.Builder
	labelN int
}

// emit appends one formatted line (with trailing newline) to a section.
func emit(b *strings.Builder, format string, args ...any) {
	fmt.Fprintf(b, format, args...)
	b.WriteByte('\n')
}

func (w *asmWriter) text_(format string, args ...any) { emit(&w.text, format, args...) }
func (w *asmWriter) data_(format string, args ...any) { emit(&w.data, format, args...) }
func (w *asmWriter) bss_(format string, args ...any)  { emit(&w.bss, format, args...) }

// newLabel returns a fresh, program-unique local label with the given
// hint embedded for readability when reading generated assembly.
func (w *asmWriter) newLabel(hint string) string {
	w.labelN++
	return fmt.Sprintf(".L%s_%d", hint, w.labelN)
}

// sizeWord maps a byte width to its GAS-Intel operand-size keyword,
// generalizing the teacher's indexing_word over the five-type lattice
// (which needs byte/word/dword/qword, same as the teacher's bare-word
// BASIC-less value model already did).
func sizeWord(bytes int) string {
	switch bytes {
	case 1:
		return "byte"
	case 2:
		return "word"
	case 4:
		return "dword"
	case 8:
		return "qword"
	default:
		return "qword"
	}
}

// defWord maps a byte width to its GAS data-definition directive,
// generalizing the teacher's defining_word.
func defWord(bytes int) string {
	switch bytes {
	case 1:
		return ".byte"
	case 2:
		return ".word"
	case 4:
		return ".long"
	case 8:
		return ".quad"
	default:
		return ".quad"
	}
}

// assemble concatenates the three sections into one complete file,
// mirroring the teacher's nasm_file_preamble but targeting GAS rather
// than a hand-rolled ELF header — this compiler delegates assembling
// and linking to `as`/`cc` (§4.6) instead of emitting its own
// executable image.
func (w *asmWriter) assemble(abi ABI) string {
	var out strings.Builder
	emit(&out, "# generated by qbxc, target %s", abi.Name())
	emit(&out, ".intel_syntax noprefix")
	emit(&out, "")
	emit(&out, ".text")
	out.WriteString(w.text.String())
	emit(&out, "")
	emit(&out, ".data")
	out.WriteString(w.data.String())
	emit(&out, "")
	emit(&out, ".bss")
	out.WriteString(w.bss.String())
	return out.String()
}
