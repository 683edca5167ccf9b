// Package runtime embeds the hand-written assembly support routines
// (_rt_-prefixed) that generated programs call into for string
// manipulation, console and file I/O, DATA/READ, and the few other
// operations too awkward to inline at every call site. Grounded on
// original_source/src/runtime.rs's generate_runtime(), which selects a
// source string per target and substitutes a libc symbol prefix;
// reimplemented here with embed.FS since Go has no include_str! and
// the substitution is a plain strings.Replace rather than a build-time
// macro.
package runtime

import (
	"embed"
	"strings"

	"qbx/codegen"
)

//go:embed sysv_amd64.s.tmpl win64_amd64.s.tmpl
var sources embed.FS

// Select returns the runtime assembly text for abi, with every
// {libc}-templated symbol prefix resolved. The SysV source carries the
// template because the same routine names need an extra leading
// underscore on Darwin; the Win64 source never varies its prefix (the
// Win64 ABI's SymbolPrefix is always empty), so it has nothing to
// substitute.
func Select(abi codegen.ABI) (string, error) {
	var name string
	switch abi.Name() {
	case "win64":
		name = "win64_amd64.s.tmpl"
	default:
		name = "sysv_amd64.s.tmpl"
	}
	b, err := sources.ReadFile(name)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(b), "{libc}", abi.SymbolPrefix()), nil
}
