package runtime

import (
	"strings"
	"testing"

	"qbx/codegen"
)

func TestSelectSubstitutesSysVPrefix(t *testing.T) {
	src, err := Select(codegen.SysV("_"))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if strings.Contains(src, "{libc}") {
		t.Fatal("expected every {libc} template to be substituted")
	}
	if !strings.Contains(src, "__rt_print_string:") {
		t.Fatal("expected the macOS double-underscore prefix on _rt_print_string")
	}
}

func TestSelectLeavesLinuxPrefixEmpty(t *testing.T) {
	src, err := Select(codegen.SysV(""))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !strings.Contains(src, "_rt_print_string:") {
		t.Fatal("expected an unprefixed _rt_print_string on Linux")
	}
	if strings.Contains(src, "__rt_print_string:") {
		t.Fatal("did not expect a macOS-style double underscore on Linux")
	}
}

func TestSelectReturnsWin64Source(t *testing.T) {
	src, err := Select(codegen.Win64())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !strings.Contains(src, "_rt_print_string:") {
		t.Fatal("expected the Win64 runtime to define _rt_print_string")
	}
	if !strings.Contains(src, "__acrt_iob_func") {
		t.Fatal("expected the Win64 runtime to resolve stdio handles via __acrt_iob_func")
	}
}

func TestUCaseAndLCaseSetADirectionFlagAndTransformBytes(t *testing.T) {
	for _, abi := range []codegen.ABI{codegen.SysV(""), codegen.Win64()} {
		src, err := Select(abi)
		if err != nil {
			t.Fatalf("Select(%s): %v", abi.Name(), err)
		}
		if !strings.Contains(src, "mov r10d, 1") {
			t.Fatalf("%s: expected _rt_str_ucase to set the uppercase direction flag", abi.Name())
		}
		if !strings.Contains(src, "jmp _rt_str_dup_case") {
			t.Fatalf("%s: expected _rt_str_ucase/_rt_str_lcase to tail-call into _rt_str_dup_case", abi.Name())
		}
		if !strings.Contains(src, "0x61") || !strings.Contains(src, "0x7A") {
			t.Fatalf("%s: expected _rt_str_dup_case to range-check lowercase letters before transforming", abi.Name())
		}
	}
}
