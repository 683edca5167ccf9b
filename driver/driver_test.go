package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"qbx/codegen"
)

func TestRunAsmOnlyWritesAssemblyFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "prog.bas")
	if err := os.WriteFile(input, []byte("PRINT \"hi\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), input, Options{ABI: codegen.SysV(""), AsmOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode)
	}
	if _, err := os.Stat(res.AsmPath); err != nil {
		t.Fatalf("expected the assembly file to exist: %v", err)
	}
}

func TestRunReportsCompileErrorExitCode(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.bas")
	if err := os.WriteFile(input, []byte("PRINT (\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), input, Options{ABI: codegen.SysV(""), AsmOnly: true})
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if res.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", res.ExitCode)
	}
}
