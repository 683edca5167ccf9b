// Package driver wraps compiler.Compile with the out-of-process
// collaborators the frontend never touches itself: writing the
// generated assembly to disk, invoking the system assembler and
// linker, and reporting their exit status. Grounded directly on
// original_source/src/main.rs's tail end, which does exactly this
// (fs::File::create the .s file, Command::new("as"), Command::new("cc")
// with "-lm" and, on Linux, "-no-pie"), generalized to a
// context.Context-bounded os/exec pipeline and structured logging.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"qbx/codegen"
	"qbx/compiler"
)

// Result carries the driver's outcome: the paths it produced and the
// exit code the CLI should propagate.
type Result struct {
	AsmPath string
	ObjPath string
	ExePath string
	Diags   []compiler.Diagnostic
	// ExitCode follows the CLI's exit code table: 0 success, 1 compile
	// error, 2 assembler/linker failure.
	ExitCode int
}

// Options configures one Run call.
type Options struct {
	ABI       codegen.ABI
	AsmOnly   bool   // -S: stop after writing the .s file
	Out       string // -o: output path; empty selects the input's stem
	Assembler string // defaults to "as"
	Linker    string // defaults to "cc"
}

// Run compiles inputPath end to end: lex/parse/resolve/codegen via
// compiler.Compile, then (unless AsmOnly) assembles and links the
// result into a native executable. Every subprocess invocation and its
// exit status is logged through log/slog, following §9's ambient
// logging decision — the driver is the one place in the pipeline that
// shells out, so it is the one place worth logging at this level.
func Run(ctx context.Context, inputPath string, opts Options) (Result, error) {
	logger := slog.Default()

	src, err := os.ReadFile(inputPath)
	if err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	abi := opts.ABI
	if abi == nil {
		abi = defaultABI()
	}

	asm, diags, cerr := compiler.Compile(src, compiler.Options{ABI: abi})
	if cerr != nil {
		return Result{Diags: diags, ExitCode: 1}, cerr
	}

	stem := opts.Out
	if stem == "" {
		stem = strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	}
	asmPath := stem + ".s"
	objPath := stem + ".o"
	exePath := stem

	if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
		return Result{AsmPath: asmPath, ExitCode: 1}, fmt.Errorf("writing assembly: %w", err)
	}
	res := Result{AsmPath: asmPath}

	if opts.AsmOnly {
		logger.Info("wrote assembly", "path", asmPath)
		return res, nil
	}
	res.ObjPath = objPath
	res.ExePath = exePath

	assembler := opts.Assembler
	if assembler == "" {
		assembler = "as"
	}
	if err := runTool(ctx, logger, assembler, []string{"-o", objPath, asmPath}); err != nil {
		res.ExitCode = 2
		return res, err
	}

	linker := opts.Linker
	if linker == "" {
		linker = "cc"
	}
	linkArgs := []string{"-o", exePath, objPath, "-lm"}
	if runtime.GOOS == "linux" {
		linkArgs = append(linkArgs, "-no-pie")
	}
	if err := runTool(ctx, logger, linker, linkArgs); err != nil {
		res.ExitCode = 2
		return res, err
	}

	os.Remove(asmPath)
	os.Remove(objPath)

	logger.Info("compiled", "input", inputPath, "output", exePath)
	return res, nil
}

func runTool(ctx context.Context, logger *slog.Logger, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	logger.Info("invoking", "tool", name, "args", args)
	err := cmd.Run()
	if err != nil {
		logger.Error("tool failed", "tool", name, "err", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Info("tool finished", "tool", name)
	return nil
}

func defaultABI() codegen.ABI {
	if runtime.GOOS == "windows" {
		return codegen.Win64()
	}
	if runtime.GOOS == "darwin" {
		return codegen.SysV("_")
	}
	return codegen.SysV("")
}
