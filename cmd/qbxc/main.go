// Command qbxc compiles a BASIC source file to a native executable (or,
// with -S, to assembly text only). Flag handling follows
// original_source/src/main.rs's hand-rolled argument loop, generalized to
// the standard library's flag package.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"qbx/compiler"
	"qbx/driver"
	"qbx/internal/diag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("qbxc", flag.ContinueOnError)
	asmOnly := fs.Bool("S", false, "emit assembly text only, skip assembling and linking")
	out := fs.String("o", "", "output path (default: the input's stem)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: qbxc [-S] [-o OUT] INPUT.bas\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 1
	}
	inputPath := fs.Arg(0)

	res, err := driver.Run(context.Background(), inputPath, driver.Options{
		AsmOnly: *asmOnly,
		Out:     *out,
	})
	if err != nil {
		reportError(inputPath, res.Diags, err)
		if res.ExitCode != 0 {
			return res.ExitCode
		}
		return 1
	}
	if *asmOnly {
		fmt.Printf("Assembly written to %s\n", res.AsmPath)
	} else {
		fmt.Printf("Compiled %s -> %s\n", inputPath, res.ExePath)
	}
	return 0
}

func reportError(inputPath string, diags []compiler.Diagnostic, err error) {
	if len(diags) == 0 {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	src, rerr := os.ReadFile(inputPath)
	if rerr != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	for i := range diags {
		fmt.Fprintln(os.Stderr, diag.Render(&diags[i], string(src)))
	}
}
