// Command lox is a thin REPL/file-execution driver over internal/vm, per
// SPEC_FULL.md §6. Core scope is the compiler, GC, and VM in
// internal/vm; this binary is the out-of-core-scope demonstration
// harness spec.md §1 calls for.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/adamdb5/lox/internal/config"
	"github.com/adamdb5/lox/internal/vm"
)

// flagOverrides holds the subset of config.Debug a flag can force on,
// tracked separately from the flag.Bool default (false) so an unset flag
// never clobbers a true value already loaded from lox.yaml/env — flags
// only override when the caller actually passed them (§1.3's
// flag > env > file > default precedence).
type flagOverrides struct {
	trace, printCode, stressGC, logGC bool
}

func main() {
	disassemble := flag.Bool("disassemble", false, "print the compiled script's bytecode before running it")
	trace := flag.Bool("trace", false, "trace each instruction as it executes (overrides lox.yaml/LOX_TRACE)")
	printCode := flag.Bool("print-code", false, "disassemble every function as it finishes compiling (overrides lox.yaml/LOX_PRINT_CODE)")
	stressGC := flag.Bool("stress-gc", false, "run the collector before every allocation (overrides lox.yaml/LOX_STRESS_GC)")
	logGC := flag.Bool("log-gc", false, "log each collection cycle's begin/end (overrides lox.yaml/LOX_LOG_GC)")
	flag.Parse()

	var overrides flagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trace":
			overrides.trace = true
		case "print-code":
			overrides.printCode = true
		case "stress-gc":
			overrides.stressGC = true
		case "log-gc":
			overrides.logGC = true
		}
	})
	_, _, _, _ = trace, printCode, stressGC, logGC

	switch flag.NArg() {
	case 0:
		repl(overrides)
	case 1:
		runFile(flag.Arg(0), *disassemble, overrides)
	default:
		fmt.Fprintln(os.Stderr, "Usage: lox [flags] [script]")
		os.Exit(64)
	}
}

func newVM(overrides flagOverrides) *vm.VM {
	wd, _ := os.Getwd()
	cfg, err := config.Load(wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox.yaml: %s\n", err)
	}

	if overrides.trace {
		cfg.Debug.TraceExecution = true
	}
	if overrides.printCode {
		cfg.Debug.PrintCode = true
	}
	if overrides.stressGC {
		cfg.Debug.StressGC = true
	}
	if overrides.logGC {
		cfg.Debug.LogGC = true
	}

	heap := vm.NewHeap(vm.HeapOptions{
		InitialThreshold: cfg.GC.InitialThreshold,
		GrowFactor:       cfg.GC.HeapGrowFactor,
		StressGC:         cfg.Debug.StressGC,
		LogGC:            cfg.Debug.LogGC,
		PrintCode:        cfg.Debug.PrintCode,
		LogWriter:        os.Stderr,
	})
	return vm.New(vm.Options{
		Heap:           heap,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		TraceExecution: cfg.Debug.TraceExecution,
	})
}

// repl reads lines until EOF, executing each against the same VM so
// globals persist across lines, per §6. The prompt is only printed when
// stdin is a real terminal, grounded in funxy's own isatty-gated prompt
// framing.
func repl(overrides flagOverrides) {
	machine := newVM(overrides)
	interactive := isatty.IsTerminal(os.Stdin.Fd())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		if err := machine.Interpret(scanner.Text()); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func runFile(path string, disassemble bool, overrides flagOverrides) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open file \"%s\".\n", path)
		os.Exit(74)
	}

	if disassemble {
		printDisassembly(string(source))
	}

	machine := newVM(overrides)
	if err := machine.Interpret(string(source)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isCompileError(err) {
			os.Exit(65)
		}
		os.Exit(70)
	}
}

// printDisassembly compiles source against a scratch heap, purely to
// print its bytecode, and discards the result — the script is compiled
// again, for real, by the VM that actually runs it.
func printDisassembly(source string) {
	scratch := vm.NewHeap(vm.HeapOptions{})
	fn, err := vm.Compile(source, scratch)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(65)
	}
	fmt.Print(vm.Disassemble(fn.Chunk, "<script>"))
}

// isCompileError distinguishes a compile-time failure (joined syntax
// errors from errors.Join, never wrapping a runtime stack trace) from a
// runtime error, so the CLI can choose between exit codes 65 and 70 per
// §6.
func isCompileError(err error) bool {
	_, ok := err.(interface{ Unwrap() []error })
	return ok
}
