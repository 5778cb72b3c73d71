package vm

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// file returns the contents of name within a, or fails the test.
func txtarFile(t *testing.T, a *txtar.Archive, name string) string {
	t.Helper()
	for _, f := range a.Files {
		if f.Name == name {
			return string(f.Data)
		}
	}
	t.Fatalf("fixture missing %q section", name)
	return ""
}

// disassembleProgram lists fn's chunk followed by the chunk of every
// function in its constant pool, recursively, so a test can look for an
// opcode anywhere in the compiled program and not only at the top level.
func disassembleProgram(fn *ObjFunctionData, name string) string {
	out := Disassemble(fn.Chunk, name)
	for _, c := range fn.Chunk.Constants {
		if c.IsObj() && c.AsObj().Type == ObjFunction {
			inner := c.AsObj().AsFunction()
			out += disassembleProgram(inner, inner.Name)
		}
	}
	return out
}

// TestGoldenFixtures runs every checked-in testdata/golden/*.txtar archive:
// each bundles a Lox source program, its expected stdout, and a list of
// opcodes that must appear in the compiled program (the script chunk or
// any nested function's chunk), per the round-trip property.
func TestGoldenFixtures(t *testing.T) {
	paths, err := filepath.Glob("testdata/golden/*.txtar")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no golden fixtures found")
	}

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			a, err := txtar.ParseFile(path)
			if err != nil {
				t.Fatalf("parsing %s: %v", path, err)
			}

			source := txtarFile(t, a, "source.lox")
			wantStdout := txtarFile(t, a, "stdout.txt")
			wantOpcodes := strings.Fields(txtarFile(t, a, "opcodes.txt"))

			h := NewHeap(HeapOptions{})
			fn, err := Compile(source, h)
			if err != nil {
				t.Fatalf("Compile error: %v", err)
			}

			disasm := disassembleProgram(fn, "script")
			for _, op := range wantOpcodes {
				if !strings.Contains(disasm, op) {
					t.Errorf("expected %s somewhere in the compiled program:\n%s", op, disasm)
				}
			}

			var buf bytes.Buffer
			machine := New(Options{Heap: h, Stdout: &buf, Stderr: &buf})
			if err := machine.Interpret(source); err != nil {
				t.Fatalf("Interpret error: %v", err)
			}

			if got := strings.TrimRight(buf.String(), "\n"); got != strings.TrimRight(wantStdout, "\n") {
				t.Errorf("stdout mismatch:\n got: %q\nwant: %q", got, wantStdout)
			}
		})
	}
}
