package vm

import (
	"strings"
	"testing"
)

func TestDisassembleReachesEveryInstruction(t *testing.T) {
	h := NewHeap(HeapOptions{})
	fn, err := Compile(`
		fun greet(name) {
			var loud = true;
			if (loud) { print "HI " + name; } else { print "hi " + name; }
			return name;
		}
		print greet("world");
	`, h)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	out := disassembleProgram(fn, "script")
	if !strings.HasPrefix(out, "== script ==\n") {
		t.Errorf("missing header: %q", out[:20])
	}
	for _, want := range []string{"OP_CONSTANT", "OP_CALL", "OP_CLOSURE", "OP_PRINT", "OP_POP"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %s:\n%s", want, out)
		}
	}
}

func TestDisassembleJumpInstructionsShowTargets(t *testing.T) {
	h := NewHeap(HeapOptions{})
	fn, err := Compile(`if (true) { print 1; } else { print 2; }`, h)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	out := Disassemble(fn.Chunk, "script")
	if !strings.Contains(out, "OP_JUMP_IF_FALSE") || !strings.Contains(out, "->") {
		t.Errorf("expected a jump instruction with a resolved target:\n%s", out)
	}
}

func TestDisassembleClosureInstructionListsUpvalues(t *testing.T) {
	h := NewHeap(HeapOptions{})
	fn, err := Compile(`
		fun outer() {
			var x = 1;
			fun inner() { return x; }
			return inner;
		}
	`, h)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	// Slot 0 of outer is reserved, so x lives in slot 1.
	out := disassembleProgram(fn, "script")
	if !strings.Contains(out, "OP_CLOSURE") {
		t.Errorf("expected OP_CLOSURE in outer's chunk:\n%s", out)
	}
	if !strings.Contains(out, "local 1") {
		t.Errorf("expected the captured local's upvalue descriptor:\n%s", out)
	}
}
