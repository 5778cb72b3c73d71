package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// FramesMax bounds the call-frame stack: clox's FRAMES_MAX becomes the
// length of the VM's fixed frames array (§4.5).
const FramesMax = 64

// StackMax is 256 slots per frame across FramesMax frames, matching
// clox's `STACK_MAX (FRAMES_MAX * UINT8_COUNT)`.
const StackMax = FramesMax * 256

// CallFrame is one activation record: the closure being executed, its
// instruction pointer, and where its locals begin on the value stack.
type CallFrame struct {
	closure *ObjClosureData
	ip      int
	base    int
}

// VM is the stack-based bytecode interpreter of §4.5. Each instance owns
// its own Heap, so multiple interpreters can be embedded side by side
// (§9); ID identifies the instance and is what the sessionID() native
// returns. TRACE_EXECUTION and LOG_GC lines do not include it.
type VM struct {
	ID uuid.UUID

	heap *Heap

	stack []Value
	sp    int

	frames     [FramesMax]CallFrame
	frameCount int

	globals *Table

	openUpvalues *ObjUpvalueData

	stdout io.Writer
	stderr io.Writer

	traceExecution bool
}

// Options configures a VM beyond its defaults.
type Options struct {
	Heap           *Heap
	Stdout         io.Writer
	Stderr         io.Writer
	TraceExecution bool
}

// New creates a VM with its own globals table, bound to heap as the
// active root source for the rest of its lifetime.
func New(opts Options) *VM {
	heap := opts.Heap
	if heap == nil {
		heap = NewHeap(HeapOptions{})
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	vm := &VM{
		ID:             uuid.New(),
		heap:           heap,
		stack:          make([]Value, StackMax),
		globals:        NewTable(),
		stdout:         stdout,
		stderr:         stderr,
		traceExecution: opts.TraceExecution,
	}
	heap.BindVM(vm)
	vm.defineNatives()
	return vm
}

// Interpret compiles and runs source to completion. A compile error
// returns without running any bytecode; a runtime error aborts execution
// and resets the VM's stacks so the caller (e.g. a REPL) can continue.
func (vm *VM) Interpret(source string) error {
	fn, err := Compile(source, vm.heap)
	if err != nil {
		return err
	}

	closure := vm.heap.NewClosure(fn)
	vm.push(ObjVal(&closure.Obj))
	if err := vm.call(closure, 0); err != nil {
		vm.resetStacks()
		return err
	}
	return vm.run()
}

func (vm *VM) resetStacks() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// Heap returns the VM's backing heap, so a caller can compile and
// disassemble source without running it, against the same allocator and
// string interner the VM itself uses. cmd/lox's -disassemble flag does
// not use it; it compiles against a scratch heap instead.
func (vm *VM) Heap() *Heap {
	return vm.heap
}

func (vm *VM) currentFrame() *CallFrame {
	return &vm.frames[vm.frameCount-1]
}

// markRoots marks every VM-owned root enumerated in §4.2 phase 1: the
// value stack, every call frame's closure, every open upvalue, and the
// globals table.
func (vm *VM) markRoots(h *Heap) {
	for i := 0; i < vm.sp; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.markObject(&vm.frames[i].closure.Obj)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		h.markObject(&uv.Obj)
	}
	vm.globals.Each(func(key *ObjStringData, v Value) {
		h.markObject(&key.Obj)
		h.MarkValue(v)
	})
}

// runtimeError formats and returns a runtime error with a full stack
// trace (innermost frame first), per §4.5/§7, then resets the VM so the
// caller can recover (e.g. the REPL continuing to the next line).
func (vm *VM) runtimeError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	var trace string
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.closure.Function
		line := fn.Chunk.Lines[frame.ip-1]
		name := "script"
		if fn.Name != "" {
			name = fn.Name + "()"
		}
		trace += fmt.Sprintf("[line %d] in %s\n", line, name)
	}

	vm.resetStacks()
	return fmt.Errorf("%s\n%s", msg, trace)
}
