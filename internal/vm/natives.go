package vm

import (
	"time"

	"github.com/mattn/go-isatty"
)

// defineNatives registers the native function table into vm's globals,
// exactly as if each had been declared with `var name = <native>;`
// before the program runs (§2.2/§6).
func (vm *VM) defineNatives() {
	vm.defineNative("clock", 0, nativeClock)
	vm.defineNative("isTerminal", 0, vm.nativeIsTerminal)
	vm.defineNative("sessionID", 0, vm.nativeSessionID)
}

func (vm *VM) defineNative(name string, arity int, fn NativeFn) {
	native := vm.heap.NewNative(name, arity, fn)
	vm.globals.Set(vm.heap.InternString(name), ObjVal(&native.Obj))
}

// nativeClock implements the one native §6 requires: seconds since an
// unspecified epoch as a double.
func nativeClock(vm *VM, args []Value) (Value, error) {
	return Number(float64(time.Now().UnixNano()) / 1e9), nil
}

// nativeIsTerminal reports whether this VM's configured stdout is
// attached to a terminal, grounded in funxy's builtins_term.go exposing
// the same isatty check as a language builtin (§2.2).
func (vm *VM) nativeIsTerminal(_ *VM, args []Value) (Value, error) {
	type fdStreamer interface{ Fd() uintptr }
	if f, ok := vm.stdout.(fdStreamer); ok {
		return Bool(isatty.IsTerminal(f.Fd())), nil
	}
	return Bool(false), nil
}

// nativeSessionID returns this VM's uuid.UUID session id as a Lox
// string, supporting the multi-interpreter embedding scenario of §9.
func (vm *VM) nativeSessionID(_ *VM, args []Value) (Value, error) {
	s := vm.heap.InternString(vm.ID.String())
	return ObjVal(&s.Obj), nil
}
