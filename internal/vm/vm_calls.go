package vm

import "unsafe"

// callValue dispatches a CALL opcode's callee per §4.5's "Calls" table:
// behavior depends entirely on the runtime kind of the value in the
// callee slot, since Lox has no static call-target type.
func (vm *VM) callValue(callee Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions and classes.")
	}

	switch callee.AsObj().Type {
	case ObjClosure:
		return vm.call(callee.AsObj().AsClosure(), argCount)
	case ObjNative:
		return vm.callNative(callee.AsObj().AsNative(), argCount)
	case ObjClass:
		return vm.instantiate(callee.AsObj().AsClass(), argCount)
	case ObjBoundMethod:
		bm := callee.AsObj().AsBoundMethod()
		vm.stack[vm.sp-argCount-1] = bm.Receiver
		return vm.call(bm.Method, argCount)
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

func (vm *VM) call(closure *ObjClosureData, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	frame.closure = closure
	frame.ip = 0
	frame.base = vm.sp - argCount - 1
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(native *ObjNativeData, argCount int) error {
	if argCount != native.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
	}
	args := vm.stack[vm.sp-argCount : vm.sp]
	result, err := native.Fn(vm, args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.sp -= argCount + 1
	vm.push(result)
	return nil
}

// instantiate allocates a new instance of class and, if it defines
// "init", calls it with the pending arguments; otherwise argCount must
// be zero, per §4.5.
func (vm *VM) instantiate(class *ObjClassData, argCount int) error {
	instance := vm.heap.NewInstance(class)
	vm.stack[vm.sp-argCount-1] = ObjVal(&instance.Obj)

	initName := vm.heap.InternString("init")
	if initMethod, ok := class.Methods.Get(initName); ok {
		return vm.call(initMethod.AsObj().AsClosure(), argCount)
	}
	if argCount != 0 {
		return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
	}
	return nil
}

// invoke fuses OP_GET_PROPERTY + OP_CALL: it first checks instance
// fields (a field can legally shadow a method, per clox), then falls
// back to a direct method-table dispatch that skips allocating an
// intermediate ObjBoundMethodData (§4.4/§4.5).
func (vm *VM) invoke(name *ObjStringData, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsObj() || receiver.AsObj().Type != ObjInstance {
		return vm.runtimeError("Only instances have methods.")
	}
	instance := receiver.AsObj().AsInstance()

	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.sp-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *ObjClassData, name *ObjStringData, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.AsObj().AsClosure(), argCount)
}

// bindMethod looks up name in class's method table and, on success,
// pops the receiver and pushes a bound method in its place.
func (vm *VM) bindMethod(class *ObjClassData, name *ObjStringData) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.heap.NewBoundMethod(vm.peek(0), method.AsObj().AsClosure())
	vm.pop()
	vm.push(ObjVal(&bound.Obj))
	return nil
}

func (vm *VM) defineMethod(name *ObjStringData) {
	method := vm.peek(0)
	class := vm.peek(1).AsObj().AsClass()
	class.Methods.Set(name, method)
	vm.pop()
}

// captureUpvalue returns the open upvalue for the stack slot at
// local, reusing an existing one if the open list (kept sorted by
// descending stack address) already has it, per §4.5.
func (vm *VM) captureUpvalue(local *Value) *ObjUpvalueData {
	target := uintptr(unsafe.Pointer(local))
	var prev *ObjUpvalueData
	upvalue := vm.openUpvalues
	for upvalue != nil && uintptr(unsafe.Pointer(upvalue.Location)) > target {
		prev = upvalue
		upvalue = upvalue.NextOpen
	}
	if upvalue != nil && upvalue.Location == local {
		return upvalue
	}

	created := vm.heap.NewUpvalue(local)
	created.NextOpen = upvalue
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue pointing at or above
// lastSlot, copying the stack value into the upvalue's own storage so
// it survives the frame being popped.
func (vm *VM) closeUpvalues(lastSlot *Value) {
	target := uintptr(unsafe.Pointer(lastSlot))
	for vm.openUpvalues != nil && uintptr(unsafe.Pointer(vm.openUpvalues.Location)) >= target {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.NextOpen
	}
}
