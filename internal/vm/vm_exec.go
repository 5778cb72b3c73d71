package vm

import "fmt"

// run executes bytecode starting from the current top call frame until
// that frame (and everything it calls) returns, per §4.5's "simple while
// on the IP" dispatch loop. TRACE_EXECUTION prints the disassembled
// instruction and the live stack before each step, mirroring clox's
// debug build.
func (vm *VM) run() error {
	frame := vm.currentFrame()

	for {
		if vm.traceExecution {
			vm.traceStep(frame)
		}

		op := Opcode(vm.readByte(frame))
		switch op {
		case OpConstant:
			vm.push(frame.closure.Function.Chunk.Constants[vm.readByte(frame)])

		case OpNil:
			vm.push(Nil)
		case OpTrue:
			vm.push(Bool(true))
		case OpFalse:
			vm.push(Bool(false))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			slot := int(vm.readByte(frame))
			vm.push(vm.stack[frame.base+slot])
		case OpSetLocal:
			slot := int(vm.readByte(frame))
			vm.stack[frame.base+slot] = vm.peek(0)

		case OpGetGlobal:
			name := vm.readString(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case OpDefineGlobal:
			name := vm.readString(frame)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case OpSetGlobal:
			name := vm.readString(frame)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case OpGetUpvalue:
			slot := int(vm.readByte(frame))
			vm.push(*frame.closure.Upvalues[slot].Location)
		case OpSetUpvalue:
			slot := int(vm.readByte(frame))
			*frame.closure.Upvalues[slot].Location = vm.peek(0)

		case OpGetProperty:
			if err := vm.execGetProperty(frame); err != nil {
				return err
			}
		case OpSetProperty:
			if err := vm.execSetProperty(frame); err != nil {
				return err
			}
		case OpGetSuper:
			name := vm.readString(frame)
			superclass := vm.pop().AsObj().AsClass()
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}

		case OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(Bool(Equal(a, b)))
		case OpGreater:
			if err := vm.binaryNumberOp(op); err != nil {
				return err
			}
		case OpLess:
			if err := vm.binaryNumberOp(op); err != nil {
				return err
			}
		case OpAdd:
			if err := vm.execAdd(); err != nil {
				return err
			}
		case OpSubtract, OpMultiply, OpDivide:
			if err := vm.binaryNumberOp(op); err != nil {
				return err
			}
		case OpNot:
			vm.push(Bool(vm.pop().IsFalsey()))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(Number(-vm.pop().AsNumber()))

		case OpPrint:
			fmt.Fprintln(vm.stdout, Stringify(vm.pop()))

		case OpJump:
			offset := vm.readShort(frame)
			frame.ip += offset
		case OpJumpIfFalse:
			offset := vm.readShort(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += offset
			}
		case OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= offset

		case OpCall:
			argCount := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()
		case OpInvoke:
			name := vm.readString(frame)
			argCount := int(vm.readByte(frame))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()
		case OpSuperInvoke:
			name := vm.readString(frame)
			argCount := int(vm.readByte(frame))
			superclass := vm.pop().AsObj().AsClass()
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case OpClosure:
			vm.execClosure(frame)

		case OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.sp-1])
			vm.pop()

		case OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.base])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.sp = frame.base
			vm.push(result)
			frame = vm.currentFrame()

		case OpClass:
			name := vm.readString(frame)
			vm.push(ObjVal(&vm.heap.NewClass(name.Chars).Obj))
		case OpInherit:
			if err := vm.execInherit(); err != nil {
				return err
			}
		case OpMethod:
			vm.defineMethod(vm.readString(frame))

		default:
			return vm.runtimeError("Unknown opcode %d.", byte(op))
		}
	}
}

func (vm *VM) readByte(frame *CallFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *CallFrame) int {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readString(frame *CallFrame) *ObjStringData {
	idx := vm.readByte(frame)
	return frame.closure.Function.Chunk.Constants[idx].AsObj().AsString()
}

func (vm *VM) execGetProperty(frame *CallFrame) error {
	receiver := vm.peek(0)
	if !receiver.IsObj() || receiver.AsObj().Type != ObjInstance {
		return vm.runtimeError("Only instances have properties.")
	}
	instance := receiver.AsObj().AsInstance()
	name := vm.readString(frame)

	if field, ok := instance.Fields.Get(name); ok {
		vm.pop()
		vm.push(field)
		return nil
	}
	return vm.bindMethod(instance.Class, name)
}

func (vm *VM) execSetProperty(frame *CallFrame) error {
	receiver := vm.peek(1)
	if !receiver.IsObj() || receiver.AsObj().Type != ObjInstance {
		return vm.runtimeError("Only instances have fields.")
	}
	instance := receiver.AsObj().AsInstance()
	name := vm.readString(frame)

	instance.Fields.Set(name, vm.peek(0))
	value := vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

func (vm *VM) execInherit() error {
	superValue := vm.peek(1)
	if !superValue.IsObj() || superValue.AsObj().Type != ObjClass {
		return vm.runtimeError("Superclass must be a class.")
	}
	superclass := superValue.AsObj().AsClass()
	subclass := vm.peek(0).AsObj().AsClass()
	superclass.Methods.Each(func(key *ObjStringData, v Value) {
		subclass.Methods.Set(key, v)
	})
	vm.pop()
	return nil
}

func (vm *VM) execClosure(frame *CallFrame) {
	fn := frame.closure.Function.Chunk.Constants[vm.readByte(frame)].AsObj().AsFunction()
	closure := vm.heap.NewClosure(fn)
	vm.push(ObjVal(&closure.Obj))

	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := vm.readByte(frame)
		index := vm.readByte(frame)
		if isLocal == 1 {
			closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.base+int(index)])
		} else {
			closure.Upvalues[i] = frame.closure.Upvalues[index]
		}
	}
}
