// Package vm implements the stack-based bytecode virtual machine.
package vm

// Opcode is a single VM instruction.
type Opcode byte

const (
	OpConstant Opcode = iota // operand: 1-byte constant index
	OpNil
	OpTrue
	OpFalse
	OpPop

	OpGetLocal // operand: 1-byte stack slot
	OpSetLocal
	OpGetGlobal // operand: 1-byte constant index (name)
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue // operand: 1-byte upvalue slot
	OpSetUpvalue
	OpGetProperty // operand: 1-byte constant index (field name)
	OpSetProperty
	OpGetSuper // operand: 1-byte constant index (method name)

	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate

	OpPrint

	OpJump         // operand: 2-byte forward offset
	OpJumpIfFalse  // operand: 2-byte forward offset
	OpLoop         // operand: 2-byte backward offset

	OpCall        // operand: 1-byte argument count
	OpInvoke      // operands: 1-byte constant index (name), 1-byte argument count
	OpSuperInvoke // operands: 1-byte constant index (name), 1-byte argument count

	OpClosure      // operand: 1-byte constant index (function), then 2 bytes per upvalue
	OpCloseUpvalue
	OpReturn

	OpClass     // operand: 1-byte constant index (name)
	OpInherit
	OpMethod // operand: 1-byte constant index (name)
)

var opcodeNames = map[Opcode]string{
	OpConstant: "OP_CONSTANT",
	OpNil:      "OP_NIL",
	OpTrue:     "OP_TRUE",
	OpFalse:    "OP_FALSE",
	OpPop:      "OP_POP",

	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpGetSuper:     "OP_GET_SUPER",

	OpEqual:    "OP_EQUAL",
	OpGreater:  "OP_GREATER",
	OpLess:     "OP_LESS",
	OpAdd:      "OP_ADD",
	OpSubtract: "OP_SUBTRACT",
	OpMultiply: "OP_MULTIPLY",
	OpDivide:   "OP_DIVIDE",
	OpNot:      "OP_NOT",
	OpNegate:   "OP_NEGATE",

	OpPrint: "OP_PRINT",

	OpJump:        "OP_JUMP",
	OpJumpIfFalse: "OP_JUMP_IF_FALSE",
	OpLoop:        "OP_LOOP",

	OpCall:        "OP_CALL",
	OpInvoke:      "OP_INVOKE",
	OpSuperInvoke: "OP_SUPER_INVOKE",

	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",

	OpClass:   "OP_CLASS",
	OpInherit: "OP_INHERIT",
	OpMethod:  "OP_METHOD",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "OP_UNKNOWN"
}
