package vm

import "unsafe"

// ObjType tags the concrete kind of a heap object.
type ObjType uint8

const (
	ObjString ObjType = iota
	ObjFunction
	ObjNative
	ObjClosure
	ObjUpvalue
	ObjClass
	ObjInstance
	ObjBoundMethod
)

// Obj is the header every heap object shares, per §3: a type tag, the
// tricolor mark bit, and the intrusive next-pointer that threads every
// live object onto the GC's sweep list. Every concrete object kind
// embeds Obj as its first field, so a *ConcreteKind and its embedded
// *Obj share an address — the AsXxx accessors below rely on that to
// downcast without an interface or type-switch on the VM's hot path.
type Obj struct {
	Type     ObjType
	IsMarked bool
	Next     *Obj
}

// AsString downcasts o, which must have Type == ObjString.
func (o *Obj) AsString() *ObjStringData { return (*ObjStringData)(unsafe.Pointer(o)) }

// AsFunction downcasts o, which must have Type == ObjFunction.
func (o *Obj) AsFunction() *ObjFunctionData { return (*ObjFunctionData)(unsafe.Pointer(o)) }

// AsNative downcasts o, which must have Type == ObjNative.
func (o *Obj) AsNative() *ObjNativeData { return (*ObjNativeData)(unsafe.Pointer(o)) }

// AsClosure downcasts o, which must have Type == ObjClosure.
func (o *Obj) AsClosure() *ObjClosureData { return (*ObjClosureData)(unsafe.Pointer(o)) }

// AsUpvalue downcasts o, which must have Type == ObjUpvalue.
func (o *Obj) AsUpvalue() *ObjUpvalueData { return (*ObjUpvalueData)(unsafe.Pointer(o)) }

// AsClass downcasts o, which must have Type == ObjClass.
func (o *Obj) AsClass() *ObjClassData { return (*ObjClassData)(unsafe.Pointer(o)) }

// AsInstance downcasts o, which must have Type == ObjInstance.
func (o *Obj) AsInstance() *ObjInstanceData { return (*ObjInstanceData)(unsafe.Pointer(o)) }

// AsBoundMethod downcasts o, which must have Type == ObjBoundMethod.
func (o *Obj) AsBoundMethod() *ObjBoundMethodData { return (*ObjBoundMethodData)(unsafe.Pointer(o)) }

// ObjStringData is an interned, immutable byte string.
type ObjStringData struct {
	Obj
	Chars string
	Hash  uint32
}

// ObjFunctionData is a compiled function body, immutable once the
// compiler finishes with it.
type ObjFunctionData struct {
	Obj
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         string // "" for the top-level script
}

// NativeFn is the signature every native (built-in) function implements.
type NativeFn func(vm *VM, args []Value) (Value, error)

// ObjNativeData wraps a Go function exposed to Lox as a callable.
type ObjNativeData struct {
	Obj
	Arity int
	Fn    NativeFn
	Name  string
}

// ObjClosureData pairs a function with the upvalues it captured at the
// point of its OP_CLOSURE. Upvalues always has exactly
// Function.UpvalueCount entries (§3 invariant).
type ObjClosureData struct {
	Obj
	Function *ObjFunctionData
	Upvalues []*ObjUpvalueData
}

// ObjUpvalueData indirects a closure's access to a captured local. While
// open, Location points into the VM's value stack; once closed, Location
// is redirected to Closed and the stack slot is no longer read.
type ObjUpvalueData struct {
	Obj
	Location *Value
	Closed   Value
	NextOpen *ObjUpvalueData
}

// ObjClassData is a Lox class: a name and its method table. OP_INHERIT
// copies superclass methods into this table at class-declaration time,
// so method lookup never needs to walk a superclass chain at runtime.
type ObjClassData struct {
	Obj
	Name    string
	Methods *Table
}

// ObjInstanceData is an instance of a Lox class.
type ObjInstanceData struct {
	Obj
	Class  *ObjClassData
	Fields *Table
}

// ObjBoundMethodData pairs a receiver with the closure to invoke; `this`
// inside that closure resolves to Receiver.
type ObjBoundMethodData struct {
	Obj
	Receiver Value
	Method   *ObjClosureData
}
