package vm

import (
	"fmt"
	"hash/fnv"
	"io"
	"unsafe"
)

// gcHeapGrowFactor is clox's GC_HEAP_GROW_FACTOR: after each collection
// the next collection threshold is bytesAllocated * gcHeapGrowFactor.
const gcHeapGrowFactor = 2.0

// Heap owns every reachable Lox object: the intrusive sweep list, the
// string interner, and the tri-color mark-sweep collector of §4.2. A VM
// and a Compiler chain both register themselves as root sources; Heap
// asks whichever is active for its roots at collection time, since
// compilation and execution never run concurrently (§5).
//
// Sweeping here does not return memory to the OS by hand — there is no
// manual free() in Go. Unlinking a white object from the intrusive list
// drops the last Go-level reference to it (once no root or black object
// points to it either), and Go's own garbage collector reclaims the
// backing memory on its own schedule. bytesAllocated/nextGC still track
// real allocation pressure and still gate when a collection runs; only
// the reclamation step below the collector is delegated.
type Heap struct {
	objects *Obj
	strings *Table

	bytesAllocated int64
	nextGC         int64
	growFactor     float64

	gray []*Obj

	vm        *VM
	compiler  *Compiler
	stressGC  bool
	logGC     bool
	printCode bool
	logWriter io.Writer
}

// HeapOptions configures GC behavior; zero value is clox's defaults.
type HeapOptions struct {
	InitialThreshold int64
	GrowFactor       float64
	StressGC         bool
	LogGC            bool
	// PrintCode, if set, disassembles every function's chunk to LogWriter
	// as the compiler finishes it, mirroring clox's DEBUG_PRINT_CODE.
	PrintCode bool
	LogWriter io.Writer
}

// NewHeap creates an empty heap with its own string interner.
func NewHeap(opts HeapOptions) *Heap {
	threshold := opts.InitialThreshold
	if threshold <= 0 {
		threshold = 1024 * 1024
	}
	grow := opts.GrowFactor
	if grow <= 0 {
		grow = gcHeapGrowFactor
	}
	logWriter := opts.LogWriter
	if logWriter == nil {
		logWriter = io.Discard
	}
	return &Heap{
		strings:    NewTable(),
		nextGC:     threshold,
		growFactor: grow,
		stressGC:   opts.StressGC,
		logGC:      opts.LogGC,
		printCode:  opts.PrintCode,
		logWriter:  logWriter,
	}
}

// BindVM registers vm as a root source; a Heap is used by exactly one VM
// over its lifetime.
func (h *Heap) BindVM(vm *VM) { h.vm = vm }

// BindCompiler registers the innermost Compiler frame as a root source
// for the duration of compilation (§4.2 phase 1: "every compiler's
// function chain"). Pass nil once compilation finishes.
func (h *Heap) BindCompiler(c *Compiler) { h.compiler = c }

func (h *Heap) track(size int64) {
	h.bytesAllocated += size
	if h.stressGC || h.bytesAllocated >= h.nextGC {
		h.Collect()
	}
}

func (h *Heap) prepend(o *Obj) {
	o.Next = h.objects
	h.objects = o
}

// --- allocation ---

func fnv1a(s string) uint32 {
	f := fnv.New32a()
	_, _ = f.Write([]byte(s))
	return f.Sum32()
}

// InternString returns the canonical *ObjStringData for chars, creating
// and interning a new one on first sight. After interning, string
// equality anywhere in the VM is pointer equality (§4.3).
func (h *Heap) InternString(chars string) *ObjStringData {
	hash := fnv1a(chars)
	if existing := h.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	// track may collect, so it runs before s is linked onto the sweep
	// list where an unmarked s would be unlinked again.
	h.track(int64(len(chars)) + 32)
	s := &ObjStringData{Chars: chars, Hash: hash}
	s.Type = ObjString
	h.prepend(&s.Obj)
	// Rooting hazard: Set() below may grow the interner's own backing
	// array, but that is plain Go heap, not our GC's managed objects —
	// it never triggers Collect, so s needs no temporary stack rooting.
	h.strings.Set(s, Nil)
	return s
}

// NewFunction allocates an (initially empty) function object; the
// compiler fills in Chunk/Arity/UpvalueCount as it compiles the body.
func (h *Heap) NewFunction(name string) *ObjFunctionData {
	fn := &ObjFunctionData{Name: name, Chunk: NewChunk()}
	fn.Type = ObjFunction
	h.prepend(&fn.Obj)
	h.track(64)
	return fn
}

// NewNative allocates a native (Go-backed) callable.
func (h *Heap) NewNative(name string, arity int, fn NativeFn) *ObjNativeData {
	n := &ObjNativeData{Name: name, Arity: arity, Fn: fn}
	n.Type = ObjNative
	h.prepend(&n.Obj)
	h.track(48)
	return n
}

// NewClosure allocates a closure over fn with upvalueCount empty upvalue
// slots, ready for the VM to fill in via OP_CLOSURE.
func (h *Heap) NewClosure(fn *ObjFunctionData) *ObjClosureData {
	c := &ObjClosureData{Function: fn, Upvalues: make([]*ObjUpvalueData, fn.UpvalueCount)}
	c.Type = ObjClosure
	h.prepend(&c.Obj)
	h.track(int64(24 + 8*fn.UpvalueCount))
	return c
}

// NewUpvalue allocates an open upvalue pointing at slot.
func (h *Heap) NewUpvalue(slot *Value) *ObjUpvalueData {
	u := &ObjUpvalueData{Location: slot}
	u.Type = ObjUpvalue
	h.prepend(&u.Obj)
	h.track(40)
	return u
}

// NewClass allocates a class with an empty method table.
func (h *Heap) NewClass(name string) *ObjClassData {
	c := &ObjClassData{Name: name, Methods: NewTable()}
	c.Type = ObjClass
	h.prepend(&c.Obj)
	h.track(48)
	return c
}

// NewInstance allocates an instance of class with an empty field table.
func (h *Heap) NewInstance(class *ObjClassData) *ObjInstanceData {
	i := &ObjInstanceData{Class: class, Fields: NewTable()}
	i.Type = ObjInstance
	h.prepend(&i.Obj)
	h.track(48)
	return i
}

// NewBoundMethod allocates a bound method pairing receiver and method.
func (h *Heap) NewBoundMethod(receiver Value, method *ObjClosureData) *ObjBoundMethodData {
	b := &ObjBoundMethodData{Receiver: receiver, Method: method}
	b.Type = ObjBoundMethod
	h.prepend(&b.Obj)
	h.track(40)
	return b
}

// --- collection ---

// Collect runs one full tri-color mark-sweep pass (§4.2).
func (h *Heap) Collect() {
	if h.logGC {
		fmt.Fprintf(h.logWriter, "-- gc begin\n")
	}
	before := h.bytesAllocated

	h.markRoots()
	h.traceReferences()
	h.sweepStrings()
	h.sweep()

	h.nextGC = int64(float64(h.bytesAllocated) * h.growFactor)
	if h.nextGC < 1024 {
		h.nextGC = 1024
	}

	if h.logGC {
		fmt.Fprintf(h.logWriter, "-- gc end, collected %d bytes (from %d to %d) next at %d\n",
			before-h.bytesAllocated, before, h.bytesAllocated, h.nextGC)
	}
}

// markRoots marks every root enumerated in §4.2 phase 1.
func (h *Heap) markRoots() {
	if h.vm != nil {
		h.vm.markRoots(h)
	}
	if h.compiler != nil {
		for c := h.compiler; c != nil; c = c.enclosing {
			if c.function != nil {
				h.markObject(&c.function.Obj)
			}
		}
	}
}

// MarkValue marks v grey if it is a heap object, per the object-kind
// referent table in §4.2 phase 2.
func (h *Heap) MarkValue(v Value) {
	if v.IsObj() {
		h.markObject(v.AsObj())
	}
}

func (h *Heap) markObject(o *Obj) {
	if o == nil || o.IsMarked {
		return
	}
	o.IsMarked = true
	h.gray = append(h.gray, o)
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		o := h.gray[n]
		h.gray = h.gray[:n]
		h.blacken(o)
	}
}

// blacken marks every value o's kind holds, per §4.2 phase 2's table.
func (h *Heap) blacken(o *Obj) {
	switch o.Type {
	case ObjString, ObjNative:
		// no references
	case ObjFunction:
		fn := o.AsFunction()
		for _, c := range fn.Chunk.Constants {
			h.MarkValue(c)
		}
	case ObjClosure:
		c := o.AsClosure()
		h.markObject(&c.Function.Obj)
		for _, uv := range c.Upvalues {
			if uv != nil {
				h.markObject(&uv.Obj)
			}
		}
	case ObjUpvalue:
		h.MarkValue(o.AsUpvalue().Closed)
	case ObjClass:
		cls := o.AsClass()
		cls.Methods.Each(func(_ *ObjStringData, v Value) { h.MarkValue(v) })
	case ObjInstance:
		inst := o.AsInstance()
		h.markObject(&inst.Class.Obj)
		inst.Fields.Each(func(_ *ObjStringData, v Value) { h.MarkValue(v) })
	case ObjBoundMethod:
		bm := o.AsBoundMethod()
		h.MarkValue(bm.Receiver)
		h.markObject(&bm.Method.Obj)
	}
}

// sweepStrings removes white strings from the intern table before the
// sweep phase below frees them, per §4.2 phase 3.
func (h *Heap) sweepStrings() {
	var dead []*ObjStringData
	h.strings.Each(func(key *ObjStringData, _ Value) {
		if !key.IsMarked {
			dead = append(dead, key)
		}
	})
	for _, s := range dead {
		h.strings.Delete(s)
	}
}

// sweep walks the intrusive object list, unlinking every white object
// and flipping surviving black objects back to white for the next cycle.
func (h *Heap) sweep() {
	var prev *Obj
	o := h.objects
	for o != nil {
		if o.IsMarked {
			o.IsMarked = false
			prev = o
			o = o.Next
			continue
		}
		unreached := o
		o = o.Next
		if prev != nil {
			prev.Next = o
		} else {
			h.objects = o
		}
		h.bytesAllocated -= objSize(unreached)
	}
}

func objSize(o *Obj) int64 {
	switch o.Type {
	case ObjString:
		return int64(len(o.AsString().Chars)) + 32
	case ObjFunction:
		return 64
	case ObjNative:
		return 48
	case ObjClosure:
		return int64(24 + 8*len(o.AsClosure().Upvalues))
	case ObjUpvalue:
		return 40
	case ObjClass:
		return 48
	case ObjInstance:
		return 48
	case ObjBoundMethod:
		return 40
	default:
		return int64(unsafe.Sizeof(*o))
	}
}
