package vm

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/adamdb5/lox/internal/lexer"
	"github.com/adamdb5/lox/internal/token"
)

// FunctionType distinguishes the kind of body a Compiler is compiling,
// since scripts, plain functions, methods, and initializers each seed
// their reserved local slot 0 differently.
type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

// Local is a compile-time record of a declared local variable. Slot is
// its position is implicit: it is this Local's index within the
// enclosing Compiler's locals slice, which is also its runtime stack
// slot relative to the current CallFrame's base (§4.4).
type Local struct {
	Name       string
	Depth      int
	IsCaptured bool
}

// Upvalue is a compile-time record of a variable a function captures
// from an enclosing function, resolved once at compile time so the
// runtime closure creation (OP_CLOSURE) needs no name lookup (§4.4/§4.5).
type Upvalue struct {
	Index   uint8
	IsLocal bool
}

// classCompiler tracks the innermost class being compiled, so `this`
// and `super` resolve correctly and nested classes restore their
// enclosing class's context on exit (§4.4).
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Compiler is a single-pass Pratt parser that both parses Lox source and
// emits bytecode directly into a Chunk as it goes — there is no
// intermediate AST (§4.4). One Compiler compiles one function body (or
// the top-level script); nested functions get their own Compiler linked
// via enclosing, mirroring the runtime CallFrame stack one level up.
type Compiler struct {
	heap *Heap
	lex  *lexer.Lexer

	previous token.Token
	current  token.Token

	hadError  bool
	panicMode bool
	errs      []error

	function  *ObjFunctionData
	funcType  FunctionType
	enclosing *Compiler

	locals     []Local
	scopeDepth int

	upvalues []Upvalue

	class *classCompiler
}

// Compile parses source top to bottom and returns the compiled script
// function, ready to be wrapped in a closure and run. A non-nil error
// means parsing or code generation failed and the function must not be
// run; it joins every syntax error collected during panic-mode recovery
// (§4.4, §7).
func Compile(source string, heap *Heap) (*ObjFunctionData, error) {
	c := newCompiler(nil, heap, TypeScript, "")
	c.lex = lexer.New(source)
	defer heap.BindCompiler(nil)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.consume(token.EOF, "Expect end of expression.")
	fn := c.endCompiler()

	if c.hadError {
		return nil, errors.Join(c.errs...)
	}
	return fn, nil
}

func newCompiler(enclosing *Compiler, heap *Heap, funcType FunctionType, name string) *Compiler {
	c := &Compiler{
		heap:      heap,
		enclosing: enclosing,
		funcType:  funcType,
		function:  heap.NewFunction(name),
		locals:    make([]Local, 0, 8),
	}
	if enclosing != nil {
		c.lex = enclosing.lex
		c.class = enclosing.class
		c.previous, c.current = enclosing.previous, enclosing.current
	}
	// Slot 0 is reserved: "this" for methods/initializers, otherwise an
	// unnamed slot the user can never refer to (clox's convention).
	slotName := ""
	if funcType == TypeMethod || funcType == TypeInitializer {
		slotName = "this"
	}
	c.locals = append(c.locals, Local{Name: slotName, Depth: 0})
	heap.BindCompiler(c)
	return c
}

func (c *Compiler) currentChunk() *Chunk {
	return c.function.Chunk
}

// endCompiler closes off the function body with an implicit return and
// hands back to the enclosing compiler, if any.
func (c *Compiler) endCompiler() *ObjFunctionData {
	c.emitReturn()
	fn := c.function
	if c.heap.printCode && !c.hadError {
		name := fn.Name
		if name == "" {
			name = "<script>"
		}
		fmt.Fprint(c.heap.logWriter, Disassemble(fn.Chunk, name))
	}
	c.heap.BindCompiler(c.enclosing)
	return fn
}

func (c *Compiler) emitReturn() {
	if c.funcType == TypeInitializer {
		c.emit(OpGetLocal, c.previous.Line)
		c.currentChunk().Write(0, c.previous.Line)
	} else {
		c.emit(OpNil, c.previous.Line)
	}
	c.emit(OpReturn, c.previous.Line)
}

// --- token stream ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	var where string
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.ERROR:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.errs = append(c.errs, fmt.Errorf("[line %d] Error%s: %s", tok.Line, where, message))
}

// synchronize skips tokens after a parse error until it finds a plausible
// statement boundary, so one mistake does not cascade into a wall of
// spurious errors (§4.4, §7).
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- emit helpers ---

func (c *Compiler) emit(op Opcode, line int) {
	c.currentChunk().WriteOp(op, line)
}

func (c *Compiler) emitByte(b byte, line int) {
	c.currentChunk().Write(b, line)
}

// emitConstant adds a Value to the constant pool and emits OP_CONSTANT
// for it, reporting an error instead of silently wrapping past the 256-constant
// ceiling a single byte operand can address.
func (c *Compiler) emitConstant(v Value, line int) {
	idx := c.makeConstant(v)
	c.emit(OpConstant, line)
	c.emitByte(byte(idx), line)
}

func (c *Compiler) makeConstant(v Value) int {
	idx := c.currentChunk().AddConstant(v)
	if idx > 255 {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return idx
}

func (c *Compiler) identifierConstant(name string) int {
	return c.makeConstant(ObjVal(&c.heap.InternString(name).Obj))
}

func (c *Compiler) emitJump(op Opcode, line int) int {
	c.emit(op, line)
	c.emitByte(0xff, line)
	c.emitByte(0xff, line)
	return c.currentChunk().Len() - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := c.currentChunk().Len() - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
		return
	}
	c.currentChunk().Code[offset] = byte(jump >> 8)
	c.currentChunk().Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int, line int) {
	c.emit(OpLoop, line)
	offset := c.currentChunk().Len() - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset>>8), line)
	c.emitByte(byte(offset), line)
}

// numberValue parses a Lox numeric literal's lexeme. The scanner only
// ever produces digits and at most one interior '.', so the parse
// cannot fail.
func numberValue(lexeme string) Value {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return Number(n)
}
