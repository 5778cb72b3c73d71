package vm

import "github.com/adamdb5/lox/internal/token"

// declaration parses one top-level or block-level form: a class, function,
// or variable declaration, or else falls through to a plain statement.
// On a parse error it resynchronizes at the next statement boundary so a
// single mistake does not cascade (§4.4, §7).
func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope(c.previous.Line)
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	line := c.previous.Line
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emit(OpPrint, line)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	line := c.previous.Line
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emit(OpPop, line)
}

func (c *Compiler) block() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) ifStatement() {
	line := c.previous.Line
	c.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, line)
	c.statement()

	elseJump := c.emitJump(OpJump, c.previous.Line)
	c.patchJump(thenJump)
	c.emit(OpPop, c.previous.Line)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) returnStatement() {
	line := c.previous.Line
	if c.funcType == TypeScript {
		c.error("Can't return from top-level code.")
	}

	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}

	if c.funcType == TypeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emit(OpReturn, line)
}

// varDeclaration parses `var name [= initializer];`. A missing
// initializer defaults the variable to nil, matching Lox's semantics.
func (c *Compiler) varDeclaration() {
	c.consume(token.IDENTIFIER, "Expect variable name.")
	name := c.previous.Lexeme
	line := c.previous.Line

	if c.scopeDepth > 0 {
		c.declareLocal(name)
	}

	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emit(OpNil, line)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	idx := c.identifierConstant(name)
	c.emit(OpDefineGlobal, c.previous.Line)
	c.emitByte(byte(idx), c.previous.Line)
}

// funDeclaration parses `fun name(params) { body }`, binding name before
// compiling the body so the function can recurse into itself.
func (c *Compiler) funDeclaration() {
	c.consume(token.IDENTIFIER, "Expect function name.")
	name := c.previous.Lexeme
	line := c.previous.Line

	if c.scopeDepth > 0 {
		c.declareLocal(name)
		c.markInitialized()
	}

	c.function_(TypeFunction, name)

	if c.scopeDepth > 0 {
		return
	}
	idx := c.identifierConstant(name)
	c.emit(OpDefineGlobal, line)
	c.emitByte(byte(idx), line)
}

// function_ compiles a function's parameter list and body in a fresh
// nested Compiler, then emits OP_CLOSURE to capture any upvalues it
// resolved against its enclosing scopes (§4.4/§4.5).
func (c *Compiler) function_(funcType FunctionType, name string) {
	inner := newCompiler(c, c.heap, funcType, name)
	inner.beginScope()

	inner.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !inner.check(token.RIGHT_PAREN) {
		for {
			inner.function.Arity++
			if inner.function.Arity > 255 {
				inner.errorAtCurrent("Can't have more than 255 parameters.")
			}
			inner.consume(token.IDENTIFIER, "Expect parameter name.")
			inner.declareLocal(inner.previous.Lexeme)
			inner.markInitialized()
			if !inner.match(token.COMMA) {
				break
			}
		}
	}
	inner.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	inner.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	inner.block()

	fn := inner.endCompiler()
	c.current, c.previous = inner.current, inner.previous
	c.hadError = c.hadError || inner.hadError
	c.panicMode = inner.panicMode
	c.errs = append(c.errs, inner.errs...)

	fnIdx := c.makeConstant(ObjVal(&fn.Obj))
	line := c.previous.Line
	c.emit(OpClosure, line)
	c.emitByte(byte(fnIdx), line)
	for _, uv := range inner.upvalues {
		if uv.IsLocal {
			c.emitByte(1, line)
		} else {
			c.emitByte(0, line)
		}
		c.emitByte(uv.Index, line)
	}
}

// classDeclaration parses `class Name [< Superclass] { methods... }`.
// The superclass, if any, is bound to a synthetic local named "super" in
// an extra scope wrapping the class body, so methods can close over it
// the same way any other upvalue is captured (§4.4).
func (c *Compiler) classDeclaration() {
	c.consume(token.IDENTIFIER, "Expect class name.")
	name := c.previous.Lexeme
	line := c.previous.Line
	nameIdx := c.identifierConstant(name)

	if c.scopeDepth > 0 {
		c.declareLocal(name)
		c.markInitialized()
	}

	c.emit(OpClass, line)
	c.emitByte(byte(nameIdx), line)

	if c.scopeDepth == 0 {
		idx := c.identifierConstant(name)
		c.emit(OpDefineGlobal, line)
		c.emitByte(byte(idx), line)
	}

	classComp := &classCompiler{enclosing: c.class}
	c.class = classComp

	if c.match(token.LESS) {
		c.consume(token.IDENTIFIER, "Expect superclass name.")
		c.variable(false)
		if c.previous.Lexeme == name {
			c.error("A class can't inherit from itself.")
		}

		c.beginScope()
		c.locals = append(c.locals, Local{Name: "super", Depth: c.scopeDepth})

		c.variableNamed(name, false)
		c.emit(OpInherit, c.previous.Line)
		classComp.hasSuperclass = true
	}

	c.variableNamed(name, false)

	c.consume(token.LEFT_BRACE, "Expect '{' before class body.")
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after class body.")
	c.emit(OpPop, c.previous.Line)

	if classComp.hasSuperclass {
		c.endScope(c.previous.Line)
	}

	c.class = c.class.enclosing
}

func (c *Compiler) method() {
	c.consume(token.IDENTIFIER, "Expect method name.")
	name := c.previous.Lexeme
	line := c.previous.Line
	nameIdx := c.identifierConstant(name)

	funcType := TypeMethod
	if name == "init" {
		funcType = TypeInitializer
	}
	c.function_(funcType, name)

	c.emit(OpMethod, line)
	c.emitByte(byte(nameIdx), line)
}
