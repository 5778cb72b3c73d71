package vm

import "github.com/adamdb5/lox/internal/token"

// precedence orders binding strength from loosest to tightest, per §4.4's
// Pratt table; each level's infix rule only recurses into the next
// tighter level, giving left-associative binary operators for free.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LEFT_PAREN:    {(*Compiler).grouping, (*Compiler).call, precCall},
		token.RIGHT_PAREN:   {nil, nil, precNone},
		token.LEFT_BRACE:    {nil, nil, precNone},
		token.RIGHT_BRACE:   {nil, nil, precNone},
		token.COMMA:         {nil, nil, precNone},
		token.DOT:           {nil, (*Compiler).dot, precCall},
		token.MINUS:         {(*Compiler).unary, (*Compiler).binary, precTerm},
		token.PLUS:          {nil, (*Compiler).binary, precTerm},
		token.SEMICOLON:     {nil, nil, precNone},
		token.SLASH:         {nil, (*Compiler).binary, precFactor},
		token.STAR:          {nil, (*Compiler).binary, precFactor},
		token.BANG:          {(*Compiler).unary, nil, precNone},
		token.BANG_EQUAL:    {nil, (*Compiler).binary, precEquality},
		token.EQUAL:         {nil, nil, precNone},
		token.EQUAL_EQUAL:   {nil, (*Compiler).binary, precEquality},
		token.GREATER:       {nil, (*Compiler).binary, precComparison},
		token.GREATER_EQUAL: {nil, (*Compiler).binary, precComparison},
		token.LESS:          {nil, (*Compiler).binary, precComparison},
		token.LESS_EQUAL:    {nil, (*Compiler).binary, precComparison},
		token.IDENTIFIER:    {(*Compiler).variable, nil, precNone},
		token.STRING:        {(*Compiler).stringLiteral, nil, precNone},
		token.NUMBER:        {(*Compiler).number, nil, precNone},
		token.AND:           {nil, (*Compiler).and, precAnd},
		token.CLASS:         {nil, nil, precNone},
		token.ELSE:          {nil, nil, precNone},
		token.FALSE:         {(*Compiler).literal, nil, precNone},
		token.FOR:           {nil, nil, precNone},
		token.FUN:           {nil, nil, precNone},
		token.IF:            {nil, nil, precNone},
		token.NIL:           {(*Compiler).literal, nil, precNone},
		token.OR:            {nil, (*Compiler).or, precOr},
		token.PRINT:         {nil, nil, precNone},
		token.RETURN:        {nil, nil, precNone},
		token.SUPER:         {(*Compiler).super, nil, precNone},
		token.THIS:          {(*Compiler).this, nil, precNone},
		token.TRUE:          {(*Compiler).literal, nil, precNone},
		token.VAR:           {nil, nil, precNone},
		token.WHILE:         {nil, nil, precNone},
		token.EOF:           {nil, nil, precNone},
	}
}

func (c *Compiler) getRule(t token.Type) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{nil, nil, precNone}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence is the heart of the Pratt parser: it consumes a prefix
// expression for c.current, then keeps folding in infix operators whose
// binding power is at least prec, emitting bytecode as it goes instead
// of building any intermediate tree (§4.4).
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefixRule := c.getRule(c.previous.Type).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= c.getRule(c.current.Type).precedence {
		c.advance()
		infixRule := c.getRule(c.previous.Type).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	c.emitConstant(numberValue(c.previous.Lexeme), c.previous.Line)
}

// stringLiteral strips the surrounding quotes and interns the contents.
func (c *Compiler) stringLiteral(canAssign bool) {
	raw := c.previous.Lexeme
	contents := raw[1 : len(raw)-1]
	str := c.heap.InternString(contents)
	c.emitConstant(ObjVal(&str.Obj), c.previous.Line)
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emit(OpFalse, c.previous.Line)
	case token.TRUE:
		c.emit(OpTrue, c.previous.Line)
	case token.NIL:
		c.emit(OpNil, c.previous.Line)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.previous.Type
	line := c.previous.Line
	c.parsePrecedence(precUnary)

	switch opType {
	case token.BANG:
		c.emit(OpNot, line)
	case token.MINUS:
		c.emit(OpNegate, line)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.previous.Type
	line := c.previous.Line
	rule := c.getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQUAL:
		c.emit(OpEqual, line)
		c.emit(OpNot, line)
	case token.EQUAL_EQUAL:
		c.emit(OpEqual, line)
	case token.GREATER:
		c.emit(OpGreater, line)
	case token.GREATER_EQUAL:
		c.emit(OpLess, line)
		c.emit(OpNot, line)
	case token.LESS:
		c.emit(OpLess, line)
	case token.LESS_EQUAL:
		c.emit(OpGreater, line)
		c.emit(OpNot, line)
	case token.PLUS:
		c.emit(OpAdd, line)
	case token.MINUS:
		c.emit(OpSubtract, line)
	case token.STAR:
		c.emit(OpMultiply, line)
	case token.SLASH:
		c.emit(OpDivide, line)
	}
}

// and/or short-circuit by jumping around the right operand rather than
// always evaluating both sides and emitting a boolean op (§4.4).
func (c *Compiler) and(canAssign bool) {
	line := c.previous.Line
	endJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, line)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	line := c.previous.Line
	elseJump := c.emitJump(OpJumpIfFalse, line)
	endJump := c.emitJump(OpJump, line)
	c.patchJump(elseJump)
	c.emit(OpPop, line)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(canAssign bool) {
	line := c.previous.Line
	argCount := c.argumentList()
	c.emit(OpCall, line)
	c.emitByte(byte(argCount), line)
}

func (c *Compiler) argumentList() int {
	argCount := 0
	if !c.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if argCount == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return argCount
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENTIFIER, "Expect property name after '.'.")
	line := c.previous.Line
	nameIdx := c.identifierConstant(c.previous.Lexeme)

	switch {
	case canAssign && c.match(token.EQUAL):
		c.expression()
		c.emit(OpSetProperty, line)
		c.emitByte(byte(nameIdx), line)
	case c.match(token.LEFT_PAREN):
		argCount := c.argumentList()
		c.emit(OpInvoke, line)
		c.emitByte(byte(nameIdx), line)
		c.emitByte(byte(argCount), line)
	default:
		c.emit(OpGetProperty, line)
		c.emitByte(byte(nameIdx), line)
	}
}

func (c *Compiler) this(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variableNamed("this", false)
}

func (c *Compiler) super(canAssign bool) {
	line := c.previous.Line
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENTIFIER, "Expect superclass method name.")
	nameIdx := c.identifierConstant(c.previous.Lexeme)

	c.variableNamed("this", false)
	if c.match(token.LEFT_PAREN) {
		argCount := c.argumentList()
		c.variableNamed("super", false)
		c.emit(OpSuperInvoke, line)
		c.emitByte(byte(nameIdx), line)
		c.emitByte(byte(argCount), line)
	} else {
		c.variableNamed("super", false)
		c.emit(OpGetSuper, line)
		c.emitByte(byte(nameIdx), line)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.variableNamed(c.previous.Lexeme, canAssign)
}

// variableNamed emits code to read or, if canAssign and an '=' follows,
// write the variable name — resolving it as local, upvalue, or global
// in that order (§4.4).
func (c *Compiler) variableNamed(name string, canAssign bool) {
	line := c.previous.Line
	var getOp, setOp Opcode
	var arg int

	if slot := c.resolveLocal(name); slot != -1 {
		if c.locals[slot].Depth == -1 {
			c.error("Can't read local variable in its own initializer.")
		}
		getOp, setOp, arg = OpGetLocal, OpSetLocal, slot
	} else if up := c.resolveUpvalue(name); up != -1 {
		getOp, setOp, arg = OpGetUpvalue, OpSetUpvalue, up
	} else {
		getOp, setOp, arg = OpGetGlobal, OpSetGlobal, c.identifierConstant(name)
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emit(setOp, line)
	} else {
		c.emit(getOp, line)
	}
	c.emitByte(byte(arg), line)
}
