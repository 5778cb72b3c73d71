package vm

import "github.com/adamdb5/lox/internal/token"

func (c *Compiler) whileStatement() {
	line := c.previous.Line
	loopStart := c.currentChunk().Len()

	c.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, line)
	c.statement()
	c.emitLoop(loopStart, c.previous.Line)

	c.patchJump(exitJump)
	c.emit(OpPop, c.previous.Line)
}

// forStatement desugars `for (init; cond; incr) body` into the
// equivalent while-loop bytecode: the initializer runs once, the
// increment is spliced in as a jump-over-and-loop-back around the body,
// matching clox's single-pass desugaring rather than a dedicated opcode
// (§4.4).
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.currentChunk().Len()
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OpJumpIfFalse, c.previous.Line)
		c.emit(OpPop, c.previous.Line)
	}

	if !c.check(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(OpJump, c.previous.Line)
		incrementStart := c.currentChunk().Len()
		c.expression()
		c.emit(OpPop, c.previous.Line)
		c.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart, c.previous.Line)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")
	}

	c.statement()
	c.emitLoop(loopStart, c.previous.Line)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(OpPop, c.previous.Line)
	}

	c.endScope(c.previous.Line)
}
