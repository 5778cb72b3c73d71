package vm

// beginScope opens a new lexical scope.
func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope closes the current scope, popping (or closing, if captured)
// every local declared inside it in reverse declaration order.
func (c *Compiler) endScope(line int) {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.IsCaptured {
			c.emit(OpCloseUpvalue, line)
		} else {
			c.emit(OpPop, line)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// declareLocal adds name as a new local in the current scope. Lox
// forbids redeclaring a name already bound in the very same scope.
func (c *Compiler) declareLocal(name string) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		local := c.locals[i]
		if local.Depth != -1 && local.Depth < c.scopeDepth {
			break
		}
		if local.Name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	if len(c.locals) >= 256 {
		c.error("Too many local variables in function.")
		return
	}
	// Depth -1 marks the local as declared but not yet initialized, so a
	// variable's own initializer cannot resolve to itself (§4.4).
	c.locals = append(c.locals, Local{Name: name, Depth: -1})
}

// resolveLocal returns the stack slot of name within this function, or
// -1 if it is not a local here (global or outer-function variable).
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			return i
		}
	}
	return -1
}

// resolveUpvalue looks for name in every enclosing function in turn,
// capturing it as an upvalue chain if found — each intermediate
// function along the way also gets an upvalue entry pointing at the
// next one in, per §4.4's "upvalue chaining" design.
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if slot := c.enclosing.resolveLocal(name); slot != -1 {
		c.enclosing.locals[slot].IsCaptured = true
		return c.addUpvalue(uint8(slot), true)
	}
	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(uint8(up), false)
	}
	return -1
}

func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= 256 {
		c.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, Upvalue{Index: index, IsLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

// markInitialized flags the most recently declared local as usable —
// split from declareLocal so a variable's own initializer expression
// cannot see the variable itself (e.g. `var a = a;` is an error).
func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].Depth = c.scopeDepth
}
