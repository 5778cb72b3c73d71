package vm

import (
	"strings"
	"testing"
)

func compileOK(t *testing.T, source string) *ObjFunctionData {
	t.Helper()
	h := NewHeap(HeapOptions{})
	fn, err := Compile(source, h)
	if err != nil {
		t.Fatalf("Compile(%q) unexpected error: %v", source, err)
	}
	return fn
}

func compileErr(t *testing.T, source string) error {
	t.Helper()
	h := NewHeap(HeapOptions{})
	_, err := Compile(source, h)
	if err == nil {
		t.Fatalf("Compile(%q) expected an error, got none", source)
	}
	return err
}

func TestCompileValidPrograms(t *testing.T) {
	sources := []string{
		`print 1 + 2;`,
		`var a = 1; var b = 2; print a + b;`,
		`if (true) { print "yes"; } else { print "no"; }`,
		`for (var i = 0; i < 3; i = i + 1) { print i; }`,
		`while (false) { print "never"; }`,
		`fun add(a, b) { return a + b; } print add(1, 2);`,
		`class Animal { speak() { print "..."; } } var a = Animal(); a.speak();`,
		`class Animal { init(name) { this.name = name; } } class Dog < Animal {} var d = Dog("Rex");`,
		`fun outer() { var x = 1; fun inner() { return x; } return inner; } print outer()();`,
	}
	for _, src := range sources {
		compileOK(t, src)
	}
}

func TestCompileUndeclaredReturnOutsideFunction(t *testing.T) {
	err := compileErr(t, `return 1;`)
	if !strings.Contains(err.Error(), "return") {
		t.Errorf("error = %v, want mention of top-level return", err)
	}
}

func TestCompileReturnValueFromInitializer(t *testing.T) {
	err := compileErr(t, `class A { init() { return 1; } }`)
	if !strings.Contains(err.Error(), "initializer") {
		t.Errorf("error = %v, want mention of initializer", err)
	}
}

func TestCompileSelfReferentialLocalInitializer(t *testing.T) {
	err := compileErr(t, `{ var a = a; }`)
	if !strings.Contains(err.Error(), "own initializer") {
		t.Errorf("error = %v, want mention of own initializer", err)
	}
}

func TestCompileDuplicateLocalInSameScope(t *testing.T) {
	err := compileErr(t, `{ var a = 1; var a = 2; }`)
	if !strings.Contains(err.Error(), "Already a variable") {
		t.Errorf("error = %v, want redeclaration message", err)
	}
}

func TestCompileThisOutsideClass(t *testing.T) {
	err := compileErr(t, `fun f() { print this; }`)
	if !strings.Contains(err.Error(), "this") {
		t.Errorf("error = %v, want mention of this", err)
	}
}

func TestCompileSuperOutsideClass(t *testing.T) {
	err := compileErr(t, `fun f() { print super.method(); }`)
	if !strings.Contains(err.Error(), "super") {
		t.Errorf("error = %v, want mention of super", err)
	}
}

func TestCompileSuperWithoutSuperclass(t *testing.T) {
	err := compileErr(t, `class A { m() { print super.m(); } }`)
	if !strings.Contains(err.Error(), "superclass") {
		t.Errorf("error = %v, want mention of superclass", err)
	}
}

func TestCompileClassInheritsFromItself(t *testing.T) {
	err := compileErr(t, `class A < A {}`)
	if !strings.Contains(err.Error(), "inherit from itself") {
		t.Errorf("error = %v, want self-inheritance message", err)
	}
}

func TestCompileTooManyLocalsInFunction(t *testing.T) {
	var b strings.Builder
	b.WriteString("fun f() {\n")
	for i := 0; i < 257; i++ {
		b.WriteString("var v")
		b.WriteString(itoa(i))
		b.WriteString(" = 0;\n")
	}
	b.WriteString("}\n")
	err := compileErr(t, b.String())
	if !strings.Contains(err.Error(), "Too many local variables") {
		t.Errorf("error = %v, want too-many-locals message", err)
	}
}

func TestCompileTooManyArguments(t *testing.T) {
	// Arguments read a local so they add no constants: 256 literal
	// arguments would overflow the constant pool before the 256th
	// argument is reached.
	var args strings.Builder
	for i := 0; i < 256; i++ {
		if i > 0 {
			args.WriteString(", ")
		}
		args.WriteString("a")
	}
	src := "fun f() {} { var a = 1; f(" + args.String() + "); }"
	err := compileErr(t, src)
	if !strings.Contains(err.Error(), "arguments") {
		t.Errorf("error = %v, want too-many-arguments message", err)
	}
}

func TestCompileTooManyParameters(t *testing.T) {
	var params strings.Builder
	for i := 0; i < 256; i++ {
		if i > 0 {
			params.WriteString(", ")
		}
		params.WriteString("p")
		params.WriteString(itoa(i))
	}
	src := "fun f(" + params.String() + ") {}"
	err := compileErr(t, src)
	if !strings.Contains(err.Error(), "parameters") {
		t.Errorf("error = %v, want too-many-parameters message", err)
	}
}

func TestCompileSyntaxErrorRecoversAtNextStatement(t *testing.T) {
	// A panic-mode compile collects every independent error instead of
	// stopping at the first, per the synchronize() boundary on ';'.
	_, err := Compile(`var ; var ;`, NewHeap(HeapOptions{}))
	if err == nil {
		t.Fatal("expected a compile error")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected errors.Join result, got %T", err)
	}
	if len(joined.Unwrap()) < 2 {
		t.Errorf("expected at least 2 independent errors, got %d", len(joined.Unwrap()))
	}
}

func TestCompileEmptyProgramProducesScriptFunction(t *testing.T) {
	fn := compileOK(t, "")
	if fn.Name != "" {
		t.Errorf("top-level function name = %q, want empty", fn.Name)
	}
	if fn.Arity != 0 {
		t.Errorf("top-level arity = %d, want 0", fn.Arity)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
