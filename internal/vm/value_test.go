package vm

import "testing"

func TestIsFalsey(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", Nil, true},
		{"false", Bool(false), true},
		{"true", Bool(true), false},
		{"zero", Number(0), false},
		{"number", Number(1.5), false},
	}
	for _, c := range cases {
		if got := c.v.IsFalsey(); got != c.want {
			t.Errorf("%s: IsFalsey() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestEqualAcrossKinds(t *testing.T) {
	if !Equal(Number(3), Number(3)) {
		t.Error("3 == 3 should be true")
	}
	if Equal(Number(3), Number(4)) {
		t.Error("3 == 4 should be false")
	}
	if !Equal(Nil, Nil) {
		t.Error("nil == nil should be true")
	}
	if Equal(Nil, Bool(false)) {
		t.Error("nil == false should be false (different kinds)")
	}
	if Equal(Number(0), Bool(false)) {
		t.Error("0 == false should be false (different kinds)")
	}
	if !Equal(Bool(true), Bool(true)) {
		t.Error("true == true should be true")
	}
}

func TestEqualStringsByInternedIdentity(t *testing.T) {
	h := NewHeap(HeapOptions{})
	a := h.InternString("hello")
	b := h.InternString("hello")
	c := h.InternString("world")
	if !Equal(ObjVal(&a.Obj), ObjVal(&b.Obj)) {
		t.Error("two interned copies of the same content should be equal")
	}
	if Equal(ObjVal(&a.Obj), ObjVal(&c.Obj)) {
		t.Error("different interned strings should not be equal")
	}
}

func TestStringifyPrimitives(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Number(3), "3"},
		{Number(3.25), "3.25"},
		{Number(-0.5), "-0.5"},
	}
	for _, c := range cases {
		if got := Stringify(c.v); got != c.want {
			t.Errorf("Stringify(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestStringifyObjectKinds(t *testing.T) {
	h := NewHeap(HeapOptions{})
	str := h.InternString("hi")
	if got := Stringify(ObjVal(&str.Obj)); got != "hi" {
		t.Errorf("string Stringify = %q, want hi", got)
	}

	fn := h.NewFunction("greet")
	if got := Stringify(ObjVal(&fn.Obj)); got != "<fn greet>" {
		t.Errorf("function Stringify = %q, want <fn greet>", got)
	}

	script := h.NewFunction("")
	if got := Stringify(ObjVal(&script.Obj)); got != "<script>" {
		t.Errorf("top-level function Stringify = %q, want <script>", got)
	}

	class := h.NewClass("Animal")
	if got := Stringify(ObjVal(&class.Obj)); got != "Animal" {
		t.Errorf("class Stringify = %q, want Animal", got)
	}

	instance := h.NewInstance(class)
	if got := Stringify(ObjVal(&instance.Obj)); got != "Animal instance" {
		t.Errorf("instance Stringify = %q, want Animal instance", got)
	}
}
