package vm

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind identifies the logical kind of a Value, independent of which
// physical layout (boxed or NaN-boxed) backs it. Callers that need to
// branch on value kind use Kind(), never the layout-specific internals.
type ValueKind int

const (
	KindNil ValueKind = iota
	KindBool
	KindNumber
	KindObj
)

// Kind reports the logical kind of v.
func (v Value) Kind() ValueKind {
	switch {
	case v.IsNil():
		return KindNil
	case v.IsBool():
		return KindBool
	case v.IsNumber():
		return KindNumber
	case v.IsObj():
		return KindObj
	default:
		return KindNil
	}
}

// IsFalsey implements Lox truthiness: nil and false are falsey, everything
// else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements the typed equality of §4.5: different kinds are never
// equal; strings compare by pointer identity (safe because they are
// interned); numbers compare by IEEE-754 equality; booleans by value.
func Equal(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() == b.AsNumber()
	}
	if a.IsBool() && b.IsBool() {
		return a.AsBool() == b.AsBool()
	}
	if a.IsNil() && b.IsNil() {
		return true
	}
	if a.IsObj() && b.IsObj() {
		return a.AsObj() == b.AsObj()
	}
	return false
}

// Stringify renders v the way `print` and string-conversion do, per §6.
func Stringify(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return formatNumber(v.AsNumber())
	case v.IsObj():
		return stringifyObj(v.AsObj())
	default:
		return "<invalid value>"
	}
}

// formatNumber renders the shortest round-trip decimal, dropping a
// trailing ".0" for integral values, as required by §6.
func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e17 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func stringifyObj(o *Obj) string {
	switch o.Type {
	case ObjString:
		return o.AsString().Chars
	case ObjFunction:
		fn := o.AsFunction()
		if fn.Name == "" {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", fn.Name)
	case ObjNative:
		return "<native fn>"
	case ObjClosure:
		return stringifyObj(&o.AsClosure().Function.Obj)
	case ObjUpvalue:
		return "<upvalue>"
	case ObjClass:
		return o.AsClass().Name
	case ObjInstance:
		return fmt.Sprintf("%s instance", o.AsInstance().Class.Name)
	case ObjBoundMethod:
		return stringifyObj(&o.AsBoundMethod().Method.Obj)
	default:
		return "<object>"
	}
}
