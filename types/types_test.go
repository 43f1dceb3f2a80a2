package types

import "testing"

func TestEqualityRespectsGenericArgOrder(t *testing.T) {
	a := NewBasic("Pair", NewBasic("int32"), NewBasic("bool"))
	b := NewBasic("Pair", NewBasic("int32"), NewBasic("bool"))
	c := NewBasic("Pair", NewBasic("bool"), NewBasic("int32"))

	if !a.Equal(b, true) {
		t.Fatalf("expected %s to equal %s", a, b)
	}
	if a.Equal(c, true) {
		t.Fatalf("expected %s to not equal %s (generic arg order differs)", a, c)
	}
}

func TestMutabilityIsNotTransitive(t *testing.T) {
	pointee := NewBasic("int32").AsMutable()
	ptr := NewPointer(pointee, false)

	if ptr.IsMutable() {
		t.Fatalf("pointer slot should be immutable")
	}
	if !ptr.Pointee().IsMutable() {
		t.Fatalf("pointee mutability should be preserved independently of the pointer slot")
	}
}

func TestOptionalOfOptionalPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected NewOptional(NewOptional(...)) to panic")
		}
	}()
	NewOptional(NewOptional(NewBasic("int32"), false), false)
}

func TestReflexivePredicates(t *testing.T) {
	cases := []struct {
		t    Type
		pred func(Type) bool
	}{
		{NewBasic("int32"), Type.IsInteger},
		{NewBasic("int32"), Type.IsSigned},
		{NewBasic("uint32"), Type.IsUnsigned},
		{NewBasic("float64"), Type.IsFloatingPoint},
		{NewBasic("bool"), Type.IsBool},
		{NewBasic("void"), Type.IsVoid},
		{NewPointer(NewBasic("int32"), false), Type.IsPointer},
		{NewArray(NewBasic("int32"), 4), Type.IsArray},
		{NewUnsizedArray(NewBasic("int32")), Type.IsUnsizedArray},
		{NewOptional(NewBasic("int32"), false), Type.IsOptional},
	}
	for _, c := range cases {
		if !c.pred(c.t) {
			t.Errorf("predicate failed for %s", c.t)
		}
	}
}

func TestStringRoundTripsShapeForMangler(t *testing.T) {
	got := NewBasic("Box", NewBasic("int32")).String()
	want := "Box<int32>"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGetIterableElementTypeOnlyOnRangeAndArray(t *testing.T) {
	if _, ok := NewBasic("int32").GetIterableElementType(); ok {
		t.Fatalf("Basic should not be iterable")
	}
	if elem, ok := NewArray(NewBasic("int32"), 4).GetIterableElementType(); !ok || !elem.Equal(NewBasic("int32"), true) {
		t.Fatalf("Array should yield its element type")
	}
	if elem, ok := NewRange(NewBasic("int32"), true).GetIterableElementType(); !ok || !elem.Equal(NewBasic("int32"), true) {
		t.Fatalf("Range should yield its element type")
	}
}
