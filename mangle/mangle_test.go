package mangle

import (
	"testing"

	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/source"
	"github.com/delta-compiler/deltac/types"
)

func TestFunctionMangleIsPureFunctionOfNameAndParamTypes(t *testing.T) {
	a := Function("add", []types.Type{types.NewBasic("int32"), types.NewBasic("int32")})
	b := Function("add", []types.Type{types.NewBasic("int32"), types.NewBasic("int32")})
	if a != b {
		t.Fatalf("identical signatures mangled differently: %q vs %q", a, b)
	}

	c := Function("add", []types.Type{types.NewBasic("int64"), types.NewBasic("int32")})
	if a == c {
		t.Fatalf("differing param types mangled the same: %q", a)
	}
}

func TestParamNamesAreNotPartOfTheCoreMangle(t *testing.T) {
	sig := []types.Type{types.NewBasic("int32")}
	want := Function("f", sig)

	// Two declarations differing only in parameter names must mangle
	// identically under the core mangler (spec.md §4.3) and only
	// diverge once extended with parameter names.
	lhs := ast.NewFunctionDecl("f", source.Span{})
	lhs.Params = []*ast.ParamDecl{ast.NewParamDecl("lhs", source.Span{}, sig[0])}
	rhs := ast.NewFunctionDecl("f", source.Span{})
	rhs.Params = []*ast.ParamDecl{ast.NewParamDecl("rhs", source.Span{}, sig[0])}
	if got := Decl(lhs); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := Decl(rhs); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	ext1 := ExtendWithParamNames(want, []string{"lhs"})
	ext2 := ExtendWithParamNames(want, []string{"rhs"})
	if ext1 == ext2 {
		t.Fatalf("parameter-name-extended mangles should differ: %q", ext1)
	}
}

func TestInstantiationMangleIsOrderSensitive(t *testing.T) {
	a := Instantiation("Pair", []types.Type{types.NewBasic("int32"), types.NewBasic("bool")})
	b := Instantiation("Pair", []types.Type{types.NewBasic("bool"), types.NewBasic("int32")})
	if a == b {
		t.Fatalf("generic arg order must affect the mangle: %q", a)
	}
}

func TestMethodAndInitAndDeinit(t *testing.T) {
	sig := []types.Type{types.NewBasic("int32")}
	if got, want := Method("Vec", "push", sig), "Vec.push(int32)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got, want := Init("Vec", nil), "Vec.init()"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got, want := Deinit("Vec"), "Vec.deinit"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
