package irgen

import (
	"math/big"
	"strings"
	"testing"

	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/module"
	"github.com/delta-compiler/deltac/source"
	"github.com/delta-compiler/deltac/types"
)

func intLit(n int64, t types.Type) *ast.IntLit {
	e := &ast.IntLit{Value: big.NewInt(n)}
	e.SetType(t)
	return e
}

func varExpr(name string, t types.Type) *ast.Var {
	e := ast.NewVar(name, source.Span{})
	e.SetType(t)
	return e
}

// buildAddModule builds the checked AST sema would hand irgen for:
//
//	func add(a: int32, b: int32) -> int32 { return a + b }
func buildAddModule() *module.Module {
	span := source.Span{}
	int32T := types.NewBasic("int32")

	fn := ast.NewFunctionDecl("add", span)
	fn.Params = []*ast.ParamDecl{
		ast.NewParamDecl("a", span, int32T),
		ast.NewParamDecl("b", span, int32T),
	}
	fn.Return = int32T

	bin := &ast.Binary{Op: "+", Left: varExpr("a", int32T), Right: varExpr("b", int32T)}
	bin.SetType(int32T)
	fn.Body = []ast.Statement{&ast.Return{Value: bin}}

	mod := module.NewModule("arith")
	f := mod.NewSourceFile()
	f.AddDecl(fn)
	return mod
}

func TestGenerateLowersAFunctionWithAnIntegerAdd(t *testing.T) {
	out, err := Generate(buildAddModule())
	if err != nil {
		t.Fatalf("Generate returned an error: %v", err)
	}
	if len(out.Funcs) != 1 {
		t.Fatalf("got %d funcs, want 1", len(out.Funcs))
	}

	fn := out.Funcs[0]
	if len(fn.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(fn.Params))
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1 (no control flow in this body)", len(fn.Blocks))
	}

	ir := out.String()
	if !strings.Contains(ir, "add") {
		t.Fatalf("lowered IR does not reference the function name:\n%s", ir)
	}
}

func TestGenerateCachesRepeatedCallsToTheSameSignature(t *testing.T) {
	span := source.Span{}
	int32T := types.NewBasic("int32")

	callee := ast.NewFunctionDecl("inc", span)
	callee.Params = []*ast.ParamDecl{ast.NewParamDecl("x", span, int32T)}
	callee.Return = int32T
	one := intLit(1, int32T)
	bin := &ast.Binary{Op: "+", Left: varExpr("x", int32T), Right: one}
	bin.SetType(int32T)
	callee.Body = []ast.Statement{&ast.Return{Value: bin}}

	caller := ast.NewFunctionDecl("twice", span)
	caller.Params = []*ast.ParamDecl{ast.NewParamDecl("x", span, int32T)}
	caller.Return = int32T

	arg := varExpr("x", int32T)
	firstCall := &ast.Call{Function: ast.NewVar("inc", span), Args: []ast.CallArg{{Value: arg}}}
	firstCall.SetCallee(callee)
	firstCall.MangledName = "inc(int32)"
	firstCall.SetType(int32T)

	secondCall := &ast.Call{Function: ast.NewVar("inc", span), Args: []ast.CallArg{{Value: firstCall}}}
	secondCall.SetCallee(callee)
	secondCall.MangledName = "inc(int32)"
	secondCall.SetType(int32T)

	caller.Body = []ast.Statement{&ast.Return{Value: secondCall}}

	mod := module.NewModule("arith")
	f := mod.NewSourceFile()
	f.AddDecl(callee)
	f.AddDecl(caller)

	out, err := Generate(mod)
	if err != nil {
		t.Fatalf("Generate returned an error: %v", err)
	}
	if len(out.Funcs) != 2 {
		t.Fatalf("got %d funcs, want 2 (one prototype shared by both calls)", len(out.Funcs))
	}
}

func TestGenerateReportsUnimplementedForASizeofExpression(t *testing.T) {
	span := source.Span{}
	fn := ast.NewFunctionDecl("bad", span)
	fn.Return = types.NewBasic("void")
	fn.Body = []ast.Statement{&ast.ExprStmt{Value: &ast.Sizeof{}}}

	mod := module.NewModule("m")
	f := mod.NewSourceFile()
	f.AddDecl(fn)

	if _, err := Generate(mod); err == nil {
		t.Fatalf("expected an unimplemented error for a Sizeof expression, got nil")
	}
}
