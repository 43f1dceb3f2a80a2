package module

import (
	"testing"

	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/source"
)

func TestResolvePrefersOwnModuleWhenImportsAreEmpty(t *testing.T) {
	m := NewModule("main")
	fn := ast.NewFunctionDecl("f", source.Span{})
	m.Table.AddDecl(fn)

	file := m.NewSourceFile()
	got := file.Resolve("f")
	if len(got) != 1 || got[0] != fn {
		t.Fatalf("expected own-module declaration to resolve, got %v", got)
	}
}

func TestResolveConcatenatesOverloadsFromMultipleModules(t *testing.T) {
	own := NewModule("main")
	file := own.NewSourceFile()

	imp1 := NewModule("a")
	f1 := ast.NewFunctionDecl("f", source.Span{})
	imp1.Table.AddDecl(f1)

	imp2 := NewModule("b")
	f2 := ast.NewFunctionDecl("f", source.Span{})
	imp2.Table.AddDecl(f2)

	file.AddImport(imp1)
	file.AddImport(imp2)

	got := file.Resolve("f")
	if len(got) != 2 {
		t.Fatalf("expected both imports' overloads concatenated, got %d", len(got))
	}
}

func TestIdentifierReplacementsAreAppliedBeforeLookup(t *testing.T) {
	m := NewModule("main")
	real := ast.NewFunctionDecl("real_name", source.Span{})
	m.Table.AddDecl(real)
	m.Table.AddIdentifierReplacement("ALIAS", "real_name")

	file := m.NewSourceFile()
	got := file.Resolve("ALIAS")
	if len(got) != 1 || got[0] != real {
		t.Fatalf("expected alias to resolve through the replacement, got %v", got)
	}
}
