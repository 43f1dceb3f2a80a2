package module

import (
	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/source"
	"github.com/delta-compiler/deltac/types"
)

// NewUniverse builds a module holding one TypeDecl per built-in scalar
// (spec.md §6.3), each marked PassByValue. It declares no values: true,
// false and null are their own AST nodes (ast.BoolLit, ast.NullLit) and
// never looked up by name. A SourceFile sees this module only once it
// is added with AddImport; no SourceFile imports it implicitly.
func NewUniverse() *Module {
	m := NewModule("")
	m.IsStdlib = true
	for _, name := range types.BuiltinScalars {
		decl := ast.NewTypeDecl(name, source.Span{}, ast.StructTag)
		decl.PassByValue = true
		m.Table.AddDecl(decl)
	}
	return m
}
