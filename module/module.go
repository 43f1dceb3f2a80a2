// Package module is the symbol table and module system (spec.md §3, §4.4):
// a scoped, multimap name→declaration store, one per Module, plus
// per-SourceFile import composition and identifier replacements.
package module

import (
	"github.com/delta-compiler/deltac/ast"
)

// SymbolTable maps a name to the ordered sequence of declarations found
// under it, preserving declaration order so overload resolution sees a
// stable candidate order (spec.md §3, §4.4).
type SymbolTable struct {
	byName map[string][]ast.Decl
	// replacements are foreign #define-style aliases, consulted before
	// lookup (spec.md §3, §4.4).
	replacements map[string]string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byName: make(map[string][]ast.Decl), replacements: make(map[string]string)}
}

// Add appends decl under every name by which it should be findable.
// Most declarations are findable under one name; this is exposed as a
// single name so instantiation (which registers a clone under its
// mangled name, spec.md §4.5.5) can reuse it uniformly.
func (t *SymbolTable) Add(name string, decl ast.Decl) {
	t.byName[name] = append(t.byName[name], decl)
}

// AddDecl adds decl under its own DeclName().
func (t *SymbolTable) AddDecl(decl ast.Decl) {
	t.Add(decl.DeclName(), decl)
}

// Find returns every declaration registered under name, in
// declaration order.
func (t *SymbolTable) Find(name string) []ast.Decl {
	return t.byName[name]
}

// FindForReceiver restricts Find to methods/inits whose receiver type
// declaration is receiver (spec.md §4.4).
func (t *SymbolTable) FindForReceiver(name string, receiver *ast.TypeDecl) []ast.Decl {
	var out []ast.Decl
	for _, d := range t.byName[name] {
		switch v := d.(type) {
		case *ast.MethodDecl:
			if v.Receiver == receiver {
				out = append(out, d)
			}
		case *ast.InitDecl:
			if v.Receiver == receiver {
				out = append(out, d)
			}
		case *ast.FunctionTemplateDecl:
			if v.Receiver == receiver {
				out = append(out, d)
			}
		default:
			// plain function/var/field candidates never carry a
			// receiver restriction.
			out = append(out, d)
		}
	}
	return out
}

func (t *SymbolTable) AddIdentifierReplacement(from, to string) {
	t.replacements[from] = to
}

// ApplyReplacements follows the identifier-replacement chain to a fixed
// point (spec.md §4.4); foreign #define aliases may chain to another
// alias before landing on a real declaration name.
func (t *SymbolTable) ApplyReplacements(name string) string {
	seen := map[string]bool{}
	for {
		next, ok := t.replacements[name]
		if !ok || seen[next] {
			return name
		}
		seen[next] = true
		name = next
	}
}

// Module owns a SymbolTable and the set of SourceFiles parsed into it
// (spec.md §3 "Ownership").
type Module struct {
	Name    string
	Table   *SymbolTable
	Files   []*SourceFile
	// IsStdlib marks the standard-library module so overload
	// resolution's tie-breaker (b) (spec.md §4.5.3) can prefer it.
	IsStdlib bool
	// IsForeign marks a module synthesized by cimport (spec.md §6.2,
	// §4.5.3 tie-breaker (c)).
	IsForeign bool
}

func NewModule(name string) *Module {
	return &Module{Name: name, Table: NewSymbolTable()}
}

func (m *Module) NewSourceFile() *SourceFile {
	f := &SourceFile{Module: m}
	m.Files = append(m.Files, f)
	return f
}

// AddForeignDecls registers declarations produced by cimport into this
// module's table and marks the module IsForeign (spec.md §6.2,
// SPEC_FULL.md §9). Ordinary declarations go through SourceFile.AddDecl
// instead; both paths end up calling SymbolTable.AddDecl, so lookup
// never special-cases where a declaration came from.
func (m *Module) AddForeignDecls(decls []ast.Decl) {
	for _, d := range decls {
		m.Table.AddDecl(d)
	}
	m.IsForeign = true
}

// SourceFile resolves names the way spec.md §4.4 describes: ask its own
// module first, then walk each imported module's table in order; the
// first non-empty result wins unless more than one module contributes
// overloads of the same function name, in which case every overload is
// concatenated.
type SourceFile struct {
	Module  *Module
	Imports []*Module
	// Decls are this file's top-level declarations, in parse order
	// (spec.md §4.5: "walks declarations in the order the parser
	// yields them").
	Decls []ast.Decl
}

// AddDecl registers decl both as a top-level declaration of this file
// and as a findable symbol in the owning module's table.
func (f *SourceFile) AddDecl(decl ast.Decl) {
	f.Decls = append(f.Decls, decl)
	f.Module.Table.AddDecl(decl)
}

func (f *SourceFile) AddImport(m *Module) {
	f.Imports = append(f.Imports, m)
}

// Resolve looks up name starting in f's own module, then its imports in
// order, applying f.Module's identifier replacements first.
func (f *SourceFile) Resolve(name string) []ast.Decl {
	name = f.Module.Table.ApplyReplacements(name)

	own := f.Module.Table.Find(name)

	var fromImports [][]ast.Decl
	for _, imp := range f.Imports {
		if found := imp.Table.Find(name); len(found) > 0 {
			fromImports = append(fromImports, found)
		}
	}

	switch {
	case len(own) > 0 && len(fromImports) == 0:
		return own
	case len(own) == 0 && len(fromImports) == 1:
		return fromImports[0]
	case len(own) == 0 && len(fromImports) == 0:
		return nil
	default:
		// Multiple modules contribute: concatenate every overload
		// rather than picking a single winner (spec.md §4.4).
		all := append([]ast.Decl(nil), own...)
		for _, found := range fromImports {
			all = append(all, found...)
		}
		return all
	}
}

// ResolveForReceiver is Resolve restricted to a receiver type, used by
// member-call overload resolution (spec.md §4.4, §4.5.3).
func (f *SourceFile) ResolveForReceiver(name string, receiver *ast.TypeDecl) []ast.Decl {
	candidates := f.Resolve(name)
	var out []ast.Decl
	for _, d := range candidates {
		switch v := d.(type) {
		case *ast.MethodDecl:
			if v.Receiver == receiver {
				out = append(out, d)
			}
		case *ast.FunctionTemplateDecl:
			if v.Receiver == receiver {
				out = append(out, d)
			}
		case *ast.InitDecl:
			if v.Receiver == receiver {
				out = append(out, d)
			}
		}
	}
	return out
}
