// Package sema is the semantic analyzer (C5, spec.md §4.5): name
// resolution, type checking, overload resolution, and generic
// instantiation. It walks declarations in parser order but checks
// expressions on demand, draining a work queue of newly-instantiated
// generics to a fixed point.
package sema

import (
	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/module"
	"github.com/delta-compiler/deltac/types"
)

// localScope is a lexical region of local bindings, chained to its
// parent. Distinct from irgen's scope, which maps names to IR values
// (irgen keeps deferred expressions and deinit calls in a separate
// frame stack) — sema only needs name→decl.
type localScope struct {
	up     *localScope
	byName map[string]ast.Decl
}

func newLocalScope(up *localScope) *localScope {
	return &localScope{up: up, byName: make(map[string]ast.Decl)}
}

func (s *localScope) find(name string) ast.Decl {
	for sc := s; sc != nil; sc = sc.up {
		if d, ok := sc.byName[name]; ok {
			return d
		}
	}
	return nil
}

func (s *localScope) define(name string, d ast.Decl) {
	s.byName[name] = d
}

// Analyzer holds all per-compilation-unit state for C5.
type Analyzer struct {
	file *module.SourceFile

	// decls_to_typecheck: freshly instantiated generics queued for a
	// later full typecheck pass (spec.md §4.5, §4.5.5).
	queue []ast.Decl

	// Instantiation caches, both keyed by mangle.Instantiation of the
	// template's name and generic arguments (spec.md §4.5.5).
	funcInstantiations map[string]ast.Decl
	typeInstantiations map[string]*ast.TypeDecl

	// genericSubst is allocated by NewAnalyzer and not otherwise read
	// or written; inference and instantiation each build their own
	// local substitution map.
	genericSubst map[*ast.GenericParamDecl]types.Type

	scope *localScope

	// receiver/mutating context for the declaration currently being
	// checked (nil/false outside a method/init/deinit body).
	receiver    *ast.TypeDecl
	receiverMut bool
	inDeinit    bool

	// currentReturn is the declared return type of the function-like
	// body presently being checked, consulted by Return statements.
	currentReturn types.Type
	// loopDepth tracks nesting inside While/For so Break can be
	// rejected outside a loop.
	loopDepth int

	// genericConflict latches the first unreconcilable generic-argument
	// binding conflict seen while resolving a call (spec.md §4.5.4): a
	// missing binding discards the candidate silently, but a conflicting
	// one must surface as a real error if no viable candidate remains.
	genericConflict error
}

func NewAnalyzer(file *module.SourceFile) *Analyzer {
	return &Analyzer{
		file:               file,
		funcInstantiations: make(map[string]ast.Decl),
		typeInstantiations: make(map[string]*ast.TypeDecl),
		genericSubst:       make(map[*ast.GenericParamDecl]types.Type),
	}
}

// TypecheckModule drives the whole pass: check every file's top-level
// declarations in parser order, then drain the instantiation queue to a
// fixed point (spec.md §4.5).
func TypecheckModule(mod *module.Module) error {
	for _, file := range mod.Files {
		a := NewAnalyzer(file)
		for _, d := range file.Decls {
			if err := a.TypecheckDeclaration(d); err != nil {
				return err
			}
		}
		for len(a.queue) > 0 {
			d := a.queue[0]
			a.queue = a.queue[1:]
			if err := a.TypecheckDeclaration(d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) pushScope()       { a.scope = newLocalScope(a.scope) }
func (a *Analyzer) popScope()        { a.scope = a.scope.up }
func (a *Analyzer) define(n string, d ast.Decl) { a.scope.define(n, d) }

// lookupTypeDecl resolves a basic type name to its declaration, walking
// the current file's imports the same way ordinary identifier lookup
// does (spec.md §4.4). Used by convertibility's interface-subtyping
// rule and by Member/Cast checking.
func (a *Analyzer) lookupTypeDecl(name string) *ast.TypeDecl {
	for _, d := range a.file.Resolve(name) {
		if t, ok := d.(*ast.TypeDecl); ok {
			return t
		}
	}
	return nil
}

// TypecheckDeclaration dispatches on decl's kind (spec.md §4.5).
func (a *Analyzer) TypecheckDeclaration(d ast.Decl) error {
	switch v := d.(type) {
	case *ast.VarDecl:
		if v.Value != nil {
			t, err := a.TypecheckExpression(v.Value, false)
			if err != nil {
				return err
			}
			if v.Type.IsZero() {
				v.Type = t
			}
		}
		return nil
	case *ast.FunctionDecl:
		return a.checkFunctionLikeBodyTyped(v.Params, v.Body, nil, false, v.Return)
	case *ast.MethodDecl:
		prevRecv, prevMut := a.receiver, a.receiverMut
		a.receiver, a.receiverMut = v.Receiver, v.Mutating
		err := a.checkFunctionLikeBodyTyped(v.Params, v.Body, v.Receiver, v.Mutating, v.Return)
		a.receiver, a.receiverMut = prevRecv, prevMut
		return err
	case *ast.InitDecl:
		prevRecv, prevMut := a.receiver, a.receiverMut
		a.receiver, a.receiverMut = v.Receiver, true
		ret := types.NewBasic(v.Receiver.DeclName(), v.Receiver.GenericArgs...)
		err := a.checkFunctionLikeBodyTyped(v.Params, v.Body, v.Receiver, true, ret)
		a.receiver, a.receiverMut = prevRecv, prevMut
		return err
	case *ast.DeinitDecl:
		prevRecv, prevMut, prevDeinit := a.receiver, a.receiverMut, a.inDeinit
		a.receiver, a.receiverMut, a.inDeinit = v.Receiver, true, true
		err := a.checkFunctionLikeBodyTyped(nil, v.Body, v.Receiver, true, types.NewBasic("void"))
		a.receiver, a.receiverMut, a.inDeinit = prevRecv, prevMut, prevDeinit
		return err
	case *ast.TypeDecl:
		for _, m := range v.Methods {
			if err := a.TypecheckDeclaration(m); err != nil {
				return err
			}
		}
		for _, i := range v.Inits {
			if err := a.TypecheckDeclaration(i); err != nil {
				return err
			}
		}
		if v.Deinit != nil {
			if err := a.TypecheckDeclaration(v.Deinit); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func (a *Analyzer) checkFunctionLikeBody(params []*ast.ParamDecl, body []ast.Statement, receiver *ast.TypeDecl, mutating bool) error {
	a.pushScope()
	defer a.popScope()
	for _, p := range params {
		a.define(p.DeclName(), p)
	}
	for _, s := range body {
		if err := a.TypecheckStatement(s); err != nil {
			return err
		}
	}
	return nil
}

// checkFunctionLikeBodyTyped is checkFunctionLikeBody plus the declared
// return type, used by every Decl case that carries a Return field so
// Return statements can be validated against it.
func (a *Analyzer) checkFunctionLikeBodyTyped(params []*ast.ParamDecl, body []ast.Statement, receiver *ast.TypeDecl, mutating bool, ret types.Type) error {
	prevRet := a.currentReturn
	a.currentReturn = ret
	defer func() { a.currentReturn = prevRet }()
	return a.checkFunctionLikeBody(params, body, receiver, mutating)
}

// queueInstantiation appends a freshly-created instantiation to the
// work queue so mutually-referring generics converge (spec.md §4.5,
// §4.5.5, testable property 7).
func (a *Analyzer) queueInstantiation(d ast.Decl) {
	a.queue = append(a.queue, d)
}
