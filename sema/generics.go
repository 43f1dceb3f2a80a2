package sema

import (
	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/types"
)

// genericInferenceConflict is raised internally when two arguments
// bind the same generic parameter to types that cannot be reconciled
// (spec.md §4.5.4: "otherwise error" — distinct from a parameter with
// no binding at all, which silently discards the candidate instead).
type genericInferenceConflict struct {
	param string
}

// inferGenericArgs implements spec.md §4.5.4: for each generic
// parameter, scan the parameter list and extract the corresponding
// shape position from each argument's type. Returns (nil, false) if any
// parameter never receives a binding (candidate discarded, not an
// error) and panics with genericInferenceConflict if two arguments
// disagree on a binding that IsConvertible cannot reconcile.
func (a *Analyzer) inferGenericArgs(genericParams []*ast.GenericParamDecl, paramTypes []types.Type, argTypes []types.Type, argExprs []ast.Expression) ([]types.Type, bool) {
	names := make(map[string]bool, len(genericParams))
	for _, gp := range genericParams {
		names[gp.DeclName()] = true
	}

	bindings := map[string]types.Type{}
	for i, pt := range paramTypes {
		if i >= len(argTypes) {
			break
		}
		var argExpr ast.Expression
		if i < len(argExprs) {
			argExpr = argExprs[i]
		}
		a.collectGenericBindings(pt, argTypes[i], names, bindings, argExpr)
	}

	result := make([]types.Type, len(genericParams))
	for idx, gp := range genericParams {
		b, ok := bindings[gp.DeclName()]
		if !ok {
			return nil, false
		}
		if gp.Constraint != nil {
			if !b.IsBasic() {
				return nil, false
			}
			decl := a.lookupTypeDecl(b.Name())
			if decl == nil || !a.implementsInterface(decl, gp.Constraint) {
				return nil, false
			}
		}
		result[idx] = b
	}
	return result, true
}

// collectGenericBindings recurses into paramType's shape, binding any
// generic-parameter-name position it finds against the matching
// position of argType.
func (a *Analyzer) collectGenericBindings(paramType, argType types.Type, names map[string]bool, bindings map[string]types.Type, argExpr ast.Expression) {
	if paramType.IsBasic() && len(paramType.GenericArgs()) == 0 && names[paramType.Name()] {
		a.bindGeneric(paramType.Name(), argType, bindings, argExpr)
		return
	}
	if paramType.Kind() != argType.Kind() {
		return
	}
	switch paramType.Kind() {
	case types.Basic:
		pArgs, aArgs := paramType.GenericArgs(), argType.GenericArgs()
		if paramType.Name() != argType.Name() || len(pArgs) != len(aArgs) {
			return
		}
		for i := range pArgs {
			a.collectGenericBindings(pArgs[i], aArgs[i], names, bindings, nil)
		}
	case types.Array:
		a.collectGenericBindings(paramType.ElementType(), argType.ElementType(), names, bindings, nil)
	case types.Pointer, types.Optional:
		a.collectGenericBindings(paramType.WrappedType(), argType.WrappedType(), names, bindings, nil)
	case types.Tuple:
		ps, as := paramType.Subtypes(), argType.Subtypes()
		if len(ps) != len(as) {
			return
		}
		for i := range ps {
			a.collectGenericBindings(ps[i], as[i], names, bindings, nil)
		}
	case types.Function:
		pp, ap := paramType.ParamTypes(), argType.ParamTypes()
		if len(pp) == len(ap) {
			for i := range pp {
				a.collectGenericBindings(pp[i], ap[i], names, bindings, nil)
			}
		}
		a.collectGenericBindings(paramType.ReturnType(), argType.ReturnType(), names, bindings, nil)
	}
}

func (a *Analyzer) bindGeneric(name string, argType types.Type, bindings map[string]types.Type, argExpr ast.Expression) {
	existing, ok := bindings[name]
	if !ok {
		bindings[name] = argType
		return
	}
	if existing.Equal(argType, false) {
		return
	}
	// Reconcile via IsConvertible in either direction, taking the more
	// general (i.e. the target) side (spec.md §4.5.4).
	if r := a.IsConvertible(argType, existing, argExpr); r.OK {
		return
	}
	if r := a.IsConvertible(existing, argType, nil); r.OK {
		bindings[name] = argType
		return
	}
	panic(genericInferenceConflict{param: name})
}

// substituteType replaces every occurrence of a generic parameter name
// in t with its bound types.Type, used both by call-site inference
// result application and by instantiation cloning (spec.md §4.5.5,
// §4.6 currentGenericArgs).
func substituteType(t types.Type, subst map[string]types.Type) types.Type {
	if t.IsBasic() {
		if replacement, ok := subst[t.Name()]; ok && len(t.GenericArgs()) == 0 {
			return replacement
		}
		if len(t.GenericArgs()) > 0 {
			args := make([]types.Type, len(t.GenericArgs()))
			for i, a := range t.GenericArgs() {
				args[i] = substituteType(a, subst)
			}
			return types.NewBasic(t.Name(), args...)
		}
		return t
	}
	switch t.Kind() {
	case types.Array:
		if t.IsUnsizedArray() {
			return types.NewUnsizedArray(substituteType(t.ElementType(), subst))
		}
		return types.NewArray(substituteType(t.ElementType(), subst), t.ArraySize())
	case types.Pointer:
		return types.NewPointer(substituteType(t.Pointee(), subst), t.IsMutable())
	case types.Optional:
		return types.NewOptional(substituteType(t.WrappedType(), subst), t.IsMutable())
	case types.Tuple:
		subs := make([]types.Type, len(t.Subtypes()))
		for i, s := range t.Subtypes() {
			subs[i] = substituteType(s, subst)
		}
		return types.NewTuple(subs...)
	case types.Function:
		params := make([]types.Type, len(t.ParamTypes()))
		for i, p := range t.ParamTypes() {
			params[i] = substituteType(p, subst)
		}
		return types.NewFunction(substituteType(t.ReturnType(), subst), params...)
	default:
		return t
	}
}
