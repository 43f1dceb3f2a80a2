package sema

import (
	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/errors"
	"github.com/delta-compiler/deltac/mangle"
	"github.com/delta-compiler/deltac/module"
	"github.com/delta-compiler/deltac/types"
)

// resolvedCandidate is one viable callee after argument validation,
// carrying everything checkCall needs to apply the tie-breakers and
// then commit the result onto the Call node (spec.md §4.5.3).
type resolvedCandidate struct {
	decl        ast.Decl
	params      []types.Type
	paramNames  []string
	ret         types.Type
	variadic    bool
	mutating    bool
	genericArgs []types.Type
	fromStdlib  bool
	fromForeign bool
}

// checkCall implements spec.md §4.5.3 in full: candidate generation,
// generic inference/instantiation, per-argument validation, the three
// ordered tie-breakers, and move-semantics marking on the winner.
func (a *Analyzer) checkCall(e *ast.Call) (types.Type, error) {
	a.genericConflict = nil

	// A local variable/parameter/field of function type is called
	// directly — no overload set, no receiver.
	if v, ok := e.Function.(*ast.Var); ok {
		if local := a.scope.find(v.Name); local != nil {
			if t := declType(local); t.IsFunction() {
				return a.checkDirectFunctionValueCall(e, v, t)
			}
		}
	}

	argTypes, argExprs, argNames, err := a.typecheckCallArgs(e)
	if err != nil {
		return types.Type{}, err
	}

	rawCandidates, receiverType, err := a.gatherCandidateDecls(e)
	if err != nil {
		return types.Type{}, err
	}

	var viable []resolvedCandidate
	for _, raw := range rawCandidates {
		cand, ok := a.tryCandidate(e, raw, argTypes, argExprs, argNames, receiverType)
		if ok {
			viable = append(viable, cand)
		}
	}

	if len(viable) == 0 {
		if a.genericConflict != nil {
			err := a.genericConflict
			a.genericConflict = nil
			return types.Type{}, err
		}
		return types.Type{}, errors.NoMatchingOverload{
			Name:       e.FunctionName(),
			ArgTypes:   typeStrings(argTypes),
			Candidates: candidateSignatures(rawCandidates),
			Location:   e.Span(),
		}
	}

	winner := breakTies(viable, receiverType)
	if len(winner) > 1 {
		names := make([]string, len(winner))
		for i, c := range winner {
			names[i] = mangle.Decl(c.decl)
		}
		return types.Type{}, errors.AmbiguousOverload{Name: e.FunctionName(), Candidates: names, Location: e.Span()}
	}

	chosen := winner[0]
	e.SetCallee(chosen.decl)
	e.GenericArgs = chosen.genericArgs
	e.MangledName = mangle.Decl(chosen.decl)
	if receiverType != nil {
		rt := *receiverType
		e.Receiver = &rt
	}

	a.markMovedArguments(chosen, argExprs)

	return chosen.ret, nil
}

func declType(d ast.Decl) types.Type {
	switch v := d.(type) {
	case *ast.VarDecl:
		return v.Type
	case *ast.ParamDecl:
		return v.Type
	case *ast.FieldDecl:
		return v.Type
	default:
		return types.Type{}
	}
}

func (a *Analyzer) checkDirectFunctionValueCall(e *ast.Call, v *ast.Var, fnType types.Type) (types.Type, error) {
	if _, err := a.TypecheckExpression(v, false); err != nil {
		return types.Type{}, err
	}
	params := fnType.ParamTypes()
	if len(e.Args) != len(params) {
		return types.Type{}, errors.NoMatchingOverload{Name: v.Name, Location: e.Span()}
	}
	for i, arg := range e.Args {
		at, err := a.TypecheckExpression(arg.Value, false)
		if err != nil {
			return types.Type{}, err
		}
		if r := a.IsConvertible(at, params[i], arg.Value); !r.OK {
			return types.Type{}, errors.NotConvertible{From: at.String(), To: params[i].String(), Location: arg.Value.Span()}
		}
	}
	return fnType.ReturnType(), nil
}

func (a *Analyzer) typecheckCallArgs(e *ast.Call) ([]types.Type, []ast.Expression, []string, error) {
	argTypes := make([]types.Type, len(e.Args))
	argExprs := make([]ast.Expression, len(e.Args))
	argNames := make([]string, len(e.Args))
	for i, arg := range e.Args {
		t, err := a.TypecheckExpression(arg.Value, false)
		if err != nil {
			return nil, nil, nil, err
		}
		argTypes[i] = t
		argExprs[i] = arg.Value
		argNames[i] = arg.Name
	}
	return argTypes, argExprs, argNames, nil
}

// gatherCandidateDecls resolves e.Function to its raw, pre-validation
// candidate set, along with the receiver type for a method/constructor
// call (nil for an ordinary free-function call).
func (a *Analyzer) gatherCandidateDecls(e *ast.Call) ([]ast.Decl, *types.Type, error) {
	switch fn := e.Function.(type) {
	case *ast.Member:
		baseType, err := a.TypecheckExpression(fn.Base, false)
		if err != nil {
			return nil, nil, err
		}
		recv := baseType
		for recv.IsPointer() {
			recv = recv.Pointee()
		}
		if !recv.IsBasic() {
			return nil, nil, errors.TypeMismatch{Want: "struct or union receiver", Got: recv.String(), Location: fn.Span()}
		}
		decl := a.lookupTypeDecl(recv.Name())
		if decl == nil {
			return nil, nil, errors.UnknownIdentifier{Name: recv.Name(), Location: fn.Span()}
		}
		return a.file.ResolveForReceiver(fn.Field, decl), &baseType, nil
	case *ast.Var:
		found := a.file.Resolve(fn.Name)
		if len(found) == 1 {
			if td, ok := found[0].(*ast.TypeDecl); ok {
				t := types.NewBasic(td.DeclName(), td.GenericArgs...)
				decls := make([]ast.Decl, len(td.Inits))
				for i, init := range td.Inits {
					decls[i] = init
				}
				return decls, &t, nil
			}
			if tt, ok := found[0].(*ast.TypeTemplateDecl); ok {
				// Constructing a generic type requires its generic
				// arguments spelled out at the call site (e.g.
				// Box<int32>(1)); inferring them from constructor
				// arguments alone is not attempted.
				if !e.HasExplicitGenericArgs() || len(e.GenericArgs) != len(tt.GenericParams) {
					return nil, nil, errors.WrongGenericArgCount{Name: tt.DeclName(), Want: len(tt.GenericParams), Got: len(e.GenericArgs), Location: fn.Span()}
				}
				for i, gp := range tt.GenericParams {
					if gp.Constraint == nil {
						continue
					}
					arg := e.GenericArgs[i]
					if !arg.IsBasic() {
						return nil, nil, errors.WrongGenericArgCount{Name: tt.DeclName(), Want: len(tt.GenericParams), Got: len(e.GenericArgs), Location: fn.Span()}
					}
					decl := a.lookupTypeDecl(arg.Name())
					if decl == nil || !a.implementsInterface(decl, gp.Constraint) {
						return nil, nil, errors.TypeMismatch{Want: "implementation of " + gp.Constraint.DeclName(), Got: arg.String(), Location: fn.Span()}
					}
				}
				instDecl := a.instantiateTypeTemplate(tt, e.GenericArgs)
				t := types.NewBasic(instDecl.DeclName(), instDecl.GenericArgs...)
				decls := make([]ast.Decl, len(instDecl.Inits))
				for i, init := range instDecl.Inits {
					decls[i] = init
				}
				return decls, &t, nil
			}
		}
		if len(found) == 0 {
			return nil, nil, errors.UnknownIdentifier{Name: fn.Name, Location: fn.Span()}
		}
		return found, nil, nil
	default:
		return nil, nil, errors.TypeMismatch{Want: "callable expression", Got: "unsupported call target", Location: e.Span()}
	}
}

// tryCandidate validates a single raw candidate against the call's
// arguments, instantiating a generic template if necessary. Returns
// ok=false when the candidate does not apply at all (arity mismatch,
// failed generic inference, unconvertible argument) — this is a silent
// discard, never an error, per spec.md §4.5.3/§4.5.4.
func (a *Analyzer) tryCandidate(e *ast.Call, raw ast.Decl, argTypes []types.Type, argExprs []ast.Expression, argNames []string, receiverType *types.Type) (resolvedCandidate, bool) {
	switch d := raw.(type) {
	case *ast.FunctionDecl:
		return a.tryConcrete(d, paramTypesOf(d.Params), paramNamesOf(d.Params), d.Return, d.Variadic, false, nil, argTypes, argExprs, argNames)
	case *ast.MethodDecl:
		c, ok := a.tryConcrete(d, paramTypesOf(d.Params), paramNamesOf(d.Params), d.Return, d.Variadic, d.Mutating, nil, argTypes, argExprs, argNames)
		if !ok {
			return c, false
		}
		if d.Mutating && receiverType != nil && !receiverType.IsMutable() {
			return c, false
		}
		return c, true
	case *ast.InitDecl:
		ret := types.NewBasic(d.Receiver.DeclName(), d.Receiver.GenericArgs...)
		return a.tryConcrete(d, paramTypesOf(d.Params), paramNamesOf(d.Params), ret, false, true, nil, argTypes, argExprs, argNames)
	case *ast.FunctionTemplateDecl:
		return a.tryFunctionTemplate(e, d, argTypes, argExprs, argNames)
	default:
		return resolvedCandidate{}, false
	}
}

func (a *Analyzer) tryConcrete(decl ast.Decl, params []types.Type, paramNames []string, ret types.Type, variadic, mutating bool, genericArgs []types.Type, argTypes []types.Type, argExprs []ast.Expression, argNames []string) (resolvedCandidate, bool) {
	ordered, ok := matchArgsToParams(paramNames, argTypesToCallArgs(argTypes, argExprs, argNames), variadic, len(params))
	if !ok {
		return resolvedCandidate{}, false
	}
	for i, pt := range params {
		if i >= len(ordered) {
			if !variadic {
				return resolvedCandidate{}, false
			}
			break
		}
		at, expr := ordered[i].t, ordered[i].expr
		if r := a.IsConvertible(at, pt, expr); !r.OK {
			return resolvedCandidate{}, false
		}
	}
	origin := a.declOriginModule(decl)
	return resolvedCandidate{
		decl:        decl,
		params:      params,
		paramNames:  paramNames,
		ret:         ret,
		variadic:    variadic,
		mutating:    mutating,
		genericArgs: genericArgs,
		fromStdlib:  origin != nil && origin.IsStdlib,
		fromForeign: origin != nil && origin.IsForeign,
	}, true
}

type orderedArg struct {
	t    types.Type
	expr ast.Expression
}

// matchArgsToParams reorders call arguments per spec.md §4.5.3's named-
// argument rule: positional args fill left to right, a named arg binds
// to the parameter sharing its label regardless of position, and a
// name that matches no parameter (or arity outside [min,max] for a
// non-variadic callee) discards the candidate.
func matchArgsToParams(paramNames []string, args []struct {
	name string
	t    types.Type
	expr ast.Expression
}, variadic bool, numParams int) ([]orderedArg, bool) {
	if !variadic && len(args) > numParams {
		return nil, false
	}
	out := make([]orderedArg, numParams)
	filled := make([]bool, numParams)
	var extra []orderedArg
	nextPositional := 0
	for _, arg := range args {
		idx := -1
		if arg.name != "" {
			for i, pn := range paramNames {
				if pn == arg.name {
					idx = i
					break
				}
			}
			if idx == -1 {
				return nil, false
			}
		} else {
			for nextPositional < numParams && filled[nextPositional] {
				nextPositional++
			}
			if nextPositional >= numParams {
				if !variadic {
					return nil, false
				}
				extra = append(extra, orderedArg{t: arg.t, expr: arg.expr})
				continue
			}
			idx = nextPositional
		}
		if filled[idx] {
			return nil, false
		}
		filled[idx] = true
		out[idx] = orderedArg{t: arg.t, expr: arg.expr}
	}
	for i, f := range filled {
		if !f {
			return nil, false
		}
		_ = i
	}
	out = append(out, extra...)
	return out, true
}

func argTypesToCallArgs(argTypes []types.Type, argExprs []ast.Expression, argNames []string) []struct {
	name string
	t    types.Type
	expr ast.Expression
} {
	out := make([]struct {
		name string
		t    types.Type
		expr ast.Expression
	}, len(argTypes))
	for i := range argTypes {
		out[i] = struct {
			name string
			t    types.Type
			expr ast.Expression
		}{name: argNames[i], t: argTypes[i], expr: argExprs[i]}
	}
	return out
}

func paramTypesOf(params []*ast.ParamDecl) []types.Type {
	out := make([]types.Type, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

func paramNamesOf(params []*ast.ParamDecl) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.DeclName()
	}
	return out
}

// tryFunctionTemplate performs inference (or validates explicit
// generic args), instantiates the template under a mangled-name cache,
// queues the instantiation for typecheck, and then validates the
// instantiation's arguments exactly like a concrete candidate.
func (a *Analyzer) tryFunctionTemplate(e *ast.Call, tmpl *ast.FunctionTemplateDecl, argTypes []types.Type, argExprs []ast.Expression, argNames []string) (cand resolvedCandidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if conflict, isConflict := r.(genericInferenceConflict); isConflict {
				a.genericConflict = errors.GenericConflict{Param: conflict.param, Location: e.Span()}
				cand, ok = resolvedCandidate{}, false
				return
			}
			panic(r)
		}
	}()

	var genericArgs []types.Type
	if e.HasExplicitGenericArgs() {
		if len(e.GenericArgs) != len(tmpl.GenericParams) {
			return resolvedCandidate{}, false
		}
		genericArgs = e.GenericArgs
	} else {
		inferred, inferOK := a.inferGenericArgs(tmpl.GenericParams, paramTypesOf(tmpl.Params), argTypes, argExprs)
		if !inferOK {
			return resolvedCandidate{}, false
		}
		genericArgs = inferred
	}

	subst := make(map[string]types.Type, len(tmpl.GenericParams))
	for i, gp := range tmpl.GenericParams {
		subst[gp.DeclName()] = genericArgs[i]
	}

	key := mangle.Instantiation(tmpl.DeclName(), genericArgs)
	inst, cached := a.funcInstantiations[key]
	if !cached {
		inst = a.instantiateFunctionTemplate(tmpl, subst, genericArgs)
		a.funcInstantiations[key] = inst
		a.file.Module.Table.Add(key, inst)
		a.queueInstantiation(inst)
	}

	switch fd := inst.(type) {
	case *ast.FunctionDecl:
		return a.tryConcrete(fd, paramTypesOf(fd.Params), paramNamesOf(fd.Params), fd.Return, fd.Variadic, false, genericArgs, argTypes, argExprs, argNames)
	case *ast.MethodDecl:
		c, ok := a.tryConcrete(fd, paramTypesOf(fd.Params), paramNamesOf(fd.Params), fd.Return, fd.Variadic, fd.Mutating, genericArgs, argTypes, argExprs, argNames)
		return c, ok
	default:
		return resolvedCandidate{}, false
	}
}

func (a *Analyzer) instantiateFunctionTemplate(tmpl *ast.FunctionTemplateDecl, subst map[string]types.Type, genericArgs []types.Type) ast.Decl {
	params := make([]*ast.ParamDecl, len(tmpl.Params))
	for i, p := range tmpl.Params {
		np := ast.NewParamDecl(p.DeclName(), p.Span(), substituteType(p.Type, subst))
		params[i] = np
	}
	ret := substituteType(tmpl.Return, subst)
	if tmpl.Receiver != nil {
		m := ast.NewMethodDecl(tmpl.DeclName(), tmpl.Span(), tmpl.Receiver, tmpl.Mutating)
		m.Params = params
		m.Return = ret
		m.Body = tmpl.Body
		return m
	}
	f := ast.NewFunctionDecl(tmpl.DeclName(), tmpl.Span())
	f.Params = params
	f.Return = ret
	f.Body = tmpl.Body
	return f
}

// instantiateTypeTemplate clones tt's fields, methods, inits, and
// deinit under the given generic-argument substitution, caching the
// result by its mangled instantiation key and queuing it for a full
// typecheck pass (spec.md §4.5.5).
func (a *Analyzer) instantiateTypeTemplate(tt *ast.TypeTemplateDecl, genericArgs []types.Type) *ast.TypeDecl {
	key := mangle.Instantiation(tt.DeclName(), genericArgs)
	if cached, ok := a.typeInstantiations[key]; ok {
		return cached
	}

	subst := make(map[string]types.Type, len(tt.GenericParams))
	for i, gp := range tt.GenericParams {
		subst[gp.DeclName()] = genericArgs[i]
	}

	inst := ast.NewTypeDecl(tt.DeclName(), tt.Span(), tt.Tag)
	inst.GenericArgs = genericArgs
	a.typeInstantiations[key] = inst
	a.file.Module.Table.Add(key, inst)

	for _, f := range tt.Fields {
		inst.Fields = append(inst.Fields, ast.NewFieldDecl(f.DeclName(), f.Span(), substituteType(f.Type, subst)))
	}
	for _, m := range tt.Methods {
		params := make([]*ast.ParamDecl, len(m.Params))
		for i, p := range m.Params {
			params[i] = ast.NewParamDecl(p.DeclName(), p.Span(), substituteType(p.Type, subst))
		}
		clone := ast.NewMethodDecl(m.DeclName(), m.Span(), inst, m.Mutating)
		clone.Params = params
		clone.Return = substituteType(m.Return, subst)
		clone.Body = m.Body
		clone.Variadic = m.Variadic
		inst.Methods = append(inst.Methods, clone)
	}
	for _, init := range tt.Inits {
		params := make([]*ast.ParamDecl, len(init.Params))
		for i, p := range init.Params {
			params[i] = ast.NewParamDecl(p.DeclName(), p.Span(), substituteType(p.Type, subst))
		}
		clone := ast.NewInitDecl(init.Span(), inst)
		clone.Params = params
		clone.Body = init.Body
		inst.Inits = append(inst.Inits, clone)
	}
	if tt.Deinit != nil {
		clone := ast.NewDeinitDecl(tt.Deinit.Span(), inst)
		clone.Body = tt.Deinit.Body
		inst.Deinit = clone
	}

	a.queueInstantiation(inst)
	return inst
}

// declOriginModule finds which module (own or an import) a resolved
// declaration was found in, for the stdlib/foreign tie-breakers
// (spec.md §4.5.3 (b), (c)).
func (a *Analyzer) declOriginModule(d ast.Decl) *module.Module {
	if containsDecl(a.file.Module.Table.Find(d.DeclName()), d) {
		return a.file.Module
	}
	for _, imp := range a.file.Imports {
		if containsDecl(imp.Table.Find(d.DeclName()), d) {
			return imp
		}
	}
	return nil
}

func containsDecl(list []ast.Decl, d ast.Decl) bool {
	for _, x := range list {
		if x == d {
			return true
		}
	}
	return false
}

// breakTies applies spec.md §4.5.3's three ordered tie-breakers in
// turn, narrowing the candidate set at each step and stopping as soon
// as exactly one remains.
func breakTies(candidates []resolvedCandidate, receiverType *types.Type) []resolvedCandidate {
	if len(candidates) == 1 {
		return candidates
	}
	// (a) prefer a mutating method when the receiver itself is mutable.
	if receiverType != nil && receiverType.IsMutable() {
		if narrowed := filterCandidates(candidates, func(c resolvedCandidate) bool { return c.mutating }); len(narrowed) > 0 {
			candidates = narrowed
		}
	}
	if len(candidates) == 1 {
		return candidates
	}
	// (b) prefer a standard-library declaration.
	if narrowed := filterCandidates(candidates, func(c resolvedCandidate) bool { return c.fromStdlib }); len(narrowed) > 0 && len(narrowed) < len(candidates) {
		candidates = narrowed
	}
	if len(candidates) == 1 {
		return candidates
	}
	// (c) prefer the first accepted foreign-import declaration.
	for _, c := range candidates {
		if c.fromForeign {
			return []resolvedCandidate{c}
		}
	}
	return candidates
}

func filterCandidates(cs []resolvedCandidate, keep func(resolvedCandidate) bool) []resolvedCandidate {
	var out []resolvedCandidate
	for _, c := range cs {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// markMovedArguments flags every argument bound to a non-implicitly-
// copyable by-value parameter as moved (spec.md §4.5.3 move semantics):
// a subsequent read of that binding fails with UseAfterMove.
func (a *Analyzer) markMovedArguments(c resolvedCandidate, argExprs []ast.Expression) {
	for i, pt := range c.params {
		if i >= len(argExprs) {
			break
		}
		if pt.IsPointer() || pt.IsOptional() || a.isImplicitlyCopyable(pt) {
			continue
		}
		v, ok := argExprs[i].(*ast.Var)
		if !ok {
			continue
		}
		switch decl := v.Callee().(type) {
		case *ast.VarDecl:
			decl.Moved = true
		case *ast.ParamDecl:
			decl.Moved = true
		}
	}
}

// isImplicitlyCopyable reports whether passing t by value never needs a
// move: scalars, pointers, and any struct/union explicitly marked
// pass_by_value are copyable; every other struct/union is moved
// (spec.md §4.6.4, DESIGN.md's pass-by-value Open Question decision).
func (a *Analyzer) isImplicitlyCopyable(t types.Type) bool {
	if !t.IsBasic() {
		return t.IsPointer()
	}
	if t.IsInteger() || t.IsFloatingPoint() || t.IsBool() || t.IsChar() || t.IsVoid() {
		return true
	}
	decl := a.lookupTypeDecl(t.Name())
	return decl != nil && decl.PassByValue
}

func typeStrings(ts []types.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}

func candidateSignatures(decls []ast.Decl) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = mangle.Decl(d)
	}
	return out
}
