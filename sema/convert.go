package sema

import (
	"math/big"

	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/types"
)

// ConvertResult is the (bool, optional converted_type) pair spec.md
// §4.5.2 describes as the return of is_convertible.
type ConvertResult struct {
	OK        bool
	Converted types.Type
}

func no() ConvertResult  { return ConvertResult{} }
func yes(t types.Type) ConvertResult { return ConvertResult{OK: true, Converted: t} }

// IsConvertible implements spec.md §4.5.2's ordered rule set exactly;
// callers must not reorder these checks — overload resolution and the
// ordering guarantee of spec.md §5 depend on rule order, not just on
// the final boolean.
//
// srcExpr is optional (nil when only testing type shape, e.g. structural
// congruence checks that never need literal-autocast); rules 4, 5, 6
// and 9 inspect it to special-case literal expressions, and rule 7
// passes it through.
func (a *Analyzer) IsConvertible(src, target types.Type, srcExpr ast.Expression) ConvertResult {
	// Rule 1: target = Optional(U) and source convertible to U (a Null
	// source is accepted here directly).
	if target.IsOptional() {
		if src.Kind() == types.Null {
			return yes(target)
		}
		if r := a.IsConvertible(src, target.WrappedType(), srcExpr); r.OK {
			return yes(target)
		}
	}

	// Rule 2: structural congruence.
	if r := a.structurallyCongruent(src, target); r.OK {
		return r
	}

	// Rule 3: interface subtyping.
	if target.IsBasic() {
		if iface := a.lookupTypeDecl(target.Name()); iface != nil && iface.IsInterface {
			if src.IsBasic() {
				if decl := a.lookupTypeDecl(src.Name()); decl != nil && a.implementsInterface(decl, iface) {
					return yes(target)
				}
			}
		}
	}

	// Rules 4, 5, 6 and 9 inspect the source expression.
	if srcExpr != nil {
		switch e := srcExpr.(type) {
		case *ast.IntLit:
			// Rule 4: integer-literal autocast.
			if target.IsInteger() {
				if lo, hi, ok := types.IntegerRange(target.Name()); ok && fitsRange(e.Value, lo, hi, target.IsUnsigned()) {
					return yes(target)
				}
			}
			// Rule 5: integer literal to float.
			if target.IsFloatingPoint() {
				return yes(target)
			}
		case *ast.CharLit:
			if target.IsInteger() {
				if lo, hi, ok := types.IntegerRange(target.Name()); ok {
					v := int64(e.Value)
					if v >= lo && v <= hi {
						return yes(target)
					}
				}
			}
		case *ast.StringLit:
			// Rule 6: string literal to Pointer(const char), with or
			// without an outer optional.
			pointeeTarget := target
			if pointeeTarget.IsOptional() {
				pointeeTarget = pointeeTarget.WrappedType()
			}
			if pointeeTarget.IsPointer() && pointeeTarget.Pointee().IsBasic() && pointeeTarget.Pointee().Name() == "char" {
				return yes(target)
			}
		case *ast.TupleLit:
			// Rule 9: tuple of expressions, per-element convertibility.
			if target.IsTuple() && len(e.Elements) == len(target.Subtypes()) {
				convertedElems := make([]types.Type, len(e.Elements))
				for i, elemExpr := range e.Elements {
					typed, isTyped := elemExpr.(interface{ Type() (types.Type, bool) })
					if !isTyped {
						return no()
					}
					elemType, ok := typed.Type()
					if !ok {
						return no()
					}
					r := a.IsConvertible(elemType, target.Subtypes()[i], elemExpr)
					if !r.OK {
						return no()
					}
					convertedElems[i] = r.Converted
				}
				return yes(types.NewTuple(convertedElems...))
			}
		}
	}

	// Rule 7: basic source to Pointer(basic) when source itself
	// converts to the pointee (by-reference argument passing).
	if target.IsPointer() && src.IsBasic() && target.Pointee().IsBasic() {
		if r := a.IsConvertible(src, target.Pointee(), srcExpr); r.OK {
			return yes(target)
		}
	}

	// Rule 8: array source to Pointer(array) when elements compatible.
	if target.IsPointer() && src.IsArray() && target.Pointee().IsArray() {
		if elementsCompatible(src.ElementType(), target.Pointee().ElementType()) {
			return yes(target)
		}
	}

	return no()
}

func fitsRange(v *big.Int, lo, hi int64, unsigned bool) bool {
	if unsigned && v.Sign() < 0 {
		return false
	}
	return v.Cmp(big.NewInt(lo)) >= 0 && v.Cmp(big.NewInt(hi)) <= 0
}

func elementsCompatible(src, target types.Type) bool {
	return src.Equal(target, false)
}

// structurallyCongruent is rule 2: same-kind, compatible shape.
func (a *Analyzer) structurallyCongruent(src, target types.Type) ConvertResult {
	if src.Kind() != target.Kind() {
		return no()
	}
	switch target.Kind() {
	case types.Basic:
		if src.Name() == target.Name() && sameGenericArgs(src.GenericArgs(), target.GenericArgs()) {
			return yes(target)
		}
		return no()
	case types.Array:
		if !elementsCompatible(src.ElementType(), target.ElementType()) {
			return no()
		}
		// unsized target accepts sized source; otherwise sizes must match.
		if target.IsUnsizedArray() || src.ArraySize() == target.ArraySize() {
			return yes(target)
		}
		return no()
	case types.Tuple:
		srcSub, targetSub := src.Subtypes(), target.Subtypes()
		if len(srcSub) != len(targetSub) {
			return no()
		}
		for i := range srcSub {
			if !srcSub[i].Equal(targetSub[i], false) {
				return no()
			}
		}
		return yes(target)
	case types.Function:
		srcParams, targetParams := src.ParamTypes(), target.ParamTypes()
		if len(srcParams) != len(targetParams) || !src.ReturnType().Equal(target.ReturnType(), false) {
			return no()
		}
		for i := range srcParams {
			if !srcParams[i].Equal(targetParams[i], false) {
				return no()
			}
		}
		return yes(target)
	case types.Pointer:
		// source pointee may be mutable when target is not.
		if !src.Pointee().Equal(target.Pointee(), false) {
			return no()
		}
		if !target.Pointee().IsMutable() && src.Pointee().IsMutable() {
			return yes(target)
		}
		if src.Pointee().IsMutable() == target.Pointee().IsMutable() {
			return yes(target)
		}
		return no()
	case types.Optional:
		if r := a.structurallyCongruent(src.WrappedType(), target.WrappedType()); r.OK {
			return yes(target)
		}
		return no()
	case types.Null:
		return yes(target)
	}
	return no()
}

func sameGenericArgs(a, b []types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i], false) {
			return false
		}
	}
	return true
}

// implementsInterface checks that decl provides every field (by name +
// type) and every method (by signature) that iface requires (spec.md
// §4.5.2 rule 3).
func (a *Analyzer) implementsInterface(decl, iface *ast.TypeDecl) bool {
	for _, want := range iface.Fields {
		found := false
		for _, have := range decl.Fields {
			if have.DeclName() == want.DeclName() && have.Type.Equal(want.Type, false) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, want := range iface.Methods {
		found := false
		for _, have := range decl.Methods {
			if have.DeclName() == want.DeclName() && sameMethodSignature(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameMethodSignature(have, want *ast.MethodDecl) bool {
	if !have.Return.Equal(want.Return, false) || len(have.Params) != len(want.Params) {
		return false
	}
	for i := range have.Params {
		if !have.Params[i].Type.Equal(want.Params[i].Type, false) {
			return false
		}
	}
	return true
}
