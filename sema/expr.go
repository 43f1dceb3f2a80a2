package sema

import (
	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/errors"
	"github.com/delta-compiler/deltac/types"
)

// setType is a little reflection-free helper: every expr variant embeds
// exprBase, which is unexported in ast, so ast exposes SetType through
// the Expression's concrete pointer type via a small interface each
// variant already satisfies by embedding.
func setType(e ast.Expression, t types.Type) {
	if s, ok := e.(interface{ SetType(types.Type) }); ok {
		s.SetType(t)
	}
}

// TypecheckExpression sets expr's resolved type and returns it
// (spec.md §4.5, §4.5.1). writeOnly suppresses the use-after-move check
// for a Var that is only being written to (e.g. the target of an
// Assign), per spec.md §4.5.1's Var case.
func (a *Analyzer) TypecheckExpression(expr ast.Expression, writeOnly bool) (types.Type, error) {
	var t types.Type
	var err error

	switch e := expr.(type) {
	case *ast.Var:
		t, err = a.checkVar(e, writeOnly)
	case *ast.StringLit:
		t = types.NewBasic("string")
	case *ast.CharLit:
		t = types.NewBasic("char")
	case *ast.IntLit:
		t, err = a.checkIntLit(e)
	case *ast.FloatLit:
		t = types.NewBasic("float64")
	case *ast.BoolLit:
		t = types.NewBasic("bool")
	case *ast.NullLit:
		t = types.NewNull()
	case *ast.ArrayLit:
		t, err = a.checkArrayLit(e)
	case *ast.TupleLit:
		t, err = a.checkTupleLit(e)
	case *ast.Prefix:
		t, err = a.checkPrefix(e)
	case *ast.Binary:
		t, err = a.checkBinary(e)
	case *ast.Call:
		t, err = a.checkCall(e)
	case *ast.Cast:
		t, err = a.checkCast(e)
	case *ast.Sizeof:
		t = types.NewBasic("uint64")
	case *ast.Member:
		t, err = a.checkMember(e)
	case *ast.Subscript:
		t, err = a.checkSubscript(e)
	case *ast.Unwrap:
		t, err = a.checkUnwrap(e)
	default:
		panic("sema: unhandled expression kind")
	}
	if err != nil {
		return types.Type{}, err
	}
	setType(expr, t)
	return t, nil
}

func (a *Analyzer) checkVar(e *ast.Var, writeOnly bool) (types.Type, error) {
	decl := a.scope.find(e.Name)
	if decl == nil {
		found := a.file.Resolve(e.Name)
		if len(found) == 0 {
			return types.Type{}, errors.UnknownIdentifier{Name: e.Name, Location: e.Span()}
		}
		decl = found[0]
	}
	e.SetCallee(decl)

	switch d := decl.(type) {
	case *ast.VarDecl:
		if d.Moved && !writeOnly {
			return types.Type{}, errors.UseAfterMove{Name: e.Name, Location: e.Span()}
		}
		return d.Type, nil
	case *ast.ParamDecl:
		if d.Moved && !writeOnly {
			return types.Type{}, errors.UseAfterMove{Name: e.Name, Location: e.Span()}
		}
		return d.Type, nil
	case *ast.FieldDecl:
		t := d.Type
		if a.receiver != nil && !a.receiverMut {
			t = t.AsImmutable()
		}
		return t, nil
	case *ast.TypeDecl:
		return types.NewBasic(d.DeclName(), d.GenericArgs...), nil
	default:
		return types.Type{}, errors.UnknownIdentifier{Name: e.Name, Location: e.Span()}
	}
}

func (a *Analyzer) checkIntLit(e *ast.IntLit) (types.Type, error) {
	lo32, hi32, _ := types.IntegerRange("int32")
	if fitsRange(e.Value, lo32, hi32, false) {
		return types.NewBasic("int32"), nil
	}
	lo64, hi64, _ := types.IntegerRange("int64")
	if fitsRange(e.Value, lo64, hi64, false) {
		return types.NewBasic("int64"), nil
	}
	return types.Type{}, errors.OutOfRangeLiteral{Literal: e.Value.String(), Location: e.Span()}
}

func (a *Analyzer) checkArrayLit(e *ast.ArrayLit) (types.Type, error) {
	if len(e.Elements) == 0 {
		return types.Type{}, errors.TypeMismatch{Want: "non-empty array literal", Got: "empty", Location: e.Span()}
	}
	first, err := a.TypecheckExpression(e.Elements[0], false)
	if err != nil {
		return types.Type{}, err
	}
	for _, elem := range e.Elements[1:] {
		t, err := a.TypecheckExpression(elem, false)
		if err != nil {
			return types.Type{}, err
		}
		if !t.Equal(first, false) {
			return types.Type{}, errors.TypeMismatch{Want: first.String(), Got: t.String(), Location: elem.Span()}
		}
	}
	return types.NewArray(first, len(e.Elements)), nil
}

func (a *Analyzer) checkTupleLit(e *ast.TupleLit) (types.Type, error) {
	elems := make([]types.Type, len(e.Elements))
	for i, elem := range e.Elements {
		t, err := a.TypecheckExpression(elem, false)
		if err != nil {
			return types.Type{}, err
		}
		elems[i] = t
	}
	return types.NewTuple(elems...), nil
}

func (a *Analyzer) checkPrefix(e *ast.Prefix) (types.Type, error) {
	switch e.Op {
	case "!":
		t, err := a.TypecheckExpression(e.Operand, false)
		if err != nil {
			return types.Type{}, err
		}
		if !t.IsBool() {
			return types.Type{}, errors.TypeMismatch{Want: "bool", Got: t.String(), Location: e.Span()}
		}
		return types.NewBasic("bool"), nil
	case "*":
		t, err := a.TypecheckExpression(e.Operand, false)
		if err != nil {
			return types.Type{}, err
		}
		if t.IsOptional() && t.WrappedType().IsPointer() {
			return types.Type{}, errors.NullDereference{Location: e.Span()}
		}
		if !t.IsPointer() {
			return types.Type{}, errors.TypeMismatch{Want: "pointer", Got: t.String(), Location: e.Span()}
		}
		return t.Pointee(), nil
	case "&":
		t, err := a.TypecheckExpression(e.Operand, false)
		if err != nil {
			return types.Type{}, err
		}
		return types.NewPointer(t, t.IsMutable()), nil
	case "-", "+":
		t, err := a.TypecheckExpression(e.Operand, false)
		if err != nil {
			return types.Type{}, err
		}
		if !t.IsInteger() && !t.IsFloatingPoint() {
			return types.Type{}, errors.TypeMismatch{Want: "numeric", Got: t.String(), Location: e.Span()}
		}
		return t, nil
	case "~":
		t, err := a.TypecheckExpression(e.Operand, false)
		if err != nil {
			return types.Type{}, err
		}
		if !t.IsInteger() {
			return types.Type{}, errors.TypeMismatch{Want: "integer", Got: t.String(), Location: e.Span()}
		}
		return t, nil
	default:
		panic("sema: unhandled prefix operator " + e.Op)
	}
}

var comparisonOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}
var bitwiseOps = map[string]bool{"&": true, "|": true, "^": true, "<<": true, ">>": true}
var logicalOps = map[string]bool{"&&": true, "||": true}
var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}

func (a *Analyzer) checkBinary(e *ast.Binary) (types.Type, error) {
	lt, err := a.TypecheckExpression(e.Left, false)
	if err != nil {
		return types.Type{}, err
	}
	rt, err := a.TypecheckExpression(e.Right, false)
	if err != nil {
		return types.Type{}, err
	}

	if logicalOps[e.Op] {
		if !lt.IsBool() || !rt.IsBool() {
			return types.Type{}, errors.TypeMismatch{Want: "bool && bool", Got: lt.String() + " " + e.Op + " " + rt.String(), Location: e.Span()}
		}
		return types.NewBasic("bool"), nil
	}

	if lt.IsPointer() && rt.IsInteger() && arithmeticOps[e.Op] && e.Op != "*" && e.Op != "/" && e.Op != "%" {
		return lt, nil
	}

	if bitwiseOps[e.Op] {
		if lt.IsFloatingPoint() || rt.IsFloatingPoint() {
			return types.Type{}, errors.TypeMismatch{Want: "integer operands", Got: lt.String() + "/" + rt.String(), Location: e.Span()}
		}
	}

	if !lt.Equal(rt, false) {
		wider, err := a.unifyOperandTypes(lt, rt, e.Left, e.Right)
		if err != nil {
			return a.reinterpretAsOperatorCall(e, lt, rt)
		}
		lt = wider
		rt = wider
	}

	if comparisonOps[e.Op] {
		return types.NewBasic("bool"), nil
	}
	return lt, nil
}

// unifyOperandTypes tests convertibility LHS→RHS before RHS→LHS
// (spec.md §5's ordering guarantee); on success it retypes the
// convertible side's expression to the wider type.
func (a *Analyzer) unifyOperandTypes(lt, rt types.Type, left, right ast.Expression) (types.Type, error) {
	if r := a.IsConvertible(lt, rt, left); r.OK {
		setType(left, r.Converted)
		return r.Converted, nil
	}
	if r := a.IsConvertible(rt, lt, right); r.OK {
		setType(right, r.Converted)
		return r.Converted, nil
	}
	return types.Type{}, errors.NotConvertible{From: lt.String(), To: rt.String()}
}

// reinterpretAsOperatorCall re-checks e as a Call whose function name
// is the operator symbol, with the two operands as arguments.
// checkBinary reaches it only when the operand types differ and neither
// converts to the other; a Binary whose operand types are equal or
// convertible is always checked as a builtin operator, whatever those
// types are.
func (a *Analyzer) reinterpretAsOperatorCall(e *ast.Binary, lt, rt types.Type) (types.Type, error) {
	call := &ast.Call{
		Function: ast.NewVar(e.Op, e.Span()),
		Args:     []ast.CallArg{{Value: e.Left}, {Value: e.Right}},
	}
	return a.checkCall(call)
}

func (a *Analyzer) checkCast(e *ast.Cast) (types.Type, error) {
	srcType, err := a.TypecheckExpression(e.Operand, false)
	if err != nil {
		return types.Type{}, err
	}
	src, target := srcType, e.Target

	srcPtr := src
	if src.IsOptional() {
		srcPtr = src.WrappedType()
	}
	targetPtr := target
	if target.IsOptional() {
		targetPtr = target.WrappedType()
	}

	if !srcPtr.IsPointer() || !targetPtr.IsPointer() {
		return types.Type{}, errors.InvalidCast{From: src.String(), To: target.String(), Location: e.Span()}
	}

	isVoidPtr := func(t types.Type) bool { return t.Pointee().IsBasic() && t.Pointee().Name() == "void" }
	if isVoidPtr(srcPtr) || isVoidPtr(targetPtr) || srcPtr.Pointee().Equal(targetPtr.Pointee(), false) {
		// target mutability must be a subset of source mutability.
		if targetPtr.Pointee().IsMutable() && !srcPtr.Pointee().IsMutable() {
			return types.Type{}, errors.InvalidCast{From: src.String(), To: target.String(), Location: e.Span()}
		}
		return target, nil
	}
	return types.Type{}, errors.InvalidCast{From: src.String(), To: target.String(), Location: e.Span()}
}

func (a *Analyzer) checkMember(e *ast.Member) (types.Type, error) {
	baseType, err := a.TypecheckExpression(e.Base, false)
	if err != nil {
		return types.Type{}, err
	}
	for baseType.IsPointer() {
		baseType = baseType.Pointee()
	}

	if baseType.IsArray() || baseType.IsString() {
		switch e.Field {
		case "data":
			elem := types.NewBasic("char")
			if baseType.IsArray() {
				elem = baseType.ElementType()
			}
			return types.NewPointer(elem, baseType.IsMutable()), nil
		case "count":
			return types.NewBasic("int32"), nil
		default:
			return types.Type{}, errors.UnknownIdentifier{Name: e.Field, Location: e.Span()}
		}
	}

	if !baseType.IsBasic() {
		return types.Type{}, errors.TypeMismatch{Want: "struct, union, array, or string", Got: baseType.String(), Location: e.Span()}
	}
	decl := a.lookupTypeDecl(baseType.Name())
	if decl == nil {
		return types.Type{}, errors.UnknownIdentifier{Name: baseType.Name(), Location: e.Span()}
	}
	for _, f := range decl.Fields {
		if f.DeclName() == e.Field {
			t := f.Type
			// Inside init/deinit on `this`, fields yield a mutable
			// view regardless of the receiver's mutability (spec.md
			// §4.5.1).
			if _, isVar := e.Base.(*ast.Var); isVar && a.receiver == decl && (a.receiverMut || a.inDeinit) {
				t = t.AsMutable()
			} else if !baseType.IsMutable() {
				t = t.AsImmutable()
			}
			return t, nil
		}
	}
	return types.Type{}, errors.UnknownIdentifier{Name: e.Field, Location: e.Span()}
}

func (a *Analyzer) checkSubscript(e *ast.Subscript) (types.Type, error) {
	baseType, err := a.TypecheckExpression(e.Base, false)
	if err != nil {
		return types.Type{}, err
	}
	arrType := baseType
	if arrType.IsPointer() && arrType.Pointee().IsArray() {
		arrType = arrType.Pointee()
	}
	if !arrType.IsArray() {
		return types.Type{}, errors.TypeMismatch{Want: "array or pointer-to-array", Got: baseType.String(), Location: e.Span()}
	}

	idxType, err := a.TypecheckExpression(e.Index, false)
	if err != nil {
		return types.Type{}, err
	}
	if r := a.IsConvertible(idxType, types.NewBasic("int32"), e.Index); !r.OK {
		return types.Type{}, errors.NotConvertible{From: idxType.String(), To: "int", Location: e.Span()}
	}

	if lit, ok := e.Index.(*ast.IntLit); ok && !arrType.IsUnsizedArray() {
		idx := lit.Value.Int64()
		if idx < 0 || idx >= int64(arrType.ArraySize()) {
			return types.Type{}, errors.OutOfBounds{Index: idx, Size: int64(arrType.ArraySize()), Location: e.Span()}
		}
	}

	return arrType.ElementType(), nil
}

func (a *Analyzer) checkUnwrap(e *ast.Unwrap) (types.Type, error) {
	t, err := a.TypecheckExpression(e.Operand, false)
	if err != nil {
		return types.Type{}, err
	}
	if !t.IsOptional() {
		return types.Type{}, errors.TypeMismatch{Want: "optional", Got: t.String(), Location: e.Span()}
	}
	return t.WrappedType(), nil
}
