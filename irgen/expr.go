package irgen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	irconstant "github.com/llir/llvm/ir/constant"
	irenum "github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	irvalue "github.com/llir/llvm/ir/value"

	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/mangle"
	"github.com/delta-compiler/deltac/types"
)

// exprType recovers the type sema assigned to e. Every Expression
// concrete type embeds exprBase, which promotes this method, so the
// type assertion always succeeds for a tree that has already passed
// sema — mirrors sema/expr.go's own setType helper, the read side of
// the same unexported-field workaround.
func exprType(e ast.Expression) types.Type {
	if t, ok := e.(interface{ Type() (types.Type, bool) }); ok {
		if v, set := t.Type(); set {
			return v
		}
	}
	return types.Type{}
}

// lowerExpression lowers e for its value, returning the block
// subsequent instructions should be appended to (the short-circuit
// operators && and || end in a different block than b, per spec.md
// §4.6.4's explicit-blocks-and-phi request).
func (g *Generator) lowerExpression(b *ir.Block, e ast.Expression) (irvalue.Value, *ir.Block, error) {
	g.curSpan = e.Span()
	switch v := e.(type) {
	case *ast.IntLit:
		lt, err := g.toIRType(exprType(e))
		if err != nil {
			return nil, b, err
		}
		return irconstant.NewInt(lt.(*irtypes.IntType), v.Value.Int64()), b, nil
	case *ast.FloatLit:
		lt, err := g.toIRType(exprType(e))
		if err != nil {
			return nil, b, err
		}
		return irconstant.NewFloat(lt.(*irtypes.FloatType), v.Value), b, nil
	case *ast.BoolLit:
		if v.Value {
			return irconstant.True, b, nil
		}
		return irconstant.False, b, nil
	case *ast.CharLit:
		return irconstant.NewInt(irtypes.I8, int64(v.Value)), b, nil
	case *ast.NullLit:
		return irconstant.NewNull(irtypes.NewPointer(irtypes.I8)), b, nil
	case *ast.StringLit:
		return g.lowerStringLit(b, v.Value), b, nil
	case *ast.Var:
		return g.lowerVar(b, v)
	case *ast.Prefix:
		return g.lowerPrefix(b, v)
	case *ast.Binary:
		return g.lowerBinary(b, v)
	case *ast.Call:
		return g.lowerCall(b, v)
	case *ast.Member:
		ptr, b2, err := g.lowerMemberPtr(b, v)
		if err != nil {
			return nil, b, err
		}
		return b2.NewLoad(elemTypeOf(ptr), ptr), b2, nil
	case *ast.Subscript:
		ptr, b2, err := g.lowerSubscriptPtr(b, v)
		if err != nil {
			return nil, b, err
		}
		return b2.NewLoad(elemTypeOf(ptr), ptr), b2, nil
	case *ast.Cast:
		return g.lowerCast(b, v)
	case *ast.Unwrap:
		inner, b2, err := g.lowerExpression(b, v.Operand)
		if err != nil {
			return nil, b, err
		}
		return inner, b2, nil
	default:
		return nil, b, g.unimplemented("expression kind not lowered")
	}
}

func elemTypeOf(ptr irvalue.Value) irtypes.Type {
	return ptr.Type().(*irtypes.PointerType).ElemType
}

func (g *Generator) lowerStringLit(b *ir.Block, s string) irvalue.Value {
	name := fmt.Sprintf("_str_%d", g.strCounter)
	g.strCounter++
	data := g.mod.NewGlobalDef(name, irconstant.NewCharArrayFromString(s+"\x00"))

	str := b.NewAlloca(g.stringLLVM())
	countPtr := b.NewGetElementPtr(g.stringLLVM(), str, irconstant.NewInt(irtypes.I32, 0), irconstant.NewInt(irtypes.I32, 0))
	b.NewStore(irconstant.NewInt(irtypes.I64, int64(len(s))), countPtr)
	dataPtr := b.NewGetElementPtr(g.stringLLVM(), str, irconstant.NewInt(irtypes.I32, 0), irconstant.NewInt(irtypes.I32, 1))
	b.NewStore(b.NewBitCast(data, irtypes.NewPointer(irtypes.I8)), dataPtr)
	return str
}

func (g *Generator) lowerVar(b *ir.Block, v *ast.Var) (irvalue.Value, *ir.Block, error) {
	if alloca, ok := g.scope.find(v.Name); ok {
		return b.NewLoad(elemTypeOf(alloca), alloca), b, nil
	}
	if fn, ok := g.funcs[mangle.Decl(v.Callee())]; ok {
		return fn, b, nil
	}
	return nil, b, g.unimplemented("unresolved variable " + v.Name)
}

// lowerLvaluePtr returns the address of an lvalue expression, the
// shared entry point assignment and increment/decrement lowering both
// need. It covers the Var, Member, Subscript and `*` cases of
// ast.IsLvalue; StringLit and ArrayLit, which IsLvalue also accepts,
// are reported as unimplemented.
func (g *Generator) lowerLvaluePtr(b *ir.Block, e ast.Expression) (irvalue.Value, *ir.Block, error) {
	switch v := e.(type) {
	case *ast.Var:
		if alloca, ok := g.scope.find(v.Name); ok {
			return alloca, b, nil
		}
		return nil, b, g.unimplemented("assignment to unresolved variable " + v.Name)
	case *ast.Member:
		return g.lowerMemberPtr(b, v)
	case *ast.Subscript:
		return g.lowerSubscriptPtr(b, v)
	case *ast.Prefix:
		if v.Op == "*" {
			return g.lowerExpression(b, v.Operand)
		}
	}
	return nil, b, g.unimplemented("expression is not an lvalue")
}

func (g *Generator) lowerMemberPtr(b *ir.Block, m *ast.Member) (irvalue.Value, *ir.Block, error) {
	baseType := exprType(m.Base)
	for baseType.IsPointer() {
		baseType = baseType.Pointee()
	}
	if baseType.IsArray() || baseType.IsString() {
		return g.lowerFatPointerField(b, m)
	}

	base, b2, err := g.lowerMemberBase(b, m.Base)
	if err != nil {
		return nil, b, err
	}

	sd, ok := g.typeDecls[mangleTypeName(baseType)]
	if !ok {
		return nil, b, g.unimplemented("unknown struct type " + baseType.String())
	}
	idx := -1
	for i, name := range sd.fieldNames {
		if name == m.Field {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, b, g.unimplemented("unknown field " + m.Field)
	}
	st := elemTypeOf(base).(*irtypes.StructType)
	return b2.NewGetElementPtr(st, base, irconstant.NewInt(irtypes.I32, 0), irconstant.NewInt(irtypes.I32, int64(idx))), b2, nil
}

// lowerMemberBase lowers the struct-valued base of a field access to a
// pointer: a Var already gives an alloca'd pointer directly, but any
// other expression needs its value materialized through a fresh alloca
// first, since GetElementPtr always indexes through a pointer.
func (g *Generator) lowerMemberBase(b *ir.Block, e ast.Expression) (irvalue.Value, *ir.Block, error) {
	if v, ok := e.(*ast.Var); ok {
		if alloca, ok := g.scope.find(v.Name); ok {
			return alloca, b, nil
		}
	}
	if _, ok := e.(*ast.Prefix); ok {
		return g.lowerExpression(b, e)
	}
	val, b2, err := g.lowerExpression(b, e)
	if err != nil {
		return nil, b, err
	}
	if _, isPtr := val.Type().(*irtypes.PointerType); isPtr {
		return val, b2, nil
	}
	alloca := b2.NewAlloca(val.Type())
	b2.NewStore(val, alloca)
	return alloca, b2, nil
}

func (g *Generator) lowerFatPointerField(b *ir.Block, m *ast.Member) (irvalue.Value, *ir.Block, error) {
	base, b2, err := g.lowerMemberBase(b, m.Base)
	if err != nil {
		return nil, b, err
	}
	st := elemTypeOf(base).(*irtypes.StructType)
	idx := int64(0)
	if m.Field == "data" {
		idx = 1
	}
	return b2.NewGetElementPtr(st, base, irconstant.NewInt(irtypes.I32, 0), irconstant.NewInt(irtypes.I32, idx)), b2, nil
}

func (g *Generator) lowerSubscriptPtr(b *ir.Block, s *ast.Subscript) (irvalue.Value, *ir.Block, error) {
	base, b2, err := g.lowerMemberBase(b, s.Base)
	if err != nil {
		return nil, b, err
	}
	idx, b3, err := g.lowerExpression(b2, s.Index)
	if err != nil {
		return nil, b, err
	}
	arrType := elemTypeOf(base)
	if st, ok := arrType.(*irtypes.ArrayType); ok {
		_ = st
		return b3.NewGetElementPtr(arrType, base, irconstant.NewInt(irtypes.I32, 0), idx), b3, nil
	}
	// fat pointer: gep into the data field, then index that pointer.
	data := b3.NewGetElementPtr(arrType.(*irtypes.StructType), base, irconstant.NewInt(irtypes.I32, 0), irconstant.NewInt(irtypes.I32, 1))
	loaded := b3.NewLoad(elemTypeOf(data), data)
	return b3.NewGetElementPtr(elemTypeOf(loaded), loaded, idx), b3, nil
}

func (g *Generator) lowerPrefix(b *ir.Block, p *ast.Prefix) (irvalue.Value, *ir.Block, error) {
	switch p.Op {
	case "&":
		return g.lowerLvaluePtr(b, p.Operand)
	case "*":
		ptr, b2, err := g.lowerExpression(b, p.Operand)
		if err != nil {
			return nil, b, err
		}
		return b2.NewLoad(elemTypeOf(ptr), ptr), b2, nil
	case "!":
		v, b2, err := g.lowerExpression(b, p.Operand)
		if err != nil {
			return nil, b, err
		}
		return b2.NewXor(v, irconstant.True), b2, nil
	case "-":
		v, b2, err := g.lowerExpression(b, p.Operand)
		if err != nil {
			return nil, b, err
		}
		if exprType(p.Operand).IsFloatingPoint() {
			return b2.NewFNeg(v), b2, nil
		}
		return b2.NewSub(irconstant.NewInt(v.Type().(*irtypes.IntType), 0), v), b2, nil
	case "+":
		return g.lowerExpression(b, p.Operand)
	case "~":
		v, b2, err := g.lowerExpression(b, p.Operand)
		if err != nil {
			return nil, b, err
		}
		allOnes := irconstant.NewInt(v.Type().(*irtypes.IntType), -1)
		return b2.NewXor(v, allOnes), b2, nil
	default:
		return nil, b, g.unimplemented("prefix operator " + p.Op)
	}
}

// lowerBinary lowers Binary for both ordinary arithmetic/comparison and
// && / || short-circuit evaluation via explicit blocks and a phi
// (spec.md §4.6.4, DESIGN.md's previously-unimplemented item),
// following the teacher's codegen.go If-expression shape (new blocks +
// ir.NewIncoming) for the branch/merge structure.
func (g *Generator) lowerBinary(b *ir.Block, bin *ast.Binary) (irvalue.Value, *ir.Block, error) {
	if bin.Op == "&&" || bin.Op == "||" {
		return g.lowerShortCircuit(b, bin)
	}

	lhs, b2, err := g.lowerExpression(b, bin.Left)
	if err != nil {
		return nil, b, err
	}
	rhs, b3, err := g.lowerExpression(b2, bin.Right)
	if err != nil {
		return nil, b, err
	}

	floating := exprType(bin.Left).IsFloatingPoint() || exprType(bin.Right).IsFloatingPoint()
	signed := exprType(bin.Left).IsSigned() || exprType(bin.Right).IsSigned()

	switch bin.Op {
	case "+":
		if floating {
			return b3.NewFAdd(lhs, rhs), b3, nil
		}
		return b3.NewAdd(lhs, rhs), b3, nil
	case "-":
		if floating {
			return b3.NewFSub(lhs, rhs), b3, nil
		}
		return b3.NewSub(lhs, rhs), b3, nil
	case "*":
		if floating {
			return b3.NewFMul(lhs, rhs), b3, nil
		}
		return b3.NewMul(lhs, rhs), b3, nil
	case "/":
		if floating {
			return b3.NewFDiv(lhs, rhs), b3, nil
		}
		if signed {
			return b3.NewSDiv(lhs, rhs), b3, nil
		}
		return b3.NewUDiv(lhs, rhs), b3, nil
	case "%":
		if floating {
			return b3.NewFRem(lhs, rhs), b3, nil
		}
		if signed {
			return b3.NewSRem(lhs, rhs), b3, nil
		}
		return b3.NewURem(lhs, rhs), b3, nil
	case "&":
		return b3.NewAnd(lhs, rhs), b3, nil
	case "|":
		return b3.NewOr(lhs, rhs), b3, nil
	case "^":
		return b3.NewXor(lhs, rhs), b3, nil
	case "<<":
		return b3.NewShl(lhs, rhs), b3, nil
	case ">>":
		if signed {
			return b3.NewAShr(lhs, rhs), b3, nil
		}
		return b3.NewLShr(lhs, rhs), b3, nil
	default:
		pred, ok := comparePred(bin.Op, floating, signed)
		if !ok {
			return nil, b, g.unimplemented("binary operator " + bin.Op)
		}
		if floating {
			return b3.NewFCmp(pred.(irenum.FPred), lhs, rhs), b3, nil
		}
		return b3.NewICmp(pred.(irenum.IPred), lhs, rhs), b3, nil
	}
}

func comparePred(op string, floating, signed bool) (interface{}, bool) {
	if floating {
		switch op {
		case "==":
			return irenum.FPredOEQ, true
		case "!=":
			return irenum.FPredONE, true
		case "<":
			return irenum.FPredOLT, true
		case "<=":
			return irenum.FPredOLE, true
		case ">":
			return irenum.FPredOGT, true
		case ">=":
			return irenum.FPredOGE, true
		}
		return nil, false
	}
	switch op {
	case "==":
		return irenum.IPredEQ, true
	case "!=":
		return irenum.IPredNE, true
	case "<":
		if signed {
			return irenum.IPredSLT, true
		}
		return irenum.IPredULT, true
	case "<=":
		if signed {
			return irenum.IPredSLE, true
		}
		return irenum.IPredULE, true
	case ">":
		if signed {
			return irenum.IPredSGT, true
		}
		return irenum.IPredUGT, true
	case ">=":
		if signed {
			return irenum.IPredSGE, true
		}
		return irenum.IPredUGE, true
	}
	return nil, false
}

func (g *Generator) lowerShortCircuit(b *ir.Block, bin *ast.Binary) (irvalue.Value, *ir.Block, error) {
	lhs, lhsBlock, err := g.lowerExpression(b, bin.Left)
	if err != nil {
		return nil, b, err
	}

	rhsBlock := g.curFn.NewBlock("")
	mergeBlock := g.curFn.NewBlock("")

	if bin.Op == "&&" {
		lhsBlock.NewCondBr(lhs, rhsBlock, mergeBlock)
	} else {
		lhsBlock.NewCondBr(lhs, mergeBlock, rhsBlock)
	}

	rhs, rhsEnd, err := g.lowerExpression(rhsBlock, bin.Right)
	if err != nil {
		return nil, b, err
	}
	rhsEnd.NewBr(mergeBlock)

	phi := mergeBlock.NewPhi(ir.NewIncoming(lhs, lhsBlock), ir.NewIncoming(rhs, rhsEnd))
	return phi, mergeBlock, nil
}

func (g *Generator) lowerCast(b *ir.Block, c *ast.Cast) (irvalue.Value, *ir.Block, error) {
	val, b2, err := g.lowerExpression(b, c.Operand)
	if err != nil {
		return nil, b, err
	}
	target, err := g.toIRType(c.Target)
	if err != nil {
		return nil, b, err
	}
	return b2.NewBitCast(val, target), b2, nil
}

// lowerCall lowers a call through c.Callee(), the declaration sema's
// overload resolution chose (spec.md §4.5.3), looking its prototype up
// by mangle.ExtendWithParamNames of mangle.Decl; c.MangledName is not
// read. irgen never re-derives a candidate, and it finds only the
// prototypes declared in pass 1: those of the module files' top-level
// declarations and of their TypeDecls' members. A generic instantiation
// that sema registers only in the symbol table has no prototype here,
// so a call to one is reported as errors.Unimplemented.
func (g *Generator) lowerCall(b *ir.Block, c *ast.Call) (irvalue.Value, *ir.Block, error) {
	callee := c.Callee()
	if callee == nil {
		return nil, b, g.unimplemented("call with no resolved callee")
	}
	key := mangle.ExtendWithParamNames(mangle.Decl(callee), calleeParamNames(callee))
	fn, ok := g.funcs[key]
	if !ok {
		return nil, b, g.unimplemented("callee " + mangle.Decl(callee) + " not declared")
	}

	var args []irvalue.Value
	cur := b
	if c.Receiver != nil {
		recvPtr, b2, err := g.lowerMemberBase(cur, receiverExprOf(c))
		if err != nil {
			return nil, b, err
		}
		cur = b2
		args = append(args, recvPtr)
	}
	for _, a := range c.Args {
		v, b2, err := g.lowerExpression(cur, a.Value)
		if err != nil {
			return nil, b, err
		}
		cur = b2
		args = append(args, v)
	}
	return cur.NewCall(fn, args...), cur, nil
}

// receiverExprOf recovers the method-call's receiver expression: the
// Base of a Member Function (spec.md §4.2's Call.Receiver).
func receiverExprOf(c *ast.Call) ast.Expression {
	if m, ok := c.Function.(*ast.Member); ok {
		return m.Base
	}
	return c.Function
}

func calleeParamNames(d ast.Decl) []string {
	switch v := d.(type) {
	case *ast.FunctionDecl:
		return paramNames(v.Params)
	case *ast.MethodDecl:
		return append([]string{"this"}, paramNames(v.Params)...)
	case *ast.InitDecl:
		return paramNames(v.Params)
	case *ast.DeinitDecl:
		return []string{"this"}
	default:
		return nil
	}
}
