package irgen

import (
	"github.com/llir/llvm/ir"
	irconstant "github.com/llir/llvm/ir/constant"
	irenum "github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	irvalue "github.com/llir/llvm/ir/value"

	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/types"
)

// loopTarget is one live loop's break destination (spec.md's Break
// statement, stmt.go's loopDepth twin on the sema side).
type loopTarget struct {
	after *ir.Block
}

// lowerStatements lowers stmts in order, returning the block that
// control falls through to afterward (or the block a terminator was
// just added to, if the last statement lowered was a Return/Break).
func (g *Generator) lowerStatements(b *ir.Block, stmts []ast.Statement) (*ir.Block, error) {
	cur := b
	for _, s := range stmts {
		var err error
		cur, err = g.lowerStatement(cur, s)
		if err != nil {
			return cur, err
		}
		if cur.Term != nil {
			// Unreachable code after a terminator (Return/Break): stop,
			// matching the teacher's codegen.go, which never emits past
			// a block's first terminator either.
			break
		}
	}
	return cur, nil
}

func (g *Generator) lowerStatement(b *ir.Block, s ast.Statement) (*ir.Block, error) {
	g.curSpan = s.Span()
	switch v := s.(type) {
	case *ast.Return:
		return g.lowerReturn(b, v)
	case *ast.VarStmt:
		return g.lowerVarStmt(b, v)
	case *ast.ExprStmt:
		_, b2, err := g.lowerExpression(b, v.Value)
		return b2, err
	case *ast.Defer:
		g.topFrame().deferred = append(g.topFrame().deferred, v.Value)
		return b, nil
	case *ast.Increment:
		return g.lowerIncDec(b, v.Target, true)
	case *ast.Decrement:
		return g.lowerIncDec(b, v.Target, false)
	case *ast.If:
		return g.lowerIf(b, v)
	case *ast.While:
		return g.lowerWhile(b, v)
	case *ast.For:
		return g.lowerFor(b, v)
	case *ast.Break:
		if len(g.loopStack) == 0 {
			return b, g.unimplemented("break outside a loop")
		}
		target := g.loopStack[len(g.loopStack)-1]
		b.NewBr(target.after)
		return b, nil
	case *ast.Assign:
		return g.lowerAssign(b, v)
	default:
		return b, g.unimplemented("statement kind not lowered")
	}
}

func (g *Generator) lowerReturn(b *ir.Block, r *ast.Return) (*ir.Block, error) {
	var val irvalue.Value
	cur := b
	if r.Value != nil {
		v, b2, err := g.lowerExpression(cur, r.Value)
		if err != nil {
			return b, err
		}
		cur = b2
		val = v
	}

	// Run every still-open scope's deferred expressions and deinits,
	// innermost first, without popping any of them (spec.md §4.6.4):
	// a Return nested three blocks deep still must run all three
	// frames' cleanup, and an outer Return later in the same function
	// would run them again.
	for i := len(g.deferStack) - 1; i >= 0; i-- {
		g.runFrame(cur, g.deferStack[i])
	}

	if val == nil {
		cur.NewRet(nil)
	} else {
		cur.NewRet(val)
	}
	return cur, nil
}

// runFrame emits frame's deferred expressions (LIFO) then its deinit
// calls (LIFO), per spec.md §4.6.4's declared ordering.
func (g *Generator) runFrame(b *ir.Block, frame *deferFrame) {
	for i := len(frame.deferred) - 1; i >= 0; i-- {
		_, _, _ = g.lowerExpression(b, frame.deferred[i])
	}
	for i := len(frame.deinits) - 1; i >= 0; i-- {
		g.runDeinit(b, frame.deinits[i])
	}
}

func (g *Generator) runDeinit(b *ir.Block, t deinitTarget) {
	key := mangleDeinitKey(t.decl)
	fn, ok := g.funcs[key]
	if !ok {
		return
	}
	b.NewCall(fn, t.ptr)
}

func (g *Generator) lowerVarStmt(b *ir.Block, s *ast.VarStmt) (*ir.Block, error) {
	cur := b
	var val irvalue.Value
	if s.Decl.Value != nil {
		v, b2, err := g.lowerExpression(cur, s.Decl.Value)
		if err != nil {
			return b, err
		}
		cur = b2
		val = v
	}

	lt, err := g.toIRType(s.Decl.Type)
	if err != nil {
		return b, err
	}
	alloca := cur.NewAlloca(lt)
	if val != nil {
		cur.NewStore(val, alloca)
	} else {
		cur.NewStore(irconstant.NewZeroInitializer(lt), alloca)
	}
	g.scope.locals[s.Decl.DeclName()] = alloca

	if sd, ok := g.typeDecls[mangleTypeName(s.Decl.Type)]; ok && sd.decl.Deinit != nil {
		g.topFrame().deinits = append(g.topFrame().deinits, deinitTarget{ptr: alloca, decl: sd})
	}
	return cur, nil
}

func mangleDeinitKey(sd *structDecl) string {
	return addThisParam(deinitBaseName(sd))
}

func deinitBaseName(sd *structDecl) string {
	return sd.name + ".deinit"
}

func addThisParam(base string) string {
	return base + "{this}"
}

func (g *Generator) lowerIncDec(b *ir.Block, target ast.Expression, inc bool) (*ir.Block, error) {
	ptr, cur, err := g.lowerLvaluePtr(b, target)
	if err != nil {
		return b, err
	}
	old := cur.NewLoad(elemTypeOf(ptr), ptr)
	one := irconstant.NewInt(old.Type().(*irtypes.IntType), 1)
	if inc {
		cur.NewStore(cur.NewAdd(old, one), ptr)
	} else {
		cur.NewStore(cur.NewSub(old, one), ptr)
	}
	return cur, nil
}

func (g *Generator) lowerAssign(b *ir.Block, s *ast.Assign) (*ir.Block, error) {
	ptr, cur, err := g.lowerLvaluePtr(b, s.Target)
	if err != nil {
		return b, err
	}
	val, cur2, err := g.lowerExpression(cur, s.Value)
	if err != nil {
		return b, err
	}
	cur2.NewStore(val, ptr)
	return cur2, nil
}

func (g *Generator) lowerIf(b *ir.Block, s *ast.If) (*ir.Block, error) {
	cond, cur, err := g.lowerExpression(b, s.Condition)
	if err != nil {
		return b, err
	}

	thenBlock := g.curFn.NewBlock("")
	mergeBlock := g.curFn.NewBlock("")
	elseBlock := mergeBlock
	if s.Else != nil {
		elseBlock = g.curFn.NewBlock("")
	}
	cur.NewCondBr(cond, thenBlock, elseBlock)

	g.pushScope()
	thenEnd, err := g.lowerStatements(thenBlock, s.Then)
	g.popScope()
	if err != nil {
		return b, err
	}
	if thenEnd.Term == nil {
		thenEnd.NewBr(mergeBlock)
	}

	if s.Else != nil {
		g.pushScope()
		elseEnd, err := g.lowerStatements(elseBlock, s.Else)
		g.popScope()
		if err != nil {
			return b, err
		}
		if elseEnd.Term == nil {
			elseEnd.NewBr(mergeBlock)
		}
	}

	return mergeBlock, nil
}

func (g *Generator) lowerWhile(b *ir.Block, s *ast.While) (*ir.Block, error) {
	condBlock := g.curFn.NewBlock("")
	bodyBlock := g.curFn.NewBlock("")
	afterBlock := g.curFn.NewBlock("")

	b.NewBr(condBlock)

	cond, condEnd, err := g.lowerExpression(condBlock, s.Condition)
	if err != nil {
		return b, err
	}
	condEnd.NewCondBr(cond, bodyBlock, afterBlock)

	g.loopStack = append(g.loopStack, &loopTarget{after: afterBlock})
	g.pushScope()
	bodyEnd, err := g.lowerStatements(bodyBlock, s.Body)
	g.popScope()
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	if err != nil {
		return b, err
	}
	if bodyEnd.Term == nil {
		bodyEnd.NewBr(condBlock)
	}

	return afterBlock, nil
}

// lowerFor lowers an integer-range for loop (spec.md §4.6.3: "only
// integer ranges are supported by irgen"); a non-Range iterable (a
// plain Array) is left to a future pass, flagged honestly rather than
// silently mishandled.
func (g *Generator) lowerFor(b *ir.Block, s *ast.For) (*ir.Block, error) {
	rangeType := exprType(s.Range)
	if !rangeType.IsRange() {
		return b, g.unimplemented("for-loop over a non-Range iterable")
	}

	rangeVal, cur, err := g.lowerExpression(b, s.Range)
	if err != nil {
		return b, err
	}
	lo := cur.NewExtractValue(rangeVal, 0)
	hi := cur.NewExtractValue(rangeVal, 1)

	elemDeltaType, _ := rangeType.GetIterableElementType()
	elemType := lo.Type()
	counterAlloca := cur.NewAlloca(elemType)
	cur.NewStore(lo, counterAlloca)

	condBlock := g.curFn.NewBlock("")
	bodyBlock := g.curFn.NewBlock("")
	afterBlock := g.curFn.NewBlock("")
	cur.NewBr(condBlock)

	counter := condBlock.NewLoad(elemType, counterAlloca)
	pred := rangePredicate(rangeType, elemDeltaType)
	cond := condBlock.NewICmp(pred, counter, hi)
	condBlock.NewCondBr(cond, bodyBlock, afterBlock)

	g.pushScope()
	g.scope.locals[s.Variable] = counterAlloca
	g.loopStack = append(g.loopStack, &loopTarget{after: afterBlock})
	bodyEnd, err := g.lowerStatements(bodyBlock, s.Body)
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	g.popScope()
	if err != nil {
		return b, err
	}
	if bodyEnd.Term == nil {
		next := bodyEnd.NewLoad(elemType, counterAlloca)
		incr := bodyEnd.NewAdd(next, irconstant.NewInt(elemType.(*irtypes.IntType), 1))
		bodyEnd.NewStore(incr, counterAlloca)
		bodyEnd.NewBr(condBlock)
	}

	return afterBlock, nil
}

// rangePredicate picks the loop-continuation comparison for a for-range
// (spec.md §4.6.3): "<=" for an inclusive range, "<" otherwise, signed
// or unsigned per the range's element type.
func rangePredicate(rangeType, elemType types.Type) irenum.IPred {
	signed := elemType.IsSigned()
	if rangeType.IsInclusiveRange() {
		if signed {
			return irenum.IPredSLE
		}
		return irenum.IPredULE
	}
	if signed {
		return irenum.IPredSLT
	}
	return irenum.IPredULT
}
