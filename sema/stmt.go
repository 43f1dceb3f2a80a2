package sema

import (
	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/errors"
)

// TypecheckStatement dispatches on s's kind (spec.md §4.5, statement
// forms listed alongside expression typing in §4.5.1).
func (a *Analyzer) TypecheckStatement(s ast.Statement) error {
	switch v := s.(type) {
	case *ast.Return:
		return a.checkReturn(v)
	case *ast.VarStmt:
		return a.checkVarStmt(v)
	case *ast.Increment:
		return a.checkIncDec(v.Target)
	case *ast.Decrement:
		return a.checkIncDec(v.Target)
	case *ast.ExprStmt:
		_, err := a.TypecheckExpression(v.Value, false)
		return err
	case *ast.Defer:
		_, err := a.TypecheckExpression(v.Value, false)
		return err
	case *ast.If:
		return a.checkIf(v)
	case *ast.Switch:
		return a.checkSwitch(v)
	case *ast.While:
		return a.checkWhile(v)
	case *ast.For:
		return a.checkFor(v)
	case *ast.Break:
		if a.loopDepth == 0 {
			return errors.TypeMismatch{Want: "break inside a loop", Got: "break outside any loop", Location: v.Span()}
		}
		return nil
	case *ast.Assign:
		return a.checkAssign(v)
	default:
		panic("sema: unhandled statement kind")
	}
}

func (a *Analyzer) checkReturn(s *ast.Return) error {
	if s.Value == nil {
		if !a.currentReturn.IsVoid() {
			return errors.TypeMismatch{Want: a.currentReturn.String(), Got: "void", Location: s.Span()}
		}
		return nil
	}
	t, err := a.TypecheckExpression(s.Value, false)
	if err != nil {
		return err
	}
	if r := a.IsConvertible(t, a.currentReturn, s.Value); !r.OK {
		return errors.NotConvertible{From: t.String(), To: a.currentReturn.String(), Location: s.Span()}
	}
	return nil
}

func (a *Analyzer) checkVarStmt(s *ast.VarStmt) error {
	if err := a.TypecheckDeclaration(s.Decl); err != nil {
		return err
	}
	a.define(s.Decl.DeclName(), s.Decl)
	return nil
}

func (a *Analyzer) checkIncDec(target ast.Expression) error {
	t, err := a.TypecheckExpression(target, false)
	if err != nil {
		return err
	}
	if !ast.IsLvalue(target) {
		return errors.MutabilityViolation{Reason: "increment/decrement target is not an lvalue", Location: target.Span()}
	}
	if !t.IsMutable() {
		return errors.MutabilityViolation{Reason: "increment/decrement target is not mutable", Location: target.Span()}
	}
	if !t.IsInteger() {
		return errors.TypeMismatch{Want: "integer", Got: t.String(), Location: target.Span()}
	}
	return nil
}

func (a *Analyzer) checkBody(body []ast.Statement) error {
	a.pushScope()
	defer a.popScope()
	for _, s := range body {
		if err := a.TypecheckStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkIf(s *ast.If) error {
	t, err := a.TypecheckExpression(s.Condition, false)
	if err != nil {
		return err
	}
	if !t.IsBool() {
		return errors.TypeMismatch{Want: "bool", Got: t.String(), Location: s.Condition.Span()}
	}
	if err := a.checkBody(s.Then); err != nil {
		return err
	}
	if s.Else != nil {
		return a.checkBody(s.Else)
	}
	return nil
}

func (a *Analyzer) checkSwitch(s *ast.Switch) error {
	subjectType, err := a.TypecheckExpression(s.Subject, false)
	if err != nil {
		return err
	}
	for _, c := range s.Cases {
		ct, err := a.TypecheckExpression(c.Value, false)
		if err != nil {
			return err
		}
		if r := a.IsConvertible(ct, subjectType, c.Value); !r.OK {
			return errors.NotConvertible{From: ct.String(), To: subjectType.String(), Location: c.Value.Span()}
		}
		if err := a.checkBody(c.Body); err != nil {
			return err
		}
	}
	if s.Default != nil {
		return a.checkBody(s.Default)
	}
	return nil
}

func (a *Analyzer) checkWhile(s *ast.While) error {
	t, err := a.TypecheckExpression(s.Condition, false)
	if err != nil {
		return err
	}
	if !t.IsBool() {
		return errors.TypeMismatch{Want: "bool", Got: t.String(), Location: s.Condition.Span()}
	}
	a.loopDepth++
	defer func() { a.loopDepth-- }()
	return a.checkBody(s.Body)
}

func (a *Analyzer) checkFor(s *ast.For) error {
	rangeType, err := a.TypecheckExpression(s.Range, false)
	if err != nil {
		return err
	}
	elem, ok := rangeType.GetIterableElementType()
	if !ok {
		return errors.NonIterableRange{Type: rangeType.String(), Location: s.Range.Span()}
	}

	a.pushScope()
	defer a.popScope()
	a.define(s.Variable, ast.NewParamDecl(s.Variable, s.Span(), elem))

	a.loopDepth++
	defer func() { a.loopDepth-- }()
	for _, stmt := range s.Body {
		if err := a.TypecheckStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkAssign(s *ast.Assign) error {
	if !ast.IsLvalue(s.Target) {
		return errors.MutabilityViolation{Reason: "assignment target is not an lvalue", Location: s.Target.Span()}
	}
	targetType, err := a.TypecheckExpression(s.Target, true)
	if err != nil {
		return err
	}
	if !targetType.IsMutable() {
		return errors.MutabilityViolation{Reason: "assignment target is not mutable", Location: s.Target.Span()}
	}
	valueType, err := a.TypecheckExpression(s.Value, false)
	if err != nil {
		return err
	}
	if r := a.IsConvertible(valueType, targetType, s.Value); !r.OK {
		return errors.NotConvertible{From: valueType.String(), To: targetType.String(), Location: s.Span()}
	}
	if v, ok := s.Target.(*ast.Var); ok {
		switch decl := v.Callee().(type) {
		case *ast.VarDecl:
			decl.Moved = false
		case *ast.ParamDecl:
			decl.Moved = false
		}
	}
	return nil
}
