package ast

import (
	"github.com/delta-compiler/deltac/source"
)

type Statement interface {
	is_Statement()
	Span() source.Span
}

type stmtBase struct {
	span source.Span
}

func (s stmtBase) Span() source.Span { return s.span }

type Return struct {
	stmtBase
	Value Expression // nil for a bare "return"
}

func (s *Return) is_Statement() {}

// VarStmt is the statement form of a local variable declaration ("var x
// = ..." / "let x = ..."); distinct from the Decl family's Var, which
// names the declaration itself once registered in the symbol table.
type VarStmt struct {
	stmtBase
	Decl *VarDecl
}

func (s *VarStmt) is_Statement() {}

type Increment struct {
	stmtBase
	Target Expression
}

func (s *Increment) is_Statement() {}

type Decrement struct {
	stmtBase
	Target Expression
}

func (s *Decrement) is_Statement() {}

type ExprStmt struct {
	stmtBase
	Value Expression
}

func (s *ExprStmt) is_Statement() {}

type Defer struct {
	stmtBase
	Value Expression
}

func (s *Defer) is_Statement() {}

type If struct {
	stmtBase
	Condition Expression
	Then      []Statement
	Else      []Statement // nil if there is no else branch
}

func (s *If) is_Statement() {}

type SwitchCase struct {
	Value Expression
	Body  []Statement
}

type Switch struct {
	stmtBase
	Subject Expression
	Cases   []SwitchCase
	Default []Statement // nil if there is no default
}

func (s *Switch) is_Statement() {}

type While struct {
	stmtBase
	Condition Expression
	Body      []Statement
}

func (s *While) is_Statement() {}

// For iterates over a range expression (spec.md §3); only integer
// ranges are supported by irgen (spec.md §4.6.3).
type For struct {
	stmtBase
	Variable string
	Range    Expression
	Body     []Statement
}

func (s *For) is_Statement() {}

type Break struct {
	stmtBase
}

func (s *Break) is_Statement() {}

// Assign covers both "=" and compound forms ("+=" etc, flagged via
// Compound/Op); the parser desugars compound forms to "x = x op y"
// before irgen ever sees them (spec.md §4.6.3), so Op is informational.
type Assign struct {
	stmtBase
	Target   Expression
	Value    Expression
	Compound bool
	Op       string // "" unless Compound
}

func (s *Assign) is_Statement() {}
