// Package ast is the Delta abstract syntax tree (spec.md §3, §4.2): three
// tagged-variant families (Expression, Statement, Declaration), each
// carrying a source.Span. sema annotates expressions with a resolved
// types.Type exactly once; irgen never mutates the tree.
package ast

import (
	"math/big"

	"github.com/delta-compiler/deltac/source"
	"github.com/delta-compiler/deltac/types"
)

// Expression is the sum type of every expression form in spec.md §3.
// Kept as a marker interface (is_Expression) rather than a closed Kind
// enum; a type switch over it that misses a case reaches its default
// branch at run time (a panic in sema, errors.Unimplemented in irgen).
type Expression interface {
	is_Expression()
	Span() source.Span
}

// exprBase factors the two fields every expression variant carries: its
// source span and its post-check type slot. Embedded, never referenced
// directly outside this package.
type exprBase struct {
	span     source.Span
	typ      *types.Type
	calleeOf Decl // resolved declaration for Var or Call; nil until sema visits it
}

func (e exprBase) Span() source.Span { return e.span }

// Type returns the type sema assigned to this expression, or (Type{},
// false) if sema has not yet visited it.
func (e exprBase) Type() (types.Type, bool) {
	if e.typ == nil {
		return types.Type{}, false
	}
	return *e.typ, true
}

// SetType assigns the expression's checked type. Per spec.md §3 this
// happens at most once per expression during a single analysis pass;
// Binary's implicit-conversion retyping is the one case that calls it a
// second time on purpose (widening a side after conversion), so this is
// not enforced with a panic.
func (e *exprBase) SetType(t types.Type) { e.typ = &t }

func (e exprBase) Callee() Decl    { return e.calleeOf }
func (e *exprBase) SetCallee(d Decl) { e.calleeOf = d }

type Var struct {
	exprBase
	Name string
}

func NewVar(name string, span source.Span) *Var { return &Var{exprBase{span: span}, name} }
func (v *Var) is_Expression()                    {}

type StringLit struct {
	exprBase
	Value string
}

func (v *StringLit) is_Expression() {}

type CharLit struct {
	exprBase
	Value rune
}

func (v *CharLit) is_Expression() {}

// IntLit stores an arbitrary-precision integer (spec.md §3) so that the
// out-of-range check in sema is exact regardless of host machine width.
type IntLit struct {
	exprBase
	Value *big.Int
}

func (v *IntLit) is_Expression() {}

type FloatLit struct {
	exprBase
	Value float64
}

func (v *FloatLit) is_Expression() {}

type BoolLit struct {
	exprBase
	Value bool
}

func (v *BoolLit) is_Expression() {}

type NullLit struct {
	exprBase
}

func (v *NullLit) is_Expression() {}

type ArrayLit struct {
	exprBase
	Elements []Expression
}

func (v *ArrayLit) is_Expression() {}

type TupleLit struct {
	exprBase
	Elements []Expression
}

func (v *TupleLit) is_Expression() {}

type Prefix struct {
	exprBase
	Op      string // "!", "*", "&", "+", "-", "~"
	Operand Expression
}

func (v *Prefix) is_Expression() {}

type Binary struct {
	exprBase
	Op          string
	Left, Right Expression
}

func (v *Binary) is_Expression() {}

// CallArg is a single (optional_name, value) argument pair (spec.md §3).
type CallArg struct {
	Name  string // "" when positional
	Value Expression
}

// Call stores the unresolved call syntax plus the fields sema fills in
// after overload resolution: GenericArgs (explicit or inferred),
// Receiver, Callee, and MangledName (spec.md §3).
type Call struct {
	exprBase
	Function     Expression // Var or Member for ordinary calls
	Args         []CallArg
	GenericArgs  []types.Type
	explicitGenerics bool

	Receiver    *types.Type
	MangledName string
}

func (v *Call) is_Expression() {}

// FunctionName returns the identifier used to call this, or the
// "(anonymous function)" placeholder otherwise (spec.md §4.2).
func (v *Call) FunctionName() string {
	switch f := v.Function.(type) {
	case *Var:
		return f.Name
	case *Member:
		return f.Field
	default:
		return "(anonymous function)"
	}
}

// HasExplicitGenericArgs distinguishes an explicit empty list from "none
// given" so sema knows whether to attempt inference (spec.md §4.5.3).
func (v *Call) HasExplicitGenericArgs() bool { return v.explicitGenerics }
func (v *Call) SetExplicitGenericArgs(args []types.Type) {
	v.GenericArgs = args
	v.explicitGenerics = true
}

type Cast struct {
	exprBase
	Target   types.Type
	Operand  Expression
}

func (v *Cast) is_Expression() {}

type Sizeof struct {
	exprBase
	Target types.Type
}

func (v *Sizeof) is_Expression() {}

// Member is meaningful both as a field/property access (expr.data,
// expr.count, expr.field) and, when it is the Function of a Call, as a
// method lookup (spec.md §4.2).
type Member struct {
	exprBase
	Base  Expression
	Field string
}

func (v *Member) is_Expression() {}

type Subscript struct {
	exprBase
	Base  Expression
	Index Expression
}

func (v *Subscript) is_Expression() {}

type Unwrap struct {
	exprBase
	Operand Expression
}

func (v *Unwrap) is_Expression() {}

// IsLvalue reports whether e denotes a storage location (spec.md §4.2):
// a Var, StringLit, ArrayLit, Member, Subscript, or `*` dereference.
// irgen's lowerLvaluePtr takes the address of the Var, Member,
// Subscript and `*` cases only; it has no case for StringLit or
// ArrayLit.
func IsLvalue(e Expression) bool {
	switch v := e.(type) {
	case *Var, *StringLit, *ArrayLit, *Member, *Subscript:
		return true
	case *Prefix:
		return v.Op == "*"
	default:
		return false
	}
}
