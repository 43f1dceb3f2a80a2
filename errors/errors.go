// Package errors is the diagnostic taxonomy shared by the parser, the
// semantic analyzer, and the IR generator. Every entry carries a
// source.Span; the core never logs, it only returns these.
package errors

import (
	"fmt"
	"strings"

	"github.com/delta-compiler/deltac/source"
)

// Lex/parse errors: out of scope for the core (spec.md §7), kept here only
// because a lexer lives in this repo for test/demo purposes.

type ExpectedKindGotKind struct {
	Expected string
	Got      string
	Location source.Span
}

func (e ExpectedKindGotKind) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Location, e.Expected, e.Got)
}

type ExpectedOneOfKindGotKind struct {
	Expected []string
	Got      string
	Location source.Span
}

func (e ExpectedOneOfKindGotKind) Error() string {
	return fmt.Sprintf("%s: expected one of %s, got %s", e.Location, strings.Join(e.Expected, ", "), e.Got)
}

type DuplicateField struct {
	Name     string
	Location source.Span
}

func (e DuplicateField) Error() string {
	return fmt.Sprintf("%s: field %q specified more than once", e.Location, e.Name)
}

// Name-resolution errors.

type UnknownIdentifier struct {
	Name     string
	Location source.Span
}

func (e UnknownIdentifier) Error() string {
	return fmt.Sprintf("%s: unknown identifier %q", e.Location, e.Name)
}

type AmbiguousOverload struct {
	Name       string
	Candidates []string
	Location   source.Span
}

func (e AmbiguousOverload) Error() string {
	return fmt.Sprintf("%s: ambiguous call to %q, candidates: %s", e.Location, e.Name, strings.Join(e.Candidates, ", "))
}

type NoMatchingOverload struct {
	Name       string
	ArgTypes   []string
	Candidates []string
	Location   source.Span
}

func (e NoMatchingOverload) Error() string {
	return fmt.Sprintf("%s: no matching overload for %q(%s), candidates: %s",
		e.Location, e.Name, strings.Join(e.ArgTypes, ", "), strings.Join(e.Candidates, ", "))
}

type GenericConflict struct {
	Param    string
	Location source.Span
}

func (e GenericConflict) Error() string {
	return fmt.Sprintf("%s: generic parameter %q bound to incompatible types by different arguments", e.Location, e.Param)
}

type WrongGenericArgCount struct {
	Name     string
	Want     int
	Got      int
	Location source.Span
}

func (e WrongGenericArgCount) Error() string {
	return fmt.Sprintf("%s: %q expects %d generic argument(s), got %d", e.Location, e.Name, e.Want, e.Got)
}

// Type errors.

type TypeMismatch struct {
	Want     string
	Got      string
	Location source.Span
}

func (e TypeMismatch) Error() string {
	return fmt.Sprintf("%s: expected type %s, got %s", e.Location, e.Want, e.Got)
}

type NotConvertible struct {
	From     string
	To       string
	Location source.Span
}

func (e NotConvertible) Error() string {
	return fmt.Sprintf("%s: %s is not convertible to %s", e.Location, e.From, e.To)
}

type MutabilityViolation struct {
	Reason   string
	Location source.Span
}

func (e MutabilityViolation) Error() string {
	return fmt.Sprintf("%s: mutability violation: %s", e.Location, e.Reason)
}

type InvalidCast struct {
	From     string
	To       string
	Location source.Span
}

func (e InvalidCast) Error() string {
	return fmt.Sprintf("%s: cannot cast %s to %s", e.Location, e.From, e.To)
}

type NullDereference struct {
	Location source.Span
}

func (e NullDereference) Error() string {
	return fmt.Sprintf("%s: dereference of an optional pointer requires an explicit unwrap", e.Location)
}

type NonIterableRange struct {
	Type     string
	Location source.Span
}

func (e NonIterableRange) Error() string {
	return fmt.Sprintf("%s: type %s is not iterable in a for-range", e.Location, e.Type)
}

// Use-after-move.

type UseAfterMove struct {
	Name     string
	Location source.Span
}

func (e UseAfterMove) Error() string {
	return fmt.Sprintf("%s: use of %q after it was moved", e.Location, e.Name)
}

// Out-of-range literal.

type OutOfRangeLiteral struct {
	Literal  string
	Location source.Span
}

func (e OutOfRangeLiteral) Error() string {
	return fmt.Sprintf("%s: integer literal %s is out of range of every integer type", e.Location, e.Literal)
}

// Bounds error.

type OutOfBounds struct {
	Index    int64
	Size     int64
	Location source.Span
}

func (e OutOfBounds) Error() string {
	return fmt.Sprintf("%s: index %d is out of bounds for an array of size %d", e.Location, e.Index, e.Size)
}

// Unimplemented: well-typed constructs the IR generator does not yet
// lower. Fatal by policy (spec.md §7): the caller should halt
// compilation, not attempt recovery.

type Unimplemented struct {
	What     string
	Location source.Span
}

func (e Unimplemented) Error() string {
	return fmt.Sprintf("%s: unimplemented in IR generation: %s", e.Location, e.What)
}
