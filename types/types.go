// Package types is the Delta type model (spec.md §3, §4.1): a closed set
// of structural type values with classification predicates, modifiers,
// and an unambiguous printer that the name mangler builds on.
package types

import (
	"fmt"
	"strings"
)

// Kind tags the variant a Type holds. Kept as an explicit tag (rather
// than relying solely on a Go type switch) because the mangler and the
// IR generator both need a cheap, exhaustive dispatch key.
type Kind int

const (
	Basic Kind = iota
	Array
	Tuple
	Function
	Pointer
	Optional
	Range
	Null
)

func (k Kind) String() string {
	switch k {
	case Basic:
		return "Basic"
	case Array:
		return "Array"
	case Tuple:
		return "Tuple"
	case Function:
		return "Function"
	case Pointer:
		return "Pointer"
	case Optional:
		return "Optional"
	case Range:
		return "Range"
	case Null:
		return "Null"
	default:
		return "Unknown"
	}
}

// UnsizedArray is the sentinel used in place of a concrete element count
// for an array whose size is not known at the type-use site.
const UnsizedArray = -1

// Type is an immutable structural value. Construct one with the New*
// functions below; never build the struct literal directly outside this
// package so that the Optional(Optional(T)) invariant always holds.
type Type struct {
	kind Kind

	// Basic
	name        string
	genericArgs []Type

	// Array
	elem *Type
	size int // UnsizedArray sentinel when unknown

	// Tuple
	subtypes []Type

	// Function
	ret    *Type
	params []Type

	// Pointer / Optional
	wrapped *Type

	// Range
	inclusive bool

	mutable bool
}

func NewBasic(name string, genericArgs ...Type) Type {
	return Type{kind: Basic, name: name, genericArgs: append([]Type(nil), genericArgs...)}
}

func NewArray(elem Type, size int) Type {
	return Type{kind: Array, elem: &elem, size: size}
}

func NewUnsizedArray(elem Type) Type {
	return Type{kind: Array, elem: &elem, size: UnsizedArray}
}

func NewTuple(subtypes ...Type) Type {
	return Type{kind: Tuple, subtypes: append([]Type(nil), subtypes...)}
}

func NewFunction(ret Type, params ...Type) Type {
	r := ret
	return Type{kind: Function, ret: &r, params: append([]Type(nil), params...)}
}

func NewPointer(pointee Type, mutable bool) Type {
	p := pointee
	return Type{kind: Pointer, wrapped: &p, mutable: mutable}
}

// NewOptional panics if wrapped is itself an Optional: Optional(Optional(T))
// is forbidden at construction (spec.md §3).
func NewOptional(wrapped Type, mutable bool) Type {
	if wrapped.kind == Optional {
		panic("types: Optional(Optional(T)) is forbidden at construction")
	}
	w := wrapped
	return Type{kind: Optional, wrapped: &w, mutable: mutable}
}

func NewRange(elem Type, inclusive bool) Type {
	return Type{kind: Range, elem: &elem, inclusive: inclusive}
}

func NewNull() Type {
	return Type{kind: Null}
}

func (t Type) Kind() Kind { return t.kind }

// IsZero reports whether t is the unset zero value, used by callers
// that need to tell "no type annotation given" apart from a real Basic
// type with an empty name (which never occurs: NewBasic always takes a
// non-empty name).
func (t Type) IsZero() bool { return t.kind == Basic && t.name == "" }

// Equal reports structural equality, comparing mutability only when
// mutabilitySensitive is true (spec.md §3: "mutability ... when compared
// mutability-sensitively").
func (t Type) Equal(o Type, mutabilitySensitive bool) bool {
	if t.kind != o.kind {
		return false
	}
	if mutabilitySensitive && t.mutable != o.mutable {
		return false
	}
	switch t.kind {
	case Basic:
		if t.name != o.name || len(t.genericArgs) != len(o.genericArgs) {
			return false
		}
		for i := range t.genericArgs {
			if !t.genericArgs[i].Equal(o.genericArgs[i], mutabilitySensitive) {
				return false
			}
		}
		return true
	case Array:
		return t.size == o.size && t.elem.Equal(*o.elem, mutabilitySensitive)
	case Tuple:
		if len(t.subtypes) != len(o.subtypes) {
			return false
		}
		for i := range t.subtypes {
			if !t.subtypes[i].Equal(o.subtypes[i], mutabilitySensitive) {
				return false
			}
		}
		return true
	case Function:
		if !t.ret.Equal(*o.ret, mutabilitySensitive) || len(t.params) != len(o.params) {
			return false
		}
		for i := range t.params {
			if !t.params[i].Equal(o.params[i], mutabilitySensitive) {
				return false
			}
		}
		return true
	case Pointer, Optional:
		return t.wrapped.Equal(*o.wrapped, mutabilitySensitive)
	case Range:
		return t.inclusive == o.inclusive && t.elem.Equal(*o.elem, mutabilitySensitive)
	case Null:
		return true
	}
	return false
}

// --- predicates ---

var integerNames = map[string]bool{
	"int8": true, "int16": true, "int32": true, "int64": true, "int": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true, "uint": true,
}
var signedIntegerNames = map[string]bool{"int8": true, "int16": true, "int32": true, "int64": true, "int": true}
var floatNames = map[string]bool{"float32": true, "float64": true, "float80": true, "float": true}

func (t Type) IsBasic() bool { return t.kind == Basic }
func (t Type) IsVoid() bool  { return t.kind == Basic && t.name == "void" }
func (t Type) IsBool() bool  { return t.kind == Basic && t.name == "bool" }
func (t Type) IsChar() bool  { return t.kind == Basic && t.name == "char" }
func (t Type) IsString() bool {
	return t.kind == Basic && t.name == "string"
}
func (t Type) IsInteger() bool  { return t.kind == Basic && integerNames[t.name] }
func (t Type) IsSigned() bool   { return t.kind == Basic && signedIntegerNames[t.name] }
func (t Type) IsUnsigned() bool { return t.IsInteger() && !t.IsSigned() }
func (t Type) IsFloatingPoint() bool {
	return t.kind == Basic && floatNames[t.name]
}
func (t Type) IsPointer() bool  { return t.kind == Pointer }
func (t Type) IsArray() bool    { return t.kind == Array }
func (t Type) IsOptional() bool { return t.kind == Optional }
func (t Type) IsTuple() bool    { return t.kind == Tuple }
func (t Type) IsFunction() bool { return t.kind == Function }
func (t Type) IsUnsizedArray() bool {
	return t.kind == Array && t.size == UnsizedArray
}

// --- modifiers ---

func (t Type) AsMutable() Type {
	o := t
	o.mutable = true
	return o
}

func (t Type) AsImmutable() Type {
	o := t
	o.mutable = false
	return o
}

func (t Type) IsMutable() bool { return t.mutable }

// RemovePointer strips exactly one layer of Pointer, returning t unchanged
// if t is not a pointer.
func (t Type) RemovePointer() Type {
	if t.kind != Pointer {
		return t
	}
	return *t.wrapped
}

// RemoveOptional strips exactly one layer of Optional.
func (t Type) RemoveOptional() Type {
	if t.kind != Optional {
		return t
	}
	return *t.wrapped
}

func (t Type) WrappedType() Type {
	if t.wrapped == nil {
		panic("types: WrappedType called on a non-Pointer/Optional type")
	}
	return *t.wrapped
}

func (t Type) Pointee() Type { return t.WrappedType() }

func (t Type) ElementType() Type {
	if t.kind != Array {
		panic("types: ElementType called on a non-Array type")
	}
	return *t.elem
}

func (t Type) ArraySize() int {
	if t.kind != Array {
		panic("types: ArraySize called on a non-Array type")
	}
	return t.size
}

func (t Type) ReturnType() Type {
	if t.kind != Function {
		panic("types: ReturnType called on a non-Function type")
	}
	return *t.ret
}

func (t Type) ParamTypes() []Type {
	if t.kind != Function {
		panic("types: ParamTypes called on a non-Function type")
	}
	return t.params
}

func (t Type) Subtypes() []Type {
	if t.kind != Tuple {
		panic("types: Subtypes called on a non-Tuple type")
	}
	return t.subtypes
}

func (t Type) GenericArgs() []Type {
	return t.genericArgs
}

func (t Type) Name() string {
	return t.name
}

// GetIterableElementType is defined only on Range and Array, matching
// spec.md §4.1.
func (t Type) GetIterableElementType() (Type, bool) {
	switch t.kind {
	case Range, Array:
		return *t.elem, true
	default:
		return Type{}, false
	}
}

func (t Type) IsRange() bool { return t.kind == Range }
func (t Type) IsInclusiveRange() bool {
	if t.kind != Range {
		panic("types: IsInclusiveRange called on a non-Range type")
	}
	return t.inclusive
}

// String is the unambiguous, round-trippable printer the mangler relies
// on (spec.md §3).
func (t Type) String() string {
	switch t.kind {
	case Basic:
		if len(t.genericArgs) == 0 {
			return t.name
		}
		parts := make([]string, len(t.genericArgs))
		for i, a := range t.genericArgs {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s<%s>", t.name, strings.Join(parts, ","))
	case Array:
		if t.size == UnsizedArray {
			return fmt.Sprintf("%s[]", t.elem)
		}
		return fmt.Sprintf("%s[%d]", t.elem, t.size)
	case Tuple:
		parts := make([]string, len(t.subtypes))
		for i, s := range t.subtypes {
			parts[i] = s.String()
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ","))
	case Function:
		parts := make([]string, len(t.params))
		for i, p := range t.params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("func(%s)->%s", strings.Join(parts, ","), t.ret)
	case Pointer:
		prefix := ""
		if !t.mutable {
			prefix = "const "
		}
		return fmt.Sprintf("%s%s*", prefix, t.wrapped)
	case Optional:
		return fmt.Sprintf("%s?", t.wrapped)
	case Range:
		op := "..."
		if !t.inclusive {
			op = "..<"
		}
		return fmt.Sprintf("range<%s%s>", t.elem, op)
	case Null:
		return "null"
	default:
		return "<invalid type>"
	}
}
