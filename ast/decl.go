package ast

import (
	"github.com/delta-compiler/deltac/source"
	"github.com/delta-compiler/deltac/types"
)

// Decl is the sum type of every declaration form in spec.md §3. It is
// also the "weak handle" other declarations and expressions reference:
// the AST never owns a Decl cyclically, only through the symbol table
// (spec.md §3 "Ownership").
type Decl interface {
	is_Decl()
	Span() source.Span
	DeclName() string
}

type declBase struct {
	span source.Span
	name string
}

func (d declBase) Span() source.Span { return d.span }
func (d declBase) DeclName() string  { return d.name }

// VarDecl backs both a local "var"/"let" binding and, reused with
// different scoping, a module-level global.
type VarDecl struct {
	declBase
	Type    types.Type
	Mutable bool
	Value   Expression // initializer; nil for an uninitialized declaration
	Moved   bool
}

func (d *VarDecl) is_Decl() {}

type ParamDecl struct {
	declBase
	Type types.Type
	Moved bool
}

func (d *ParamDecl) is_Decl() {}

type FieldDecl struct {
	declBase
	Type types.Type
}

func (d *FieldDecl) is_Decl() {}

// GenericParamDecl names a type variable; Constraint is the interface
// declaration it must implement, or nil when unconstrained (spec.md §3).
type GenericParamDecl struct {
	declBase
	Constraint *TypeDecl
}

func (d *GenericParamDecl) is_Decl() {}

type FunctionDecl struct {
	declBase
	GenericParams []*GenericParamDecl
	Params        []*ParamDecl
	Return        types.Type
	Body          []Statement
	Variadic      bool
	Extern        bool // declared `extern`: no body, never lowered
	ASMLabel      string
}

func (d *FunctionDecl) is_Decl() {}

// MethodDecl is a FunctionDecl bound to a receiver type, with a
// mutating flag controlling whether it may modify that receiver
// (spec.md §3, §4.5.3).
type MethodDecl struct {
	declBase
	Receiver      *TypeDecl
	GenericParams []*GenericParamDecl
	Params        []*ParamDecl
	Return        types.Type
	Body          []Statement
	Mutating      bool
	Variadic      bool
	Extern        bool
	ASMLabel      string
}

func (d *MethodDecl) is_Decl() {}

func (d *MethodDecl) IsMutating() bool { return d.Mutating }

type InitDecl struct {
	declBase
	Receiver *TypeDecl
	Params   []*ParamDecl
	Body     []Statement
}

func (d *InitDecl) is_Decl() {}

type DeinitDecl struct {
	declBase
	Receiver *TypeDecl
	Body     []Statement
}

func (d *DeinitDecl) is_Decl() {}

// TypeTag distinguishes struct from union layout for a TypeDecl
// (spec.md §3).
type TypeTag int

const (
	StructTag TypeTag = iota
	UnionTag
)

// TypeDecl is a user-defined nominal type: a struct, a union, or (when
// IsInterface is set) an interface used only for constraint/subtyping
// checks (spec.md §4.5.2 rule 3, §4.5.4).
type TypeDecl struct {
	declBase
	Tag           TypeTag
	Fields        []*FieldDecl
	Methods       []*MethodDecl
	Inits         []*InitDecl
	Deinit        *DeinitDecl
	GenericParams []*GenericParamDecl
	IsInterface   bool

	// PassByValue mirrors the source's pass_by_value flag (spec.md
	// §4.5.3 move semantics): module.NewUniverse sets it on the
	// built-in scalars, and sema treats a type with it set as
	// implicitly copyable. irgen does not read it.
	PassByValue bool

	// GenericArgs is non-empty only on a type-template instantiation
	// (spec.md §4.5.5): it records the concrete substitution this
	// clone was created with.
	GenericArgs []types.Type
	// InstantiatedFrom points back at the template this was cloned
	// from, or nil for an ordinary declaration.
	InstantiatedFrom *TypeDecl
}

func (d *TypeDecl) is_Decl() {}

// FunctionTemplateDecl and TypeTemplateDecl wrap the uninstantiated
// generic declaration; sema clones+substitutes them lazily into
// FunctionDecl/MethodDecl/TypeDecl instances cached under
// mangle.Instantiation of the template name and generic arguments
// (spec.md §4.5.5).
type FunctionTemplateDecl struct {
	declBase
	GenericParams []*GenericParamDecl
	Params        []*ParamDecl
	Return        types.Type
	Body          []Statement
	Receiver      *TypeDecl // non-nil for a generic method
	Mutating      bool
}

func (d *FunctionTemplateDecl) is_Decl() {}

type TypeTemplateDecl struct {
	declBase
	GenericParams []*GenericParamDecl
	Fields        []*FieldDecl
	Methods       []*MethodDecl
	Inits         []*InitDecl
	Deinit        *DeinitDecl
	Tag           TypeTag
}

func (d *TypeTemplateDecl) is_Decl() {}

// EnumCase is one constant of an EnumDecl, with its integer value
// already resolved (spec.md §3).
type EnumCase struct {
	Name  string
	Value int64
}

type EnumDecl struct {
	declBase
	Underlying types.Type // the integer type backing the enum
	Cases      []EnumCase
}

func (d *EnumDecl) is_Decl() {}

// ImportDecl names a module to bring into a SourceFile's import list
// (spec.md §3, §4.4).
type ImportDecl struct {
	declBase
	Path string
}

func (d *ImportDecl) is_Decl() {}

// --- constructors: allocate and take ownership of children (spec.md §4.2) ---

func NewVarDecl(name string, span source.Span, mutable bool, value Expression) *VarDecl {
	return &VarDecl{declBase: declBase{span, name}, Mutable: mutable, Value: value}
}

func NewParamDecl(name string, span source.Span, t types.Type) *ParamDecl {
	return &ParamDecl{declBase: declBase{span, name}, Type: t}
}

func NewFieldDecl(name string, span source.Span, t types.Type) *FieldDecl {
	return &FieldDecl{declBase: declBase{span, name}, Type: t}
}

func NewFunctionDecl(name string, span source.Span) *FunctionDecl {
	return &FunctionDecl{declBase: declBase{span, name}}
}

func NewTypeDecl(name string, span source.Span, tag TypeTag) *TypeDecl {
	return &TypeDecl{declBase: declBase{span, name}, Tag: tag}
}

// NewMethodDecl, NewInitDecl, and NewDeinitDecl exist alongside the
// other New* constructors mainly so generic instantiation (sema's
// mangled-name-keyed clone of a template, spec.md §4.5.5) can build a
// properly-named clone from outside this package instead of leaving
// DeclName() empty.

func NewMethodDecl(name string, span source.Span, receiver *TypeDecl, mutating bool) *MethodDecl {
	return &MethodDecl{declBase: declBase{span, name}, Receiver: receiver, Mutating: mutating}
}

func NewInitDecl(span source.Span, receiver *TypeDecl) *InitDecl {
	return &InitDecl{declBase: declBase{span, ""}, Receiver: receiver}
}

func NewDeinitDecl(span source.Span, receiver *TypeDecl) *DeinitDecl {
	return &DeinitDecl{declBase: declBase{span, ""}, Receiver: receiver}
}
