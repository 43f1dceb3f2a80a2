package irgen

import (
	irtypes "github.com/llir/llvm/ir/types"

	"github.com/delta-compiler/deltac/types"
)

// basicLLVM maps spec.md §6.3's scalar names onto llir/llvm's built-in
// type values, grounded on the teacher's own fixed scalar table in
// codegen.go's addBuiltins (int8/int16/.../bool/byte there, generalized
// to Delta's full signed/unsigned/float set here).
var basicLLVM = map[string]irtypes.Type{
	"void": irtypes.Void,
	"bool": irtypes.I1,
	"char": irtypes.I8,

	"int8": irtypes.I8, "uint8": irtypes.I8,
	"int16": irtypes.I16, "uint16": irtypes.I16,
	"int32": irtypes.I32, "uint32": irtypes.I32, "int": irtypes.I32, "uint": irtypes.I32,
	"int64": irtypes.I64, "uint64": irtypes.I64,

	"float32": irtypes.Float, "float": irtypes.Float,
	"float64": irtypes.Double,
	"float80": irtypes.X86_FP80,
}

// stringLLVM is the fat-pointer lowering of Delta's "string" and of
// every unsized array (spec.md §4.6.2): a {count, data} pair, the same
// shape the teacher's tawa_types.go gives "String" in front of a raw
// byte pointer.
func (g *Generator) stringLLVM() *irtypes.StructType {
	if g.stringType == nil {
		g.stringType = irtypes.NewStruct(irtypes.I64, irtypes.NewPointer(irtypes.I8))
		g.stringType.SetName("string")
		g.mod.NewTypeDef("string", g.stringType)
	}
	return g.stringType
}

// toIRType lowers a checked types.Type into its llir/llvm representation
// (spec.md §4.6.1). Optional(T) is lowered as follows: a pointer is
// already nullable,
// so Optional(Pointer) reuses the pointer's own null rather than adding
// a wrapper; Optional of anything else becomes {bool, T}.
func (g *Generator) toIRType(t types.Type) (irtypes.Type, error) {
	switch t.Kind() {
	case types.Basic:
		if t.IsString() {
			return irtypes.NewPointer(g.stringLLVM()), nil
		}
		if lt, ok := basicLLVM[t.Name()]; ok {
			return lt, nil
		}
		if td, ok := g.typeDecls[mangleTypeName(t)]; ok {
			return g.toIRStruct(td)
		}
		return nil, g.unimplemented(t.String())
	case types.Array:
		elem, err := g.toIRType(t.ElementType())
		if err != nil {
			return nil, err
		}
		if t.IsUnsizedArray() {
			// fat pointer: {count, data} exactly like string, since
			// spec.md §4.6.2 gives unsized arrays and strings the same
			// representation.
			st := irtypes.NewStruct(irtypes.I64, irtypes.NewPointer(elem))
			return irtypes.NewPointer(st), nil
		}
		return irtypes.NewArray(uint64(t.ArraySize()), elem), nil
	case types.Tuple:
		subs := t.Subtypes()
		fields := make([]irtypes.Type, len(subs))
		for i, s := range subs {
			ft, err := g.toIRType(s)
			if err != nil {
				return nil, err
			}
			fields[i] = ft
		}
		return irtypes.NewStruct(fields...), nil
	case types.Function:
		ret, err := g.toIRType(t.ReturnType())
		if err != nil {
			return nil, err
		}
		params := make([]irtypes.Type, len(t.ParamTypes()))
		for i, p := range t.ParamTypes() {
			pt, err := g.toIRType(p)
			if err != nil {
				return nil, err
			}
			params[i] = pt
		}
		return irtypes.NewPointer(irtypes.NewFunc(ret, params...)), nil
	case types.Pointer:
		pointee, err := g.toIRType(t.Pointee())
		if err != nil {
			return nil, err
		}
		return irtypes.NewPointer(pointee), nil
	case types.Optional:
		wrapped := t.WrappedType()
		if wrapped.IsPointer() {
			return g.toIRType(wrapped)
		}
		inner, err := g.toIRType(wrapped)
		if err != nil {
			return nil, err
		}
		return irtypes.NewStruct(irtypes.I1, inner), nil
	case types.Range:
		elem, err := g.toIRType(t.ElementType())
		if err != nil {
			return nil, err
		}
		return irtypes.NewStruct(elem, elem), nil
	case types.Null:
		return irtypes.NewPointer(irtypes.I8), nil
	default:
		return nil, g.unimplemented(t.String())
	}
}

// toIRStruct lowers a TypeDecl's field list, caching the result so
// repeated references to the same struct share one *irtypes.StructType
// (required for llir/llvm's pointer-identity-based type equality).
func (g *Generator) toIRStruct(td *structDecl) (irtypes.Type, error) {
	if td.lowered != nil {
		return irtypes.NewPointer(td.lowered), nil
	}
	fields := make([]irtypes.Type, len(td.fieldTypes))
	for i, ft := range td.fieldTypes {
		lt, err := g.toIRType(ft)
		if err != nil {
			return nil, err
		}
		fields[i] = lt
	}
	st := irtypes.NewStruct(fields...)
	st.SetName(td.name)
	td.lowered = st
	g.mod.NewTypeDef(td.name, st)
	return irtypes.NewPointer(st), nil
}
