// Package mangle produces the canonical textual encoding of declarations
// used as the sole key for both the symbol table's generic-instantiation
// cache and the IR generator's function cache (spec.md §4.3).
package mangle

import (
	"fmt"
	"strings"

	"github.com/delta-compiler/deltac/ast"
	"github.com/delta-compiler/deltac/types"
)

func paramTypeList(params []types.Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

// Function mangles a free function: name(paramType1,...).
func Function(name string, params []types.Type) string {
	return fmt.Sprintf("%s(%s)", name, paramTypeList(params))
}

// Method mangles a method: TypeName.name(paramType1,...).
func Method(typeName, name string, params []types.Type) string {
	return fmt.Sprintf("%s.%s(%s)", typeName, name, paramTypeList(params))
}

// Init mangles an initializer: TypeName.init(...).
func Init(typeName string, params []types.Type) string {
	return fmt.Sprintf("%s.init(%s)", typeName, paramTypeList(params))
}

// Deinit mangles a deinitializer: TypeName.deinit.
func Deinit(typeName string) string {
	return fmt.Sprintf("%s.deinit", typeName)
}

// Instantiation mangles a generic instantiation: Name<argType1,...>.
func Instantiation(name string, args []types.Type) string {
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", name, strings.Join(parts, ","))
}

// Decl mangles any declaration the way the symbol table keys it.
// Parameter names are never part of this key (spec.md §4.3) — two
// overloads differing only in argument labels mangle identically here,
// and are told apart only by mangle.ExtendWithParamNames, used
// exclusively by irgen's instantiation cache.
func Decl(d ast.Decl) string {
	switch v := d.(type) {
	case *ast.FunctionDecl:
		return Function(v.DeclName(), paramTypes(v.Params))
	case *ast.MethodDecl:
		return Method(v.Receiver.DeclName(), v.DeclName(), paramTypes(v.Params))
	case *ast.InitDecl:
		return Init(v.Receiver.DeclName(), paramTypes(v.Params))
	case *ast.DeinitDecl:
		return Deinit(v.Receiver.DeclName())
	case *ast.TypeDecl:
		if len(v.GenericArgs) > 0 {
			return Instantiation(baseName(v), v.GenericArgs)
		}
		return v.DeclName()
	default:
		return d.DeclName()
	}
}

func baseName(t *ast.TypeDecl) string {
	if t.InstantiatedFrom != nil {
		return t.InstantiatedFrom.DeclName()
	}
	return t.DeclName()
}

func paramTypes(params []*ast.ParamDecl) []types.Type {
	out := make([]types.Type, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

// ExtendWithParamNames appends each parameter's label to the base
// mangled name, so the IR generator's instantiation cache can keep
// overloads apart that differ only in parameter labels while the
// symbol table continues to treat them as one key (spec.md §4.3,
// §4.6 intro).
func ExtendWithParamNames(base string, paramNames []string) string {
	if len(paramNames) == 0 {
		return base
	}
	return fmt.Sprintf("%s{%s}", base, strings.Join(paramNames, ","))
}
