// Package modulecache reads and writes the export manifest a compiled
// Delta module embeds in its shared object (SPEC_FULL.md §4, §9):
// cimport's precompiled-module adapter recovers a module's declared
// names and signatures from an already-built artifact the same way the
// teacher's reader recovered tawago's typeinfo blob (reader/reader.go),
// generalized from a single JSON scalar to a full YAML manifest.
package modulecache

import (
	"github.com/coreos/pkg/dlopen"
	"gopkg.in/yaml.v2"
)

import "C"

// manifestSymbol is the symbol name ReadExportManifest looks the export
// manifest up under in a compiled module's shared object (SPEC_FULL.md
// §4). irgen does not emit this symbol.
const manifestSymbol = "__delta_module_manifest"

// ExportedDecl is one function a compiled module exports, in the
// plain-string encoding the manifest crosses the process boundary
// with (a types.Type value itself can't travel through dlopen).
type ExportedDecl struct {
	Name       string   `yaml:"name"`
	ParamTypes []string `yaml:"params"`
	ReturnType string   `yaml:"returns"`
}

// Manifest is everything a compiled Delta module exports, together with
// the module's own name.
type Manifest struct {
	Module  string         `yaml:"module"`
	Exports []ExportedDecl `yaml:"exports"`
}

// ReadExportManifest dlopens the shared object at path and recovers the
// raw YAML manifest string embedded under manifestSymbol. Adapted from
// the teacher's reader.ReadTypeInfo, which did the same for a single
// JSON-encoded blob under the symbol "__tawa_types".
func ReadExportManifest(path string) (string, error) {
	handle, err := dlopen.GetHandle([]string{path})
	if err != nil {
		return "", err
	}

	sym, err := handle.GetSymbolPointer(manifestSymbol)
	if err != nil {
		return "", err
	}

	return C.GoString((*C.char)(sym)), nil
}

// ParseManifest decodes a manifest string, as recovered by
// ReadExportManifest, into a Manifest value.
func ParseManifest(raw string) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal([]byte(raw), &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Marshal is ParseManifest's inverse: it encodes m as the YAML text
// ParseManifest decodes.
func Marshal(m Manifest) (string, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
