package modulecache

import "testing"

func TestMarshalParseRoundTrip(t *testing.T) {
	want := Manifest{
		Module: "collections",
		Exports: []ExportedDecl{
			{Name: "push", ParamTypes: []string{"int32"}, ReturnType: "void"},
			{Name: "len", ParamTypes: nil, ReturnType: "int32"},
		},
	}

	raw, err := Marshal(want)
	if err != nil {
		t.Fatalf("Marshal returned an error: %v", err)
	}

	got, err := ParseManifest(raw)
	if err != nil {
		t.Fatalf("ParseManifest returned an error: %v", err)
	}

	if got.Module != want.Module {
		t.Fatalf("got module %q, want %q", got.Module, want.Module)
	}
	if len(got.Exports) != len(want.Exports) {
		t.Fatalf("got %d exports, want %d", len(got.Exports), len(want.Exports))
	}
	for i, exp := range got.Exports {
		if exp != want.Exports[i] {
			t.Fatalf("export %d: got %+v, want %+v", i, exp, want.Exports[i])
		}
	}
}

func TestParseManifestRejectsMalformedYAML(t *testing.T) {
	if _, err := ParseManifest("module: [this is not a manifest"); err == nil {
		t.Fatalf("expected an error for malformed YAML, got nil")
	}
}
