package cimport

import "testing"

func TestStubImporterReportsUnimplementedButCachesTheModule(t *testing.T) {
	imp := NewStubImporter()

	first, err := imp.Import(Request{Header: "stdio.h"})
	if err == nil {
		t.Fatalf("expected an unimplemented error for a real C header, got nil")
	}
	if first == nil {
		t.Fatalf("expected a synthetic module even though parsing is unimplemented")
	}
	if !first.IsForeign {
		t.Fatalf("module returned by Import should be marked IsForeign")
	}

	second, err := imp.Import(Request{Header: "stdio.h"})
	if err != nil {
		t.Fatalf("second Import for a cached header should not error, got: %v", err)
	}
	if second != first {
		t.Fatalf("second Import for the same header should return the cached module")
	}
}

func TestStubImporterRejectsAnEmptyHeaderName(t *testing.T) {
	imp := NewStubImporter()
	if _, err := imp.Import(Request{}); err == nil {
		t.Fatalf("expected an error for a request with no header name")
	}
}
