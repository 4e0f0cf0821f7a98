package symbols

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRegistryPrePopulatesGoAndPython(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.extractors[".go"]; !ok {
		t.Fatal("expected .go extractor to be registered")
	}
	if _, ok := r.extractors[".py"]; !ok {
		t.Fatal("expected .py extractor to be registered")
	}
}

func TestExtractDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	goFile := filepath.Join(dir, "thing.go")
	if err := os.WriteFile(goFile, []byte("package thing\n\nfunc Hello() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	got, err := r.Extract(goFile)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if _, ok := got["Hello"]; !ok {
		t.Fatalf("Extract(%q) = %v, want Hello", goFile, got)
	}
}

func TestExtractUnregisteredExtensionReturnsEmptySet(t *testing.T) {
	r := NewRegistry()
	got, err := r.Extract("/tmp/whatever.rb")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Extract(unregistered ext) = %v, want empty set", got)
	}
}
