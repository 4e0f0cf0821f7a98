package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/netguy204/ve/internal/types"
)

func writeChunk(t *testing.T, root, short string, createdAfter []string) {
	t.Helper()
	dir := filepath.Join(root, "docs", "chunks", short)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	body := "---\nstatus: FUTURE\ncreated_after: ["
	for i, p := range createdAfter {
		if i > 0 {
			body += ", "
		}
		body += p
	}
	body += "]\n---\n# " + short + "\n"
	if err := os.WriteFile(filepath.Join(dir, "GOAL.md"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildOrdersTopologically(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "a", nil)
	writeChunk(t, root, "b", []string{"a"})
	writeChunk(t, root, "c", []string{"b"})

	idx, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	warnings, err := idx.Build(types.KindChunk)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	ordered, err := idx.Ordered(types.KindChunk, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(ordered) != len(want) {
		t.Fatalf("Ordered = %v, want %v", ordered, want)
	}
	for i, s := range want {
		if ordered[i] != s {
			t.Fatalf("Ordered = %v, want %v", ordered, want)
		}
	}
}

func TestFindTips(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "a", nil)
	writeChunk(t, root, "b", []string{"a"})
	writeChunk(t, root, "c", nil)

	idx, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Build(types.KindChunk); err != nil {
		t.Fatal(err)
	}

	tips, err := idx.FindTips(types.KindChunk, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"b": true, "c": true}
	if len(tips) != len(want) {
		t.Fatalf("FindTips = %v, want keys of %v", tips, want)
	}
	for _, s := range tips {
		if !want[s] {
			t.Fatalf("unexpected tip %q in %v", s, tips)
		}
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "a", []string{"b"})
	writeChunk(t, root, "b", []string{"a"})

	idx, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Build(types.KindChunk); err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestFindDuplicates(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "a", nil)

	idx, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	dups, err := idx.FindDuplicates(types.KindChunk, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(dups) != 1 {
		t.Fatalf("FindDuplicates(a) = %v, want one match", dups)
	}
	dups, err = idx.FindDuplicates(types.KindChunk, "nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if len(dups) != 0 {
		t.Fatalf("FindDuplicates(nonexistent) = %v, want none", dups)
	}
}

func TestEnsureFreshRebuildsOnStaleness(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "a", nil)

	idx, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.EnsureFresh(types.KindChunk); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(); err != nil {
		t.Fatal(err)
	}

	// A fresh ArtifactIndex loaded from disk should detect the directory is
	// unchanged and not need a rebuild warning path to misbehave; adding a
	// new sibling should flip staleness to true.
	writeChunk(t, root, "b", []string{"a"})

	idx2, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	stale, err := idx2.IsStale(types.KindChunk)
	if err != nil {
		t.Fatal(err)
	}
	if !stale {
		t.Fatal("expected index to be stale after adding a new artifact")
	}

	if _, err := idx2.EnsureFresh(types.KindChunk); err != nil {
		t.Fatal(err)
	}
	ordered, err := idx2.Ordered(types.KindChunk, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ordered) != 2 {
		t.Fatalf("Ordered after rebuild = %v, want 2 entries", ordered)
	}
}

func TestOrderedWithStatusFilter(t *testing.T) {
	root := t.TempDir()
	writeChunk(t, root, "a", nil)
	// Overwrite a's status to ACTIVE to exercise the filtered path.
	path := filepath.Join(root, "docs", "chunks", "a", "GOAL.md")
	if err := os.WriteFile(path, []byte("---\nstatus: ACTIVE\ncreated_after: []\n---\n# a\n"), 0644); err != nil {
		t.Fatal(err)
	}
	writeChunk(t, root, "b", []string{"a"})

	idx, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Build(types.KindChunk); err != nil {
		t.Fatal(err)
	}

	onlyActive := func(s types.Status) bool { return s == "ACTIVE" }
	ordered, err := idx.Ordered(types.KindChunk, onlyActive)
	if err != nil {
		t.Fatal(err)
	}
	if len(ordered) != 1 || ordered[0] != "a" {
		t.Fatalf("Ordered with ACTIVE filter = %v, want [a]", ordered)
	}
}
