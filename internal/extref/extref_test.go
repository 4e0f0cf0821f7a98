package extref

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/netguy204/ve/internal/types"
)

func TestIsExternal(t *testing.T) {
	dir := t.TempDir()
	if IsExternal(dir, types.KindChunk) {
		t.Fatal("empty directory should not be external")
	}

	if err := os.WriteFile(filepath.Join(dir, "external.yaml"), []byte("repo: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !IsExternal(dir, types.KindChunk) {
		t.Fatal("directory with only external.yaml should be external")
	}

	if err := os.WriteFile(filepath.Join(dir, "GOAL.md"), []byte("# x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if IsExternal(dir, types.KindChunk) {
		t.Fatal("directory with both external.yaml and the main file is not a pure external pointer")
	}
}

func TestCreateAndLoad(t *testing.T) {
	root := t.TempDir()
	ref := types.ExternalRef{ArtifactType: "chunk", ArtifactID: "upstream-chunk", Repo: "org/repo"}
	path, err := Create(root, types.KindChunk, "local-short", ref)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if filepath.Base(path) != "external.yaml" {
		t.Fatalf("Create path = %q, want external.yaml", path)
	}

	loaded, err := Load(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.ArtifactID != "upstream-chunk" || loaded.Repo != "org/repo" {
		t.Fatalf("Load = %+v", loaded)
	}
	if loaded.Track != "main" {
		t.Fatalf("Create should default Track to main, got %q", loaded.Track)
	}
}

func TestCreatePreservesExplicitTrack(t *testing.T) {
	root := t.TempDir()
	ref := types.ExternalRef{ArtifactType: "chunk", ArtifactID: "x", Repo: "org/repo", Track: "release"}
	path, err := Create(root, types.KindChunk, "local-short", ref)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Track != "release" {
		t.Fatalf("Track = %q, want release", loaded.Track)
	}
}

func TestIsTaskDirectoryAndLoadTaskConfig(t *testing.T) {
	dir := t.TempDir()
	if IsTaskDirectory(dir) {
		t.Fatal("directory without .ve-task.yaml should not be a task directory")
	}
	content := "external_artifact_repo: org/repo\nprojects:\n  - org/repo\n  - org/other\n"
	if err := os.WriteFile(filepath.Join(dir, ".ve-task.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if !IsTaskDirectory(dir) {
		t.Fatal("directory with .ve-task.yaml should be a task directory")
	}
	cfg, err := LoadTaskConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ExternalArtifactRepo != "org/repo" || len(cfg.Projects) != 2 {
		t.Fatalf("LoadTaskConfig = %+v", cfg)
	}
}

func TestResolveRepoDirectory(t *testing.T) {
	taskDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(taskDir, "repo"), 0755); err != nil {
		t.Fatal(err)
	}
	dir, err := ResolveRepoDirectory(taskDir, "org/repo")
	if err != nil {
		t.Fatalf("ResolveRepoDirectory returned error: %v", err)
	}
	if filepath.Base(dir) != "repo" {
		t.Fatalf("ResolveRepoDirectory = %q, want basename repo", dir)
	}

	if _, err := ResolveRepoDirectory(taskDir, "org/missing"); err == nil {
		t.Fatal("expected error for a sibling directory that does not exist")
	}
}

func TestFindArtifactDir(t *testing.T) {
	projectDir := t.TempDir()
	chunkDir := filepath.Join(projectDir, "docs", "chunks", "my-chunk")
	if err := os.MkdirAll(chunkDir, 0755); err != nil {
		t.Fatal(err)
	}

	dir, ok := FindArtifactDir(projectDir, types.KindChunk, "my-chunk")
	if !ok || dir != chunkDir {
		t.Fatalf("FindArtifactDir exact match = (%q, %v)", dir, ok)
	}

	_, ok = FindArtifactDir(projectDir, types.KindChunk, "nonexistent")
	if ok {
		t.Fatal("expected no match for a nonexistent short name")
	}
}

func TestResolveTaskDirectory(t *testing.T) {
	// taskDir is the shared parent of sibling checkouts; both "upstream"
	// (holding the real artifact) and "downstream" (holding the external
	// pointer) are listed in .ve-task.yaml's projects.
	taskDir := t.TempDir()
	chunkDir := filepath.Join(taskDir, "upstream", "docs", "chunks", "shared-chunk")
	if err := os.MkdirAll(chunkDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(chunkDir, "GOAL.md"), []byte("# shared chunk\n"), 0644); err != nil {
		t.Fatal(err)
	}

	downstreamDir := filepath.Join(taskDir, "downstream")
	ref := types.ExternalRef{ArtifactType: "chunk", ArtifactID: "shared-chunk", Repo: "org/upstream"}
	if _, err := Create(downstreamDir, types.KindChunk, "local-pointer", ref); err != nil {
		t.Fatal(err)
	}

	cfg := &TaskConfig{Projects: []string{"org/upstream", "org/downstream"}}
	result, err := ResolveTaskDirectory(taskDir, cfg, types.KindChunk, "local-pointer", "")
	if err != nil {
		t.Fatalf("ResolveTaskDirectory returned error: %v", err)
	}
	if result.MainContent != "# shared chunk\n" {
		t.Fatalf("MainContent = %q", result.MainContent)
	}
	if result.Repo != "org/upstream" {
		t.Fatalf("Repo = %q", result.Repo)
	}
}
