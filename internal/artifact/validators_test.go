package artifact

import (
	"testing"

	"github.com/netguy204/ve/internal/types"
)

func TestExistsValidator(t *testing.T) {
	v := Exists()
	if err := v(types.KindChunk, "foo", nil); err == nil {
		t.Fatal("expected error for nil artifact")
	}
	if err := v(types.KindChunk, "foo", &types.Artifact{}); err != nil {
		t.Fatalf("expected no error for non-nil artifact: %v", err)
	}
}

func TestNotExternalValidator(t *testing.T) {
	v := NotExternal()
	local := &types.Artifact{Frontmatter: &types.Frontmatter{Status: ChunkActive}}
	if err := v(types.KindChunk, "foo", local); err != nil {
		t.Fatalf("local artifact should pass: %v", err)
	}
	external := &types.Artifact{External: &types.ExternalRef{Repo: "other"}}
	if err := v(types.KindChunk, "foo", external); err == nil {
		t.Fatal("expected error for external artifact")
	}
}

func TestNotTerminalValidator(t *testing.T) {
	v := NotTerminal()
	active := &types.Artifact{Frontmatter: &types.Frontmatter{Status: ChunkActive}}
	if err := v(types.KindChunk, "foo", active); err != nil {
		t.Fatalf("non-terminal status should pass: %v", err)
	}
	terminal := &types.Artifact{Frontmatter: &types.Frontmatter{Status: ChunkSuperseded}}
	if err := v(types.KindChunk, "foo", terminal); err == nil {
		t.Fatal("expected error for terminal status")
	}
}

func TestForTransitionChain(t *testing.T) {
	v := ForTransition()
	if err := v(types.KindChunk, "foo", nil); err == nil {
		t.Fatal("missing artifact should fail the chain")
	}
	good := &types.Artifact{Frontmatter: &types.Frontmatter{Status: ChunkActive}}
	if err := v(types.KindChunk, "foo", good); err != nil {
		t.Fatalf("active local artifact should pass the chain: %v", err)
	}
}
