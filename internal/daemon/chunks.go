package daemon

import (
	"fmt"
	"path/filepath"

	"github.com/netguy204/ve/internal/artifact"
	"github.com/netguy204/ve/internal/frontmatter"
	"github.com/netguy204/ve/internal/types"
)

// chunkGate adapts on-disk chunk frontmatter to the scheduler's
// ChunkStatusChecker and DisplacementTracker seams, keeping
// internal/scheduler free of any frontmatter/filesystem dependency.
type chunkGate struct {
	projectDir string
}

func newChunkGate(projectDir string) *chunkGate {
	return &chunkGate{projectDir: projectDir}
}

func (g *chunkGate) goalPath(chunk string) string {
	return filepath.Join(g.projectDir, "docs", "chunks", chunk, types.KindChunk.MainFile())
}

// IsActive implements scheduler.ChunkStatusChecker.
func (g *chunkGate) IsActive(chunk string) (bool, error) {
	doc, err := frontmatter.Read(g.goalPath(chunk))
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, fmt.Errorf("chunk %s: no frontmatter block", chunk)
	}
	var fm types.Frontmatter
	if err := doc.Root.Decode(&fm); err != nil {
		return false, err
	}
	return fm.Status == artifact.ChunkActive, nil
}

// CurrentlyImplementing implements scheduler.DisplacementTracker by
// scanning every chunk directory for the single IMPLEMENTING one (spec
// §4.9 "at most one chunk is IMPLEMENTING at a time").
func (g *chunkGate) CurrentlyImplementing() (string, error) {
	dir := filepath.Join(g.projectDir, "docs", "chunks")
	entries, err := readDirNames(dir)
	if err != nil {
		return "", nil
	}
	for _, short := range entries {
		doc, err := frontmatter.Read(filepath.Join(dir, short, types.KindChunk.MainFile()))
		if err != nil || doc == nil {
			continue
		}
		var fm types.Frontmatter
		if err := doc.Root.Decode(&fm); err != nil {
			continue
		}
		if fm.Status == artifact.ChunkImplementing {
			return short, nil
		}
	}
	return "", nil
}

func (g *chunkGate) setStatus(chunk string, status types.Status) error {
	return frontmatter.UpdateField(g.goalPath(chunk), "status", status)
}

// Displace implements scheduler.DisplacementTracker: demote 'from' back to
// FUTURE so 'to' can be promoted to IMPLEMENTING by the caller.
func (g *chunkGate) Displace(from, to string) error {
	return g.setStatus(from, artifact.ChunkFuture)
}

// Restore implements scheduler.DisplacementTracker: promote chunk back to
// IMPLEMENTING once its displacing unit completes or is removed.
func (g *chunkGate) Restore(chunk string) error {
	return g.setStatus(chunk, artifact.ChunkImplementing)
}
