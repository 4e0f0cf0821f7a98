// Package index implements the artifact index: the causal DAG over each
// kind's created_after edges, topologically ordered with lexicographic
// tie-breaking, plus tip detection and content-hash-based staleness
// tracking. A single ArtifactIndex type is parameterized by Kind rather
// than one DAG implementation per kind.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/netguy204/ve/internal/frontmatter"
	"github.com/netguy204/ve/internal/hash"
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/verrors"
)

const indexFileName = ".artifact-order.json"
const indexVersion = 1

// KindIndex is the persisted state for one kind.
type KindIndex struct {
	Ordered []string          `json:"ordered"`
	Tips    []string          `json:"tips"`
	Hashes  map[string]string `json:"hashes"`
}

// FileIndex is the on-disk JSON schema: {version, kinds: {kind -> KindIndex}}.
type FileIndex struct {
	Version int                  `json:"version"`
	Kinds   map[string]KindIndex `json:"kinds"`
}

// Warning records a non-fatal problem encountered while indexing a kind:
// malformed frontmatter is skipped with a warning, not a fatal error.
type Warning struct {
	Kind  types.Kind
	Short string
	Msg   string
}

// ArtifactIndex owns the causal DAG for every kind within one project.
type ArtifactIndex struct {
	ProjectDir string
	file       FileIndex
}

// New loads the on-disk index if present, or starts empty.
func New(projectDir string) (*ArtifactIndex, error) {
	idx := &ArtifactIndex{ProjectDir: projectDir, file: FileIndex{Version: indexVersion, Kinds: map[string]KindIndex{}}}
	path := filepath.Join(projectDir, indexFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, &idx.file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", indexFileName, err)
	}
	return idx, nil
}

// Save persists the index to the project's .artifact-order.json.
func (idx *ArtifactIndex) Save() error {
	b, err := json.MarshalIndent(idx.file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(idx.ProjectDir, indexFileName), b, 0644)
}

// kindDir returns docs/<dirname> for kind.
func (idx *ArtifactIndex) kindDir(kind types.Kind) string {
	return filepath.Join(idx.ProjectDir, "docs", kind.DirName())
}

// shortNames lists artifact directory names present for kind on disk.
func (idx *ArtifactIndex) shortNames(kind types.Kind) ([]string, error) {
	entries, err := os.ReadDir(idx.kindDir(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// loadFrontmatter reads and decodes an artifact's frontmatter, returning
// (nil, warning) if missing or malformed rather than erroring.
func (idx *ArtifactIndex) loadFrontmatter(kind types.Kind, short string) (*types.Frontmatter, *Warning) {
	dir := filepath.Join(idx.kindDir(kind), short)
	mainFile := filepath.Join(dir, kind.MainFile())

	if _, err := os.Stat(filepath.Join(dir, "external.yaml")); err == nil {
		if _, err := os.Stat(mainFile); err != nil {
			// External pointer artifact: no local created_after DAG
			// participation beyond what external.yaml itself states. The
			// index treats it as having no frontmatter to index locally;
			// internal/extref handles its created_after separately.
			return nil, nil
		}
	}

	doc, err := frontmatter.Read(mainFile)
	if err != nil {
		return nil, &Warning{Kind: kind, Short: short, Msg: err.Error()}
	}
	if doc == nil {
		return nil, &Warning{Kind: kind, Short: short, Msg: "missing or malformed frontmatter block"}
	}

	var fm types.Frontmatter
	if err := doc.Root.Decode(&fm); err != nil {
		return nil, &Warning{Kind: kind, Short: short, Msg: err.Error()}
	}

	// Legacy "chunks" -> "proposed_chunks" rename shim for narratives.
	if kind == types.KindNarrative && len(fm.ProposedChunks) == 0 {
		var legacy []string
		if ok, _ := doc.GetField("chunks", &legacy); ok {
			fm.ProposedChunks = legacy
		}
	}

	return &fm, nil
}

// Build rebuilds the index for kind from disk, using Kahn's algorithm.
// Returns the warnings collected for skipped/malformed artifacts. A cycle
// aborts the build for this kind with *verrors.CycleInKind and writes
// nothing for it.
func (idx *ArtifactIndex) Build(kind types.Kind) ([]Warning, error) {
	shorts, err := idx.shortNames(kind)
	if err != nil {
		return nil, err
	}

	deps := map[string][]string{}
	hashes := map[string]string{}
	var warnings []Warning

	for _, short := range shorts {
		fm, warn := idx.loadFrontmatter(kind, short)
		if warn != nil {
			warnings = append(warnings, *warn)
			continue
		}
		if fm == nil {
			continue // external pointer, not part of the local DAG
		}
		deps[short] = fm.CreatedAfter
		h, err := hash.ContentHash(filepath.Join(idx.kindDir(kind), short, kind.MainFile()))
		if err != nil {
			warnings = append(warnings, Warning{Kind: kind, Short: short, Msg: err.Error()})
			continue
		}
		hashes[short] = h
	}

	ordered, err := kahn(deps)
	if err != nil {
		if cyc, ok := err.(*verrors.CycleInKind); ok {
			cyc.Kind = string(kind)
		}
		return warnings, err
	}

	referenced := map[string]bool{}
	for _, parents := range deps {
		for _, p := range parents {
			referenced[p] = true
		}
	}
	var tips []string
	for short := range deps {
		if !referenced[short] {
			tips = append(tips, short)
		}
	}
	sort.Strings(tips)

	idx.file.Kinds[string(kind)] = KindIndex{Ordered: ordered, Tips: tips, Hashes: hashes}
	return warnings, nil
}

// kahn runs Kahn's algorithm over deps (short -> created_after short
// names), queueing roots and then newly-zero-in-degree nodes in
// lexicographic order for determinism.
func kahn(deps map[string][]string) ([]string, error) {
	indegree := map[string]int{}
	children := map[string][]string{}
	for short := range deps {
		if _, ok := indegree[short]; !ok {
			indegree[short] = 0
		}
	}
	for short, parents := range deps {
		indegree[short] += len(parents)
		for _, p := range parents {
			children[p] = append(children[p], short)
		}
	}
	for _, kids := range children {
		sort.Strings(kids)
	}

	var queue []string
	for short, d := range indegree {
		if d == 0 {
			queue = append(queue, short)
		}
	}
	sort.Strings(queue)

	var ordered []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		ordered = append(ordered, n)
		var newlyReady []string
		for _, child := range children[n] {
			indegree[child]--
			if indegree[child] == 0 {
				newlyReady = append(newlyReady, child)
			}
		}
		sort.Strings(newlyReady)
		queue = append(queue, newlyReady...)
		sort.Strings(queue)
	}

	if len(ordered) != len(deps) {
		var participants []string
		seen := map[string]bool{}
		for _, s := range ordered {
			seen[s] = true
		}
		for s := range deps {
			if !seen[s] {
				participants = append(participants, s)
			}
		}
		sort.Strings(participants)
		return nil, &verrors.CycleInKind{Participants: participants}
	}

	return ordered, nil
}

// IsStale reports whether kind's persisted index no longer matches disk:
// the directory set differs from the hash map's keys, or any present
// short's content hash changed.
func (idx *ArtifactIndex) IsStale(kind types.Kind) (bool, error) {
	ki, ok := idx.file.Kinds[string(kind)]
	if !ok {
		return true, nil
	}
	shorts, err := idx.shortNames(kind)
	if err != nil {
		return false, err
	}
	onDisk := map[string]bool{}
	for _, s := range shorts {
		onDisk[s] = true
	}
	if len(onDisk) != len(ki.Hashes) {
		return true, nil
	}
	for short, stored := range ki.Hashes {
		if !onDisk[short] {
			return true, nil
		}
		current, err := hash.ContentHash(filepath.Join(idx.kindDir(kind), short, kind.MainFile()))
		if err != nil {
			return true, nil
		}
		if current != stored {
			return true, nil
		}
	}
	return false, nil
}

// EnsureFresh rebuilds kind's index if stale.
func (idx *ArtifactIndex) EnsureFresh(kind types.Kind) ([]Warning, error) {
	stale, err := idx.IsStale(kind)
	if err != nil {
		return nil, err
	}
	if !stale {
		return nil, nil
	}
	return idx.Build(kind)
}

// StatusFilter narrows a tip/ordered-list query to artifacts whose status
// passes the predicate. A nil filter matches every status; every call site
// passes its filter explicitly rather than relying on an implicit default.
type StatusFilter func(types.Status) bool

// Ordered returns kind's topologically ordered short names, optionally
// restricted by filter.
func (idx *ArtifactIndex) Ordered(kind types.Kind, filter StatusFilter) ([]string, error) {
	ki, ok := idx.file.Kinds[string(kind)]
	if !ok {
		return nil, nil
	}
	if filter == nil {
		return ki.Ordered, nil
	}
	var out []string
	for _, short := range ki.Ordered {
		fm, warn := idx.loadFrontmatter(kind, short)
		if warn != nil || fm == nil {
			continue
		}
		if filter(fm.Status) {
			out = append(out, short)
		}
	}
	return out, nil
}

// FindTips returns kind's tip set (artifacts not referenced by any
// sibling's created_after), optionally restricted by filter. This is the
// single entry point every artifact-creation command calls to populate a
// fresh artifact's created_after.
func (idx *ArtifactIndex) FindTips(kind types.Kind, filter StatusFilter) ([]string, error) {
	ki, ok := idx.file.Kinds[string(kind)]
	if !ok {
		return nil, nil
	}
	if filter == nil {
		return ki.Tips, nil
	}
	var out []string
	for _, short := range ki.Tips {
		fm, warn := idx.loadFrontmatter(kind, short)
		if warn != nil || fm == nil {
			continue
		}
		if filter(fm.Status) {
			out = append(out, short)
		}
	}
	return out, nil
}

// FindDuplicates returns existing short names within kind equal to short,
// used to detect a CollisionDetected before creating a new artifact.
func (idx *ArtifactIndex) FindDuplicates(kind types.Kind, short string) ([]string, error) {
	shorts, err := idx.shortNames(kind)
	if err != nil {
		return nil, err
	}
	var dups []string
	for _, s := range shorts {
		if s == short {
			dups = append(dups, s)
		}
	}
	return dups, nil
}

// RemoveStaleEntries drops hash entries for shorts no longer on disk: when
// an artifact's directory is deleted, its hashes entry should go with it.
// Build already achieves this by only ever reading live directories; this
// helper exists for callers that want to prune without a full rebuild.
func (idx *ArtifactIndex) RemoveStaleEntries(kind types.Kind) error {
	shorts, err := idx.shortNames(kind)
	if err != nil {
		return err
	}
	onDisk := map[string]bool{}
	for _, s := range shorts {
		onDisk[s] = true
	}
	ki := idx.file.Kinds[string(kind)]
	for short := range ki.Hashes {
		if !onDisk[short] {
			delete(ki.Hashes, short)
		}
	}
	idx.file.Kinds[string(kind)] = ki
	return nil
}
