// Package overlap implements the overlap detector: for a chunk, find active
// artifacts whose code references hierarchically overlap any of the
// chunk's references.
package overlap

import (
	"sort"

	"github.com/netguy204/ve/internal/index"
	"github.com/netguy204/ve/internal/refs"
	"github.com/netguy204/ve/internal/types"
)

// Candidate is one artifact considered for overlap against the target.
type Candidate struct {
	Kind types.Kind
	Short string
	Refs []string
}

// Result is a predecessor artifact whose references overlap the target's.
type Result struct {
	Short          string
	Kind           types.Kind
	OverlappingRefs []string
}

// refsOf returns an artifact's effective reference list: code_references if
// present, else code_paths treated as file-only references.
func refsOf(fm *types.Frontmatter) []string {
	if fm == nil {
		return nil
	}
	if len(fm.CodeReferences) > 0 {
		out := make([]string, len(fm.CodeReferences))
		for i, cr := range fm.CodeReferences {
			out[i] = cr.Ref
		}
		return out
	}
	out := make([]string, len(fm.CodePaths))
	copy(out, fm.CodePaths)
	return out
}

// ActiveStatus returns the StatusFilter identifying the "active" set for a
// kind: chunks must be ACTIVE, subsystems must be STABLE.
func ActiveStatus(kind types.Kind) index.StatusFilter {
	switch kind {
	case types.KindChunk:
		return func(s types.Status) bool { return s == "ACTIVE" }
	case types.KindSubsystem:
		return func(s types.Status) bool { return s == "STABLE" }
	default:
		return func(types.Status) bool { return false }
	}
}

// Detect returns every candidate whose references hierarchically overlap
// target's references in either direction, restricted to candidates that
// are topologically earlier than target per isEarlier. Ties break by
// short-name order.
func Detect(targetRefs []string, candidates []Candidate, isEarlier func(short string) bool) []Result {
	var out []Result
	for _, c := range candidates {
		if !isEarlier(c.Short) {
			continue
		}
		var overlapping []string
		seen := map[string]bool{}
		for _, tr := range targetRefs {
			for _, cr := range c.Refs {
				if refs.IsParentOf(tr, cr) || refs.IsParentOf(cr, tr) {
					if !seen[cr] {
						overlapping = append(overlapping, cr)
						seen[cr] = true
					}
				}
			}
		}
		if len(overlapping) > 0 {
			sort.Strings(overlapping)
			out = append(out, Result{Short: c.Short, Kind: c.Kind, OverlappingRefs: overlapping})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Short < out[j].Short })
	return out
}

// RefsFromFrontmatter is exported so callers assembling Candidate lists
// reuse the same code_references/code_paths fallback logic as the target
// artifact's own reference resolution.
func RefsFromFrontmatter(fm *types.Frontmatter) []string {
	return refsOf(fm)
}
