// Package extref resolves external artifact references: artifacts whose
// directory holds external.yaml instead of a main document, pointing at
// another repository's artifact by ID and pinned/tracked ref.
package extref

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/netguy204/ve/internal/repocache"
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/verrors"
)

// IsExternal reports whether dir is an external pointer artifact: it has
// external.yaml but not kind's main file.
func IsExternal(dir string, kind types.Kind) bool {
	_, errExt := os.Stat(filepath.Join(dir, "external.yaml"))
	_, errMain := os.Stat(filepath.Join(dir, kind.MainFile()))
	return errExt == nil && errMain != nil
}

// Load reads and parses external.yaml from dir.
func Load(dir string) (*types.ExternalRef, error) {
	path := filepath.Join(dir, "external.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ref types.ExternalRef
	if err := yaml.Unmarshal(b, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Create writes a new external.yaml under projectDir/docs/<kind dir>/<short>.
func Create(projectDir string, kind types.Kind, short string, ref types.ExternalRef) (string, error) {
	dir := filepath.Join(projectDir, "docs", kind.DirName(), short)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if ref.Track == "" {
		ref.Track = "main"
	}
	b, err := yaml.Marshal(ref)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "external.yaml")
	if err := os.WriteFile(path, b, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Result is the outcome of resolving an external artifact's content:
// kind.MainFile() plus an optional PLAN.md, since chunks are the only kind
// with a second well-known file.
type Result struct {
	Repo           string
	ArtifactID     string
	Track          string
	ResolvedSHA    string
	MainContent    string
	PlanContent    string // chunks only
	HasPlanContent bool
}

// ResolveSingleRepo resolves an external artifact using the user-global
// repo cache (single-repo mode): clones/fetches the external repo, resolves
// track or pinned to a SHA, and reads content at that SHA.
func ResolveSingleRepo(cache *repocache.Cache, ref *types.ExternalRef, kind types.Kind, atPinned bool) (*Result, error) {
	resolvedSHA, err := resolveSHA(cache, ref, atPinned)
	if err != nil {
		return nil, err
	}

	artifactDir := "docs/" + kind.DirName() + "/" + ref.ArtifactID
	mainPath := artifactDir + "/" + kind.MainFile()

	mainContent, err := cache.GetFileAtRef(ref.Repo, resolvedSHA, mainPath)
	if err != nil {
		return nil, &verrors.FileNotFound{Repo: ref.Repo, Ref: resolvedSHA, Path: mainPath}
	}

	result := &Result{
		Repo: ref.Repo, ArtifactID: ref.ArtifactID,
		Track: nonEmpty(ref.Track, "main"), ResolvedSHA: resolvedSHA, MainContent: mainContent,
	}

	if kind == types.KindChunk {
		planPath := artifactDir + "/PLAN.md"
		if plan, err := cache.GetFileAtRef(ref.Repo, resolvedSHA, planPath); err == nil {
			result.PlanContent = plan
			result.HasPlanContent = true
		}
	}

	return result, nil
}

func resolveSHA(cache *repocache.Cache, ref *types.ExternalRef, atPinned bool) (string, error) {
	if atPinned {
		if ref.Pinned == "" {
			return "", &verrors.ValidationFailure{Field: "pinned", Reason: "external reference has no pinned SHA"}
		}
		return ref.Pinned, nil
	}
	track := nonEmpty(ref.Track, "HEAD")
	return cache.ResolveRef(ref.Repo, track)
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// TaskConfig is .ve-task.yaml's schema: presence of this file at a
// directory signals task-directory mode, where sibling checkouts replace
// the repo cache as the source of external artifact content.
type TaskConfig struct {
	ExternalArtifactRepo string   `yaml:"external_artifact_repo"`
	Projects             []string `yaml:"projects"`
}

// LoadTaskConfig reads .ve-task.yaml from taskDir.
func LoadTaskConfig(taskDir string) (*TaskConfig, error) {
	b, err := os.ReadFile(filepath.Join(taskDir, ".ve-task.yaml"))
	if err != nil {
		return nil, err
	}
	var cfg TaskConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsTaskDirectory reports whether dir contains .ve-task.yaml.
func IsTaskDirectory(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".ve-task.yaml"))
	return err == nil
}

// ResolveRepoDirectory maps an "org/name" project reference to its sibling
// worktree directory under taskDir: the directory whose name is the repo's
// bare name (the part after the last "/"). Task-directory layout assumes
// these are sibling project directories that are real worktrees.
func ResolveRepoDirectory(taskDir, repoRef string) (string, error) {
	name := repoRef
	if i := strings.LastIndex(repoRef, "/"); i >= 0 {
		name = repoRef[i+1:]
	}
	dir := filepath.Join(taskDir, name)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", &verrors.NotFound{Kind: "project directory", Name: repoRef}
	}
	return dir, nil
}

// ResolveTaskDirectory resolves an external artifact entirely through the
// local filesystem: references are resolved via sibling worktrees, never
// the repo cache, in task-directory mode. It never needs pinned-SHA content
// reads at a past commit since sibling worktrees already sit at the
// tracked ref.
func ResolveTaskDirectory(taskDir string, cfg *TaskConfig, kind types.Kind, localShort string, projectFilter string) (*Result, error) {
	projects := cfg.Projects
	if projectFilter != "" {
		var matching []string
		for _, p := range cfg.Projects {
			if p == projectFilter || strings.HasSuffix(p, "/"+projectFilter) {
				matching = append(matching, p)
			}
		}
		if len(matching) == 0 {
			return nil, &verrors.NotFound{Kind: "project", Name: projectFilter}
		}
		projects = matching
	}

	type match struct {
		projectRef string
		dir        string
	}
	var matches []match
	for _, projectRef := range projects {
		repoDir, err := ResolveRepoDirectory(taskDir, projectRef)
		if err != nil {
			continue
		}
		if dir, ok := FindArtifactDir(repoDir, kind, localShort); ok {
			matches = append(matches, match{projectRef, dir})
		}
	}

	if len(matches) == 0 {
		return nil, &verrors.NotFound{Kind: string(kind), Name: localShort}
	}
	if len(matches) > 1 && projectFilter == "" {
		return nil, &verrors.ValidationFailure{
			Field:  "project",
			Reason: localShort + " exists in multiple projects; pass a project filter to disambiguate",
		}
	}

	dir := matches[0].dir
	if !IsExternal(dir, kind) {
		return nil, &verrors.ValidationFailure{Field: "artifact", Reason: localShort + " is not an external reference"}
	}

	ref, err := Load(dir)
	if err != nil {
		return nil, err
	}

	repoDir, err := ResolveRepoDirectory(taskDir, ref.Repo)
	if err != nil {
		return nil, err
	}

	artifactDir := filepath.Join(repoDir, "docs", kind.DirName(), ref.ArtifactID)
	mainPath := filepath.Join(artifactDir, kind.MainFile())
	mainBytes, err := os.ReadFile(mainPath)
	if err != nil {
		return nil, &verrors.FileNotFound{Repo: ref.Repo, Ref: "HEAD", Path: mainPath}
	}

	result := &Result{
		Repo: ref.Repo, ArtifactID: ref.ArtifactID, Track: nonEmpty(ref.Track, "main"),
		MainContent: string(mainBytes),
	}
	if kind == types.KindChunk {
		if planBytes, err := os.ReadFile(filepath.Join(artifactDir, "PLAN.md")); err == nil {
			result.PlanContent = string(planBytes)
			result.HasPlanContent = true
		}
	}
	return result, nil
}

// FindArtifactDir searches projectDir's docs/<kind dir> for a directory
// whose name equals shortOrPrefix or starts with shortOrPrefix + "-".
func FindArtifactDir(projectDir string, kind types.Kind, shortOrPrefix string) (string, bool) {
	base := filepath.Join(projectDir, "docs", kind.DirName())
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if e.Name() == shortOrPrefix || strings.HasPrefix(e.Name(), shortOrPrefix+"-") {
			return filepath.Join(base, e.Name()), true
		}
	}
	return "", false
}
