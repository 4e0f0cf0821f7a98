package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/netguy204/ve/internal/extref"
	"github.com/netguy204/ve/internal/repocache"
	"github.com/netguy204/ve/internal/types"
)

// syncResult is one external.yaml's outcome.
type syncResult struct {
	ChunkID string `json:"chunk_id"`
	OldSHA  string `json:"old_sha"`
	NewSHA  string `json:"new_sha"`
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

func init() {
	dryRun := false
	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "artifact",
		Short:   "Advance pinned SHAs across every external.yaml reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runSync(requireProjectRoot(), dryRun)
			if err := printJSON(results); err != nil {
				return err
			}
			for _, r := range results {
				if r.Error != "" {
					return fmt.Errorf("sync had errors; see output above")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and report without writing pinned SHAs")
	rootCmd.AddCommand(cmd)
}

// runSync walks every docs/<kind>/<short>/external.yaml under root and
// advances its pinned SHA. Each entry's failure is isolated: one bad
// external does not stop the walk.
func runSync(root string, dryRun bool) []syncResult {
	var results []syncResult

	taskMode := extref.IsTaskDirectory(root)
	var cache *repocache.Cache
	var taskCfg *extref.TaskConfig
	var setupErr error
	if taskMode {
		taskCfg, setupErr = extref.LoadTaskConfig(root)
	} else {
		cache, setupErr = repocache.New()
	}

	for _, kind := range types.AllKinds {
		kindDir := filepath.Join(root, "docs", kind.DirName())
		entries, err := os.ReadDir(kindDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(kindDir, e.Name())
			if !extref.IsExternal(dir, kind) {
				continue
			}
			chunkID := e.Name()
			if setupErr != nil {
				results = append(results, syncResult{ChunkID: chunkID, Error: setupErr.Error()})
				continue
			}
			results = append(results, syncOne(root, dir, chunkID, taskMode, taskCfg, cache, dryRun))
		}
	}
	return results
}

func syncOne(taskDir, dir, chunkID string, taskMode bool, taskCfg *extref.TaskConfig, cache *repocache.Cache, dryRun bool) syncResult {
	ref, err := extref.Load(dir)
	if err != nil {
		return syncResult{ChunkID: chunkID, Error: err.Error()}
	}
	oldSHA := ref.Pinned

	var newSHA string
	if taskMode {
		newSHA, err = resolveTaskHeadSHA(taskDir, taskCfg, ref.Repo)
	} else {
		track := ref.Track
		if track == "" {
			track = "HEAD"
		}
		newSHA, err = cache.ResolveRef(ref.Repo, track)
	}
	if err != nil {
		return syncResult{ChunkID: chunkID, OldSHA: oldSHA, Error: err.Error()}
	}

	updated := newSHA != oldSHA
	if updated && !dryRun {
		ref.Pinned = newSHA
		if err := writeExternalRef(dir, ref); err != nil {
			return syncResult{ChunkID: chunkID, OldSHA: oldSHA, NewSHA: newSHA, Error: err.Error()}
		}
	}

	return syncResult{ChunkID: chunkID, OldSHA: oldSHA, NewSHA: newSHA, Updated: updated}
}

// resolveTaskHeadSHA reads the sibling worktree's current HEAD in
// task-directory mode.
func resolveTaskHeadSHA(taskDir string, cfg *extref.TaskConfig, repo string) (string, error) {
	repoDir, err := extref.ResolveRepoDirectory(taskDir, repo)
	if err != nil {
		return "", err
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD of %s: %w", repo, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func writeExternalRef(dir string, ref *types.ExternalRef) error {
	b, err := yaml.Marshal(ref)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "external.yaml"), b, 0644)
}
