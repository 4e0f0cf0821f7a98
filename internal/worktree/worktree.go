// Package worktree manages per-chunk git worktrees under .ve/worktrees:
// create at HEAD, health-check/repair, fast-forward merge, and remove
// (worktree plus branch; no displaced-chunk restoration happens here).
package worktree

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/netguy204/ve/internal/verrors"
)

// Manager owns worktree lifecycle for one project repository.
type Manager struct {
	RepoPath string
}

func New(repoPath string) *Manager {
	return &Manager{RepoPath: repoPath}
}

func (m *Manager) pathFor(chunk string) string {
	return filepath.Join(m.RepoPath, ".ve", "worktrees", chunk)
}

func (m *Manager) branchFor(chunk string) string {
	return "ve/" + chunk
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &verrors.GitFailure{Op: strings.Join(args, " "), Detail: strings.TrimSpace(string(out))}
	}
	return strings.TrimSpace(string(out)), nil
}

// isValid reports whether path is listed among the repo's registered
// worktrees.
func (m *Manager) isValid(path string) bool {
	out, err := runGit(m.RepoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return false
	}
	absPath, aerr := filepath.Abs(path)
	if aerr != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "worktree ") {
			wp := strings.TrimSpace(strings.TrimPrefix(line, "worktree "))
			if wabs, err := filepath.Abs(wp); err == nil && wabs == absPath {
				return true
			}
		}
	}
	return false
}

// Health verifies path is a registered, intact worktree.
func (m *Manager) Health(chunk string) error {
	path := m.pathFor(chunk)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("worktree for %s does not exist", chunk)
	}
	if !m.isValid(path) {
		return fmt.Errorf("path exists but is not a registered git worktree: %s", path)
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return fmt.Errorf("worktree .git file missing: %w", err)
	}
	return nil
}

// Create makes a git worktree at .ve/worktrees/<chunk>, branched off HEAD
// at the current commit. If a displaced chunk is currently IMPLEMENTING,
// the caller records displacedChunk on the work unit and demotes it to
// FUTURE before calling Create; Create itself is purely mechanical.
func (m *Manager) Create(chunk string) (string, error) {
	path := m.pathFor(chunk)

	if _, err := os.Stat(path); err == nil {
		if m.isValid(path) && m.Health(chunk) == nil {
			return path, nil
		}
		_ = m.Remove(chunk)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	_, _ = runGit(m.RepoPath, "worktree", "prune")

	branch := m.branchFor(chunk)
	if _, err := runGit(m.RepoPath, "worktree", "add", "-f", "-b", branch, path, "HEAD"); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes chunk's worktree and local branch.
func (m *Manager) Remove(chunk string) error {
	path := m.pathFor(chunk)
	if _, err := runGit(m.RepoPath, "worktree", "remove", path, "--force"); err != nil {
		_ = os.RemoveAll(path)
		_, _ = runGit(m.RepoPath, "worktree", "prune")
	}
	_, _ = runGit(m.RepoPath, "branch", "-D", m.branchFor(chunk))
	return nil
}

// MergeResult reports the outcome of a completion merge.
type MergeResult struct {
	Merged   bool
	Conflict bool
	Detail   string
}

// Merge fast-forwards the project's current branch onto chunk's worktree
// branch. When a fast-forward is not possible it returns Conflict=true in
// the result (with a nil error) and attempts no real merge; it does not
// change any work unit's status.
func (m *Manager) Merge(chunk string) (MergeResult, error) {
	branch := m.branchFor(chunk)
	out, err := runGit(m.RepoPath, "merge", "--ff-only", branch)
	if err != nil {
		return MergeResult{Merged: false, Conflict: true, Detail: err.Error()}, nil
	}
	return MergeResult{Merged: true, Detail: out}, nil
}

// Path returns chunk's worktree path without touching git.
func (m *Manager) Path(chunk string) string {
	return m.pathFor(chunk)
}
