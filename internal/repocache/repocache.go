// Package repocache implements the user-global repository cache:
// clone/fetch/reset external repos, read a file or list a directory at a
// ref, with fetch-and-retry-once semantics on miss.
package repocache

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/netguy204/ve/internal/verrors"
)

// Cache is a user-global directory mapping org/repo to a working clone.
type Cache struct {
	Dir string // defaults to ~/.ve/cache/repos
}

// New returns a Cache rooted at the default location, creating it if
// absent.
func New() (*Cache, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".ve", "cache", "repos")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{Dir: dir}, nil
}

func (c *Cache) repoPath(repo string) string {
	return filepath.Join(c.Dir, strings.ReplaceAll(repo, "/", "__"))
}

func repoToURL(repo string) string {
	if strings.Contains(repo, "://") || strings.HasPrefix(repo, "git@") {
		return repo
	}
	return "https://github.com/" + repo + ".git"
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &verrors.GitFailure{Op: strings.Join(args, " "), Detail: strings.TrimSpace(string(out))}
	}
	return strings.TrimSpace(string(out)), nil
}

func isBareRepo(path string) bool {
	out, err := runGit(path, "rev-parse", "--is-bare-repository")
	return err == nil && out == "true"
}

// EnsureCached clones repo if absent, fetches+resets if present, or
// re-clones if the existing clone is a bare legacy checkout. On network
// failure during refresh it returns *verrors.CacheRefreshFailed, leaving
// the existing working tree in place for the caller to use anyway.
func (c *Cache) EnsureCached(repo string) (string, error) {
	lock := flock.New(c.repoPath(repo) + ".lock")
	_ = lock.Lock()
	defer lock.Unlock()

	path := c.repoPath(repo)
	info, err := os.Stat(path)

	switch {
	case err == nil && info.IsDir() && isBareRepo(path):
		if err := os.RemoveAll(path); err != nil {
			return "", err
		}
		if _, err := runGit("", "clone", "--quiet", repoToURL(repo), path); err != nil {
			return "", &verrors.CacheRefreshFailed{Repo: repo, Err: err}
		}
	case err == nil && info.IsDir():
		if _, ferr := runGit(path, "fetch", "--all", "--quiet"); ferr != nil {
			return path, &verrors.CacheRefreshFailed{Repo: repo, Err: ferr}
		}
		if _, rerr := runGit(path, "reset", "--hard", "origin/HEAD"); rerr != nil {
			return path, &verrors.CacheRefreshFailed{Repo: repo, Err: rerr}
		}
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", err
		}
		if _, err := runGit("", "clone", "--quiet", repoToURL(repo), path); err != nil {
			return "", &verrors.CacheRefreshFailed{Repo: repo, Err: err}
		}
	}

	return path, nil
}

// GetRepoPath returns the cache path with no network access.
func (c *Cache) GetRepoPath(repo string) string {
	return c.repoPath(repo)
}

// ResolveRef resolves ref to a SHA via `git rev-parse`, fetching once and
// retrying on failure.
func (c *Cache) ResolveRef(repo, ref string) (string, error) {
	path, err := c.EnsureCached(repo)
	if err != nil {
		return "", err
	}
	sha, err := runGit(path, "rev-parse", ref)
	if err != nil {
		if _, ferr := runGit(path, "fetch", "--all", "--quiet"); ferr == nil {
			if sha2, err2 := runGit(path, "rev-parse", ref); err2 == nil {
				return sha2, nil
			}
		}
		return "", &verrors.RefNotFound{Repo: repo, Ref: ref}
	}
	return sha, nil
}

// GetFileAtRef reads path at ref via `git show`, fetching once and
// retrying on miss. An empty file is a valid value.
func (c *Cache) GetFileAtRef(repo, ref, path string) (string, error) {
	repoPath, err := c.EnsureCached(repo)
	if err != nil {
		return "", err
	}
	content, err := runGit(repoPath, "show", ref+":"+path)
	if err != nil {
		if _, ferr := runGit(repoPath, "fetch", "--all", "--quiet"); ferr == nil {
			if content2, err2 := runGit(repoPath, "show", ref+":"+path); err2 == nil {
				return content2, nil
			}
		}
		return "", &verrors.FileNotFound{Repo: repo, Ref: ref, Path: path}
	}
	return content, nil
}

// ListDirectoryAtRef lists bare file names under dir at ref via
// `git ls-tree`, same retry semantics as GetFileAtRef.
func (c *Cache) ListDirectoryAtRef(repo, ref, dir string) ([]string, error) {
	repoPath, err := c.EnsureCached(repo)
	if err != nil {
		return nil, err
	}
	out, err := runGit(repoPath, "ls-tree", "--name-only", ref, dir+"/")
	if err != nil {
		if _, ferr := runGit(repoPath, "fetch", "--all", "--quiet"); ferr == nil {
			if out2, err2 := runGit(repoPath, "ls-tree", "--name-only", ref, dir+"/"); err2 == nil {
				out = out2
				err = nil
			}
		}
		if err != nil {
			return nil, &verrors.FileNotFound{Repo: repo, Ref: ref, Path: dir}
		}
	}
	if out == "" {
		return nil, nil
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "/")
		names = append(names, parts[len(parts)-1])
	}
	return names, nil
}
