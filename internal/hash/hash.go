// Package hash computes a stable content hash of an artifact's frontmatter
// file, used by the artifact index to detect staleness.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"strings"
)

// ContentHash hashes path. It prefers a git object hash (stable across
// merges, matching what `git hash-object` would record); `git hash-object`
// hashes any readable file, inside a git work tree or not, so the SHA-256
// fallback over the file bytes applies only when the git command fails
// (for example, git is not installed).
func ContentHash(path string) (string, error) {
	if h, err := GitObjectHash(path); err == nil {
		return h, nil
	}
	return SHA256(path)
}

// GitObjectHash shells out to `git hash-object` for path's repository.
func GitObjectHash(path string) (string, error) {
	cmd := exec.Command("git", "hash-object", path)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// SHA256 hashes the raw file bytes.
func SHA256(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
