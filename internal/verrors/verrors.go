// Package verrors defines the named error taxonomy surfaced across the
// workflow substrate. Every kind names the offending artifact or reference
// and the rule that was violated, so CLI and HTTP layers can render a
// precise message without re-deriving context.
package verrors

import "fmt"

// NotFound is returned when an artifact, work unit, or external ref is
// absent.
type NotFound struct {
	Kind string
	Name string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// IllegalTransition is returned when a status transition does not appear in
// the kind's transition table.
type IllegalTransition struct {
	Kind    string
	From    string
	To      string
	Allowed []string
}

func (e *IllegalTransition) Error() string {
	return fmt.Sprintf("cannot transition %s from %s to %s (allowed: %v)", e.Kind, e.From, e.To, e.Allowed)
}

// ValidationFailure is returned for short-name, reference-shape, or enum
// validation failures.
type ValidationFailure struct {
	Field  string
	Reason string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// CollisionDetected is returned when an artifact creation collides with an
// existing short name within the same kind.
type CollisionDetected struct {
	Kind string
	Name string
}

func (e *CollisionDetected) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}

// CycleInKind is returned when the artifact index's DAG build detects a
// cycle in a kind's created_after edges.
type CycleInKind struct {
	Kind         string
	Participants []string
}

func (e *CycleInKind) Error() string {
	return fmt.Sprintf("cycle detected among %s artifacts: %v", e.Kind, e.Participants)
}

// GitFailure wraps a nonzero exit from a git subprocess.
type GitFailure struct {
	Op     string
	Detail string
}

func (e *GitFailure) Error() string {
	return fmt.Sprintf("git %s failed: %s", e.Op, e.Detail)
}

// CacheRefreshFailed is returned when a network-level repository cache
// refresh fails.
type CacheRefreshFailed struct {
	Repo string
	Err  error
}

func (e *CacheRefreshFailed) Error() string {
	return fmt.Sprintf("cache refresh failed for %s: %v", e.Repo, e.Err)
}

func (e *CacheRefreshFailed) Unwrap() error { return e.Err }

// RefNotFound is returned when a ref cannot be resolved after a
// fetch-and-retry.
type RefNotFound struct {
	Repo string
	Ref  string
}

func (e *RefNotFound) Error() string {
	return fmt.Sprintf("ref %q not found in %s", e.Ref, e.Repo)
}

// FileNotFound is returned when a file at a ref cannot be read after a
// fetch-and-retry.
type FileNotFound struct {
	Repo string
	Ref  string
	Path string
}

func (e *FileNotFound) Error() string {
	return fmt.Sprintf("%s not found at %s in %s", e.Path, e.Ref, e.Repo)
}

// DaemonNotRunning is returned when a command requiring the daemon finds
// none running.
type DaemonNotRunning struct{}

func (e *DaemonNotRunning) Error() string { return "daemon is not running" }

// AlreadyRunning is returned on daemon startup when a live instance already
// holds the PID file.
type AlreadyRunning struct {
	PID int
}

func (e *AlreadyRunning) Error() string {
	return fmt.Sprintf("daemon already running (pid %d)", e.PID)
}

// ConnectTimeout is returned when the CLI cannot reach the daemon socket in
// time.
type ConnectTimeout struct {
	Socket string
}

func (e *ConnectTimeout) Error() string {
	return fmt.Sprintf("timed out connecting to %s", e.Socket)
}

// IndexStale names a kind whose artifact index is stale. No package returns
// it: index.EnsureFresh detects staleness and rebuilds directly.
type IndexStale struct {
	Kind string
}

func (e *IndexStale) Error() string {
	return fmt.Sprintf("index for kind %s is stale", e.Kind)
}
