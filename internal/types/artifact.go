package types

import "time"

// Status is a per-kind status value. The legal set and transition table for
// each kind live in internal/artifact.
type Status string

// CodeReference is a single {ref, implements} entry in an artifact's
// code_references frontmatter field.
type CodeReference struct {
	Ref        string `yaml:"ref"`
	Implements string `yaml:"implements,omitempty"`
}

// Dependent is a cross-repository consumer of this artifact.
type Dependent struct {
	ArtifactType string `yaml:"artifact_type"`
	ArtifactID   string `yaml:"artifact_id"`
	Repo         string `yaml:"repo"`
}

// Frontmatter is the typed projection of an artifact's common frontmatter
// fields. Callers that need fields beyond this typed projection should
// retain the raw YAML tree alongside it (see internal/frontmatter.Document)
// rather than extending this struct ad hoc.
type Frontmatter struct {
	Status         Status          `yaml:"status"`
	CreatedAfter   []string        `yaml:"created_after"`
	CodeReferences []CodeReference `yaml:"code_references,omitempty"`
	CodePaths      []string        `yaml:"code_paths,omitempty"`
	Subsystems     []string        `yaml:"subsystems,omitempty"`
	Narrative      string          `yaml:"narrative,omitempty"`
	ParentChunk    string          `yaml:"parent_chunk,omitempty"`
	Dependents     []Dependent     `yaml:"dependents,omitempty"`

	// ProposedChunks is narrative-specific; legacy frontmatter may spell it
	// "chunks".
	ProposedChunks []string `yaml:"proposed_chunks,omitempty"`
}

// ExternalRef is the schema of external.yaml: the pointer record a
// pointer artifact carries instead of ordinary frontmatter.
type ExternalRef struct {
	ArtifactType string   `yaml:"artifact_type"`
	ArtifactID   string   `yaml:"artifact_id"`
	Repo         string   `yaml:"repo"`
	Track        string   `yaml:"track,omitempty"`
	Pinned       string   `yaml:"pinned,omitempty"`
	CreatedAfter []string `yaml:"created_after,omitempty"`
}

// Artifact is an in-memory, fully resolved artifact: its identity plus its
// parsed frontmatter (or external ref, for pointer artifacts).
type Artifact struct {
	Kind      Kind
	Short     string
	Dir       string
	External  *ExternalRef
	Frontmatter *Frontmatter
}

func (a *Artifact) IsExternal() bool { return a.External != nil }

// WorkUnitPhase is the chunk lifecycle phase an agent performs.
type WorkUnitPhase string

const (
	PhaseGoal      WorkUnitPhase = "GOAL"
	PhasePlan      WorkUnitPhase = "PLAN"
	PhaseImplement WorkUnitPhase = "IMPLEMENT"
	PhaseComplete  WorkUnitPhase = "COMPLETE"
)

// WorkUnitStatus is the orchestrator scheduling state.
type WorkUnitStatus string

const (
	WUReady           WorkUnitStatus = "READY"
	WURunning         WorkUnitStatus = "RUNNING"
	WUBlocked         WorkUnitStatus = "BLOCKED"
	WUNeedsAttention  WorkUnitStatus = "NEEDS_ATTENTION"
	WUDone            WorkUnitStatus = "DONE"
)

// WorkUnit is the orchestrator's scheduling entity, bound 1:1 to a chunk.
type WorkUnit struct {
	Chunk             string         `json:"chunk"`
	Phase             WorkUnitPhase  `json:"phase"`
	Status            WorkUnitStatus `json:"status"`
	BlockedBy         []string       `json:"blocked_by"`
	Worktree          string         `json:"worktree,omitempty"`
	Priority          int            `json:"priority"`
	SessionID         string         `json:"session_id,omitempty"`
	CompletionRetries int            `json:"completion_retries"`
	AttentionReason   string         `json:"attention_reason,omitempty"`
	DisplacedChunk    string         `json:"displaced_chunk,omitempty"`
	PendingAnswer     string         `json:"pending_answer,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// StatusLogEntry is one append-only row in status_log.
type StatusLogEntry struct {
	ID        int64          `json:"id"`
	Chunk     string         `json:"chunk"`
	OldStatus WorkUnitStatus `json:"old_status,omitempty"`
	NewStatus WorkUnitStatus `json:"new_status"`
	Timestamp time.Time      `json:"timestamp"`
}

// OrchestratorConfig controls scheduling behaviour.
type OrchestratorConfig struct {
	MaxAgents               int     `json:"max_agents"`
	DispatchIntervalSeconds float64 `json:"dispatch_interval_seconds"`
	MaxCompletionRetries    int     `json:"max_completion_retries"`
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxAgents:               2,
		DispatchIntervalSeconds: 1.0,
		MaxCompletionRetries:    2,
	}
}

// OrchestratorState is the GET /status payload.
type OrchestratorState struct {
	Running         bool           `json:"running"`
	PID             int            `json:"pid,omitempty"`
	UptimeSeconds   float64        `json:"uptime_seconds,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	WorkUnitCounts  map[string]int `json:"work_unit_counts"`
	Version         string         `json:"version"`
}

// AgentResult is the result variant of one agent phase invocation, modelled
// as a tagged struct rather than an exception.
type AgentResult struct {
	Completed bool           `json:"completed"`
	Suspended bool           `json:"suspended"`
	SessionID string         `json:"session_id,omitempty"`
	Question  map[string]any `json:"question,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// AttentionItem is one row of the attention queue: a work unit plus how
// many other units it blocks.
type AttentionItem struct {
	WorkUnit     WorkUnit `json:"work_unit"`
	BlockingCount int     `json:"blocking_count"`
}
