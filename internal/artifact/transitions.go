// Package artifact implements the per-kind artifact model: closed status
// enums, their transition tables, and validator chains gating in-place
// status mutation.
package artifact

import (
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/verrors"
)

// Chunk statuses.
const (
	ChunkFuture      types.Status = "FUTURE"
	ChunkImplementing types.Status = "IMPLEMENTING"
	ChunkActive      types.Status = "ACTIVE"
	ChunkSuperseded  types.Status = "SUPERSEDED"
)

// Narrative statuses.
const (
	NarrativeDrafting   types.Status = "DRAFTING"
	NarrativeActive     types.Status = "ACTIVE"
	NarrativeCompleted  types.Status = "COMPLETED"
	NarrativeSuperseded types.Status = "SUPERSEDED"
)

// Subsystem statuses.
const (
	SubsystemDiscovering types.Status = "DISCOVERING"
	SubsystemDocumented  types.Status = "DOCUMENTED"
	SubsystemRefactoring types.Status = "REFACTORING"
	SubsystemStable      types.Status = "STABLE"
	SubsystemDeprecated  types.Status = "DEPRECATED"
)

// Investigation statuses.
const (
	InvestigationOngoing  types.Status = "ONGOING"
	InvestigationSolved   types.Status = "SOLVED"
	InvestigationNoted    types.Status = "NOTED"
	InvestigationDeferred types.Status = "DEFERRED"
)

// transitionTable maps every kind's legal status to the set of statuses it
// may transition to. A status absent from the table (or present with an
// empty slice) is terminal.
var transitionTable = map[types.Kind]map[types.Status][]types.Status{
	types.KindChunk: {
		ChunkFuture:       {ChunkImplementing},
		ChunkImplementing: {ChunkActive},
		ChunkActive:       {ChunkSuperseded},
		ChunkSuperseded:   {},
	},
	types.KindNarrative: {
		NarrativeDrafting:   {NarrativeActive},
		NarrativeActive:     {NarrativeCompleted, NarrativeSuperseded},
		NarrativeCompleted:  {},
		NarrativeSuperseded: {},
	},
	types.KindSubsystem: {
		SubsystemDiscovering: {SubsystemDocumented},
		SubsystemDocumented:  {SubsystemRefactoring, SubsystemStable},
		SubsystemRefactoring: {SubsystemDocumented},
		SubsystemStable:      {SubsystemDeprecated},
		SubsystemDeprecated:  {},
	},
	types.KindInvestigation: {
		InvestigationOngoing:  {InvestigationSolved, InvestigationNoted, InvestigationDeferred},
		InvestigationSolved:   {},
		InvestigationNoted:    {},
		InvestigationDeferred: {},
	},
}

// InitialStatus returns the status a freshly created artifact of kind k
// starts in.
func InitialStatus(k types.Kind) types.Status {
	switch k {
	case types.KindChunk:
		return ChunkFuture
	case types.KindNarrative:
		return NarrativeDrafting
	case types.KindSubsystem:
		return SubsystemDiscovering
	case types.KindInvestigation:
		return InvestigationOngoing
	default:
		return ""
	}
}

// ValidStatuses returns every legal status for kind k.
func ValidStatuses(k types.Kind) []types.Status {
	var out []types.Status
	for s := range transitionTable[k] {
		out = append(out, s)
	}
	return out
}

// IsValidStatus reports whether status is a member of kind k's enum.
func IsValidStatus(k types.Kind, status types.Status) bool {
	_, ok := transitionTable[k][status]
	return ok
}

// IsTerminal reports whether status has no outgoing transitions for kind k.
func IsTerminal(k types.Kind, status types.Status) bool {
	return len(transitionTable[k][status]) == 0
}

// CheckTransition validates that from -> to is legal for kind k, returning
// an *verrors.IllegalTransition naming the allowed set otherwise. A from
// status absent from k's table yields a *verrors.ValidationFailure.
func CheckTransition(k types.Kind, from, to types.Status) error {
	allowed, ok := transitionTable[k][from]
	if !ok {
		return &verrors.ValidationFailure{Field: "status", Reason: "unknown status " + string(from) + " for kind " + string(k)}
	}
	for _, a := range allowed {
		if a == to {
			return nil
		}
	}
	allowedStrs := make([]string, len(allowed))
	for i, a := range allowed {
		allowedStrs[i] = string(a)
	}
	return &verrors.IllegalTransition{
		Kind:    string(k),
		From:    string(from),
		To:      string(to),
		Allowed: allowedStrs,
	}
}
