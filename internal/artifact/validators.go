package artifact

import (
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/verrors"
)

// Validator validates a named artifact of kind k, returning an error if
// validation fails. Validators compose via Chain.
type Validator func(kind types.Kind, short string, a *types.Artifact) error

func Chain(validators ...Validator) Validator {
	return func(kind types.Kind, short string, a *types.Artifact) error {
		for _, v := range validators {
			if err := v(kind, short, a); err != nil {
				return err
			}
		}
		return nil
	}
}

// Exists validates that the artifact was found.
func Exists() Validator {
	return func(kind types.Kind, short string, a *types.Artifact) error {
		if a == nil {
			return &verrors.NotFound{Kind: string(kind), Name: short}
		}
		return nil
	}
}

// NotExternal validates that the artifact is not a pure external pointer.
func NotExternal() Validator {
	return func(kind types.Kind, short string, a *types.Artifact) error {
		if a != nil && a.IsExternal() {
			return &verrors.ValidationFailure{Field: "artifact", Reason: short + " is an external reference, not a local artifact"}
		}
		return nil
	}
}

// NotTerminal validates that the artifact's current status still has
// outgoing transitions.
func NotTerminal() Validator {
	return func(kind types.Kind, short string, a *types.Artifact) error {
		if a == nil || a.Frontmatter == nil {
			return nil
		}
		if IsTerminal(kind, a.Frontmatter.Status) {
			return &verrors.IllegalTransition{
				Kind: string(kind), From: string(a.Frontmatter.Status), To: "(any)",
			}
		}
		return nil
	}
}

// ForTransition is the validator chain used before attempting a status
// transition: the artifact must exist, be local (not external), and not be
// in a terminal state.
func ForTransition() Validator {
	return Chain(Exists(), NotExternal(), NotTerminal())
}

// maxShortNameLen is the longest accepted short name; ValidateShortName
// also restricts its characters to [a-z0-9_-].
const maxShortNameLen = 31

// ValidateShortName checks the short-name shape rule.
func ValidateShortName(short string) error {
	if len(short) == 0 || len(short) > maxShortNameLen {
		return &verrors.ValidationFailure{Field: "short_name", Reason: "must be 1-31 characters"}
	}
	for _, r := range short {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
		if !ok {
			return &verrors.ValidationFailure{Field: "short_name", Reason: "must match [a-z0-9_-]+"}
		}
	}
	return nil
}
