package artifact

import "github.com/netguy204/ve/internal/verrors"

// CheckSingleImplementing enforces the single-threaded "current work"
// guarantee: a chunk may only enter IMPLEMENTING if no other chunk is
// already IMPLEMENTING. currentlyImplementing is the short name of the
// chunk presently IMPLEMENTING, or "" if none.
func CheckSingleImplementing(target, currentlyImplementing string) error {
	if currentlyImplementing != "" && currentlyImplementing != target {
		return &verrors.ValidationFailure{
			Field:  "status",
			Reason: "chunk " + currentlyImplementing + " is already IMPLEMENTING; only one chunk may be IMPLEMENTING at a time",
		}
	}
	return nil
}
