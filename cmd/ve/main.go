// Command ve is the workflow substrate's CLI: artifact lifecycle, daemon
// control, and work-unit/attention queue inspection.
package main

import (
	"fmt"
	"os"

	"github.com/netguy204/ve/internal/verrors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printCLIError(err)
		os.Exit(1)
	}
}

// printCLIError names the offending artifact and the violated rule, using
// the named error taxonomy in internal/verrors.
func printCLIError(err error) {
	switch e := err.(type) {
	case *verrors.NotFound:
		fmt.Fprintf(os.Stderr, "error: %s %q not found\n", e.Kind, e.Name)
	case *verrors.IllegalTransition:
		fmt.Fprintf(os.Stderr, "error: cannot transition %s from %s to %s (allowed: %v)\n", e.Kind, e.From, e.To, e.Allowed)
	case *verrors.ValidationFailure:
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", e.Field, e.Reason)
	case *verrors.CollisionDetected:
		fmt.Fprintf(os.Stderr, "error: %s %q already exists\n", e.Kind, e.Name)
	case *verrors.CycleInKind:
		fmt.Fprintf(os.Stderr, "error: cycle detected among %s artifacts: %v\n", e.Kind, e.Participants)
	case *verrors.AlreadyRunning:
		fmt.Fprintf(os.Stderr, "error: daemon already running (pid %d)\n", e.PID)
	case *verrors.DaemonNotRunning:
		fmt.Fprintln(os.Stderr, "error: daemon is not running")
	case *verrors.ConnectTimeout:
		fmt.Fprintf(os.Stderr, "error: timed out connecting to %s\n", e.Socket)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}
