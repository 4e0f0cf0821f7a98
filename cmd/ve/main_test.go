package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/netguy204/ve/internal/verrors"
)

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	fn()
	w.Close()
	os.Stderr = old
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestPrintCLIErrorNotFound(t *testing.T) {
	out := captureStderr(t, func() { printCLIError(&verrors.NotFound{Kind: "chunk", Name: "missing"}) })
	if !strings.Contains(out, "chunk") || !strings.Contains(out, "missing") || !strings.Contains(out, "not found") {
		t.Fatalf("output = %q", out)
	}
}

func TestPrintCLIErrorIllegalTransition(t *testing.T) {
	out := captureStderr(t, func() {
		printCLIError(&verrors.IllegalTransition{Kind: "chunk", From: "FUTURE", To: "DONE", Allowed: []string{"IMPLEMENTING"}})
	})
	if !strings.Contains(out, "FUTURE") || !strings.Contains(out, "DONE") {
		t.Fatalf("output = %q", out)
	}
}

func TestPrintCLIErrorDaemonNotRunning(t *testing.T) {
	out := captureStderr(t, func() { printCLIError(&verrors.DaemonNotRunning{}) })
	if !strings.Contains(out, "daemon is not running") {
		t.Fatalf("output = %q", out)
	}
}

func TestPrintCLIErrorFallsBackToGenericMessage(t *testing.T) {
	out := captureStderr(t, func() { printCLIError(errFake("boom")) })
	if !strings.Contains(out, "boom") {
		t.Fatalf("output = %q", out)
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }
