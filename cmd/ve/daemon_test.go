package main

import (
	"context"
	"os"
	"testing"

	vedaemon "github.com/netguy204/ve/internal/daemon"
)

func TestRunDaemonStartStopsWhenContextIsCancelled(t *testing.T) {
	dir := newFixtureProject(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := runDaemonStart(ctx, true); err != nil {
		t.Fatalf("runDaemonStart returned error: %v", err)
	}

	paths := vedaemon.NewPaths(dir)
	if _, err := os.Stat(paths.PID); err == nil {
		t.Fatal("expected the PID file to be removed once the daemon stops")
	}
	if _, err := os.Stat(paths.Socket); err == nil {
		t.Fatal("expected the unix socket to be removed once the daemon stops")
	}
}

func TestRunDaemonStopWithoutPIDFileReturnsError(t *testing.T) {
	newFixtureProject(t)
	if err := runDaemonStop(); err == nil {
		t.Fatal("expected an error stopping a daemon with no pid file")
	}
}
