package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netguy204/ve/internal/api"
	"github.com/netguy204/ve/internal/config"
	vedaemon "github.com/netguy204/ve/internal/daemon"
	"github.com/netguy204/ve/internal/scheduler"
	"github.com/netguy204/ve/internal/statestore"
	"github.com/netguy204/ve/internal/types"
)

func init() {
	orch := &cobra.Command{
		Use:     "orch",
		GroupID: "daemon",
		Short:   "Start, stop, and inspect the orchestrator daemon",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the orchestrator daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			foreground, _ := cmd.Flags().GetBool("foreground")
			return runDaemonStart(cmd.Context(), foreground)
		},
	}
	startCmd.Flags().Bool("foreground", true, "run in the foreground (no self-daemonization is implemented; always true)")
	orch.AddCommand(startCmd)

	orch.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the running orchestrator daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonStop()
		},
	})

	orch.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the orchestrator daemon's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var state types.OrchestratorState
			if err := daemonClient().Do(cmd.Context(), "GET", "/status", nil, &state); err != nil {
				return err
			}
			return printJSON(state)
		},
	})

	rootCmd.AddCommand(orch)
}

// runDaemonStart wires scheduler.AgentRunner from config and runs the
// daemon until SIGINT/SIGTERM. There is no self-fork; the operator
// backgrounds it with their shell or a process supervisor.
func runDaemonStart(ctx context.Context, foreground bool) error {
	root := requireProjectRoot()

	var runner scheduler.AgentRunner
	apiKey := config.GetString("anthropic_api_key")
	if apiKey == "" {
		runner = scheduler.NoopRunner{}
	} else {
		profile, err := config.LoadAgentProfile(root)
		if err != nil {
			return fmt.Errorf("loading agent profile: %w", err)
		}
		r, err := scheduler.NewAnthropicRunner(apiKey, profile)
		if err != nil {
			return fmt.Errorf("constructing agent runner: %w", err)
		}
		runner = r
	}

	tcpPort := config.GetInt("daemon.tcp_port")
	d := vedaemon.New(root, tcpPort)

	newHTTPServer := func(store *statestore.Store, sched *scheduler.Scheduler, projectDir string, startedAt time.Time) vedaemon.HTTPServer {
		return api.New(store, sched, projectDir, startedAt)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(runCtx, runner, newHTTPServer); err != nil {
		return err
	}

	<-runCtx.Done()
	fmt.Fprintln(os.Stderr, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.Stop(shutdownCtx)
}

func runDaemonStop() error {
	root := requireProjectRoot()
	paths := vedaemon.NewPaths(root)

	pid, err := os.ReadFile(paths.PID)
	if err != nil {
		return fmt.Errorf("daemon is not running (no pid file)")
	}
	var p int
	if _, err := fmt.Sscanf(string(pid), "%d", &p); err != nil {
		return fmt.Errorf("reading pid file: %w", err)
	}
	if err := syscall.Kill(p, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling daemon pid %d: %w", p, err)
	}
	fmt.Printf("sent SIGTERM to pid %d\n", p)
	return nil
}
