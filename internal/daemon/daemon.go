// Package daemon implements the orchestrator daemon runtime: PID file and
// socket lifecycle, startup/shutdown sequencing, the docs/** staleness
// watcher, and log rotation.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/netguy204/ve/internal/scheduler"
	"github.com/netguy204/ve/internal/statestore"
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/worktree"
)

// Paths collects the runtime file locations under a project's .ve/
// directory.
type Paths struct {
	Dir      string // <project>/.ve
	DB       string
	PID      string
	Socket   string
	PortFile string
	Log      string
}

// NewPaths derives the standard .ve/ runtime layout for projectDir.
func NewPaths(projectDir string) Paths {
	dir := filepath.Join(projectDir, ".ve")
	return Paths{
		Dir:      dir,
		DB:       filepath.Join(dir, "orchestrator.db"),
		PID:      filepath.Join(dir, "orchestrator.pid"),
		Socket:   filepath.Join(dir, "orchestrator.sock"),
		PortFile: filepath.Join(dir, "orchestrator.port"),
		Log:      filepath.Join(dir, "orchestrator.log"),
	}
}

// HTTPServer is the seam the API server implements, so this package never
// imports net/http handler details directly.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// Daemon owns one project's orchestrator lifecycle.
type Daemon struct {
	ProjectDir string
	Paths      Paths
	TCPPort    int

	Store     *statestore.Store
	Scheduler *scheduler.Scheduler
	Worktrees *worktree.Manager
	chunks    *chunkGate

	Log *slog.Logger

	startedAt time.Time
	stopWatch chan struct{}
	unixLn    net.Listener
	tcpLn     net.Listener
	http      HTTPServer
	cancel    context.CancelFunc
}

// New constructs a Daemon bound to projectDir. tcpPort is 0 to serve the
// Unix socket only, the default.
func New(projectDir string, tcpPort int) *Daemon {
	paths := NewPaths(projectDir)
	return &Daemon{
		ProjectDir: projectDir,
		Paths:      paths,
		TCPPort:    tcpPort,
		chunks:     newChunkGate(projectDir),
		Log:        slog.Default(),
	}
}

func (d *Daemon) setupLogging() error {
	if err := os.MkdirAll(d.Paths.Dir, 0755); err != nil {
		return err
	}
	writer := &lumberjack.Logger{
		Filename:   d.Paths.Log,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	d.Log = slog.New(slog.NewTextHandler(writer, nil))
	return nil
}

// Start runs the full startup sequence: AlreadyRunning check, log/store
// setup, orphan reconciliation, scheduler+HTTP start. Store/scheduler
// construction happens here (not in New) so a failed Start can be retried
// without leaking a half-open DB handle.
func (d *Daemon) Start(ctx context.Context, runner scheduler.AgentRunner, newHTTPServer func(*statestore.Store, *scheduler.Scheduler, string, time.Time) HTTPServer) error {
	if err := os.MkdirAll(d.Paths.Dir, 0755); err != nil {
		return err
	}

	if err := checkAlreadyRunning(d.Paths.PID); err != nil {
		return err
	}

	if err := d.setupLogging(); err != nil {
		return err
	}

	store, err := statestore.Open(ctx, d.Paths.DB)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	d.Store = store

	// Units left RUNNING from a prior process (crash, kill -9) are orphaned:
	// no worker pool slot is actually driving them, so surface them for
	// operator attention rather than silently re-dispatching.
	if err := d.reconcileOrphans(ctx); err != nil {
		d.Log.Warn("orphan reconciliation failed", "error", err)
	}

	d.Worktrees = worktree.New(d.ProjectDir)
	cfg, err := store.LoadOrchestratorConfig(ctx)
	if err != nil {
		cfg = types.DefaultOrchestratorConfig()
	}
	d.Scheduler = scheduler.New(store, d.Worktrees, runner, d.chunks.IsActive, d.chunks, cfg.MaxAgents, d.Log)

	if err := writePID(d.Paths.PID); err != nil {
		_ = store.Close()
		return err
	}
	d.startedAt = time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.stopWatch = make(chan struct{})
	docsDir := filepath.Join(d.ProjectDir, "docs")
	if err := watchDocs(docsDir, d.onDocsStale, d.Log, d.stopWatch); err != nil {
		d.Log.Warn("docs watcher unavailable", "error", err)
	}

	go d.Scheduler.Run(runCtx, time.Duration(cfg.DispatchIntervalSeconds*float64(time.Second)))

	if err := d.serveHTTP(runCtx, newHTTPServer); err != nil {
		cancel()
		_ = store.Close()
		return err
	}

	d.Log.Info("daemon started", "pid", os.Getpid(), "socket", d.Paths.Socket)
	return nil
}

func (d *Daemon) onDocsStale() {
	d.Log.Debug("docs changed")
}

// reconcileOrphans marks every RUNNING work unit NEEDS_ATTENTION on
// startup: no worker pool slot survives a crash to keep driving them.
func (d *Daemon) reconcileOrphans(ctx context.Context) error {
	running, err := d.Store.ListWorkUnits(ctx, func(st types.WorkUnitStatus) bool { return st == types.WURunning })
	if err != nil {
		return err
	}
	for _, wu := range running {
		chunk := wu.Chunk
		if err := d.Store.UpdateWorkUnit(ctx, chunk, func(w *types.WorkUnit) {
			w.Status = types.WUNeedsAttention
			w.AttentionReason = "orphaned_after_shutdown"
		}); err != nil {
			d.Log.Warn("failed to mark orphaned unit", "chunk", chunk, "error", err)
		}
	}
	return nil
}

func (d *Daemon) serveHTTP(ctx context.Context, newHTTPServer func(*statestore.Store, *scheduler.Scheduler, string, time.Time) HTTPServer) error {
	_ = os.Remove(d.Paths.Socket)
	unixLn, err := net.Listen("unix", d.Paths.Socket)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.Paths.Socket, err)
	}
	d.unixLn = unixLn

	d.http = newHTTPServer(d.Store, d.Scheduler, d.ProjectDir, d.startedAt)

	go func() {
		if err := d.http.Serve(unixLn); err != nil {
			d.Log.Debug("unix listener closed", "error", err)
		}
	}()

	if d.TCPPort > 0 {
		tcpLn, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", d.TCPPort))
		if err != nil {
			d.Log.Warn("tcp listener unavailable, continuing on unix socket only", "error", err)
		} else {
			d.tcpLn = tcpLn
			_ = os.WriteFile(d.Paths.PortFile, []byte(fmt.Sprintf("%d", d.TCPPort)), 0644)
			go func() {
				if err := d.http.Serve(tcpLn); err != nil {
					d.Log.Debug("tcp listener closed", "error", err)
				}
			}()
		}
	}

	return nil
}

// Stop runs the shutdown sequence: cancel the scheduler's context (without
// waiting for an in-flight tick or agent phase to return), stop the docs
// watcher, shut down the HTTP server and listeners, close the store, remove
// the PID/socket/port files. RUNNING work units are left as RUNNING with no
// special marker; reconcileOrphans on the next startup is what actually
// surfaces them.
func (d *Daemon) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.stopWatch != nil {
		close(d.stopWatch)
	}
	if d.http != nil {
		_ = d.http.Shutdown(ctx)
	}
	if d.unixLn != nil {
		_ = d.unixLn.Close()
	}
	if d.tcpLn != nil {
		_ = d.tcpLn.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
	_ = os.Remove(d.Paths.PID)
	_ = os.Remove(d.Paths.Socket)
	_ = os.Remove(d.Paths.PortFile)
	return nil
}

// Uptime reports how long the daemon has been running, for GET /status.
func (d *Daemon) Uptime() time.Duration {
	if d.startedAt.IsZero() {
		return 0
	}
	return time.Since(d.startedAt)
}
