// Package api implements the HTTP/WS surface served directly over the
// daemon's Unix socket (and optional TCP port): REST over work units and
// the attention queue, plus a WebSocket push channel broadcasting state
// changes as they land in the store.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netguy204/ve/internal/scheduler"
	"github.com/netguy204/ve/internal/statestore"
)

// Version is reported in GET /status's OrchestratorState payload.
const Version = "0.1.0"

// Server wraps net/http's server with the work-unit routes and a
// WebSocket broadcaster. Satisfies daemon.HTTPServer.
type Server struct {
	store      *statestore.Store
	scheduler  *scheduler.Scheduler
	projectDir string
	startedAt  time.Time
	mux        *http.ServeMux
	inner      *http.Server

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// New builds a Server bound to store/sched. projectDir locates the docs/
// tree a resolved overlap rewrites frontmatter in. startedAt should be the
// daemon's own start time so GET /status reports accurate uptime.
func New(store *statestore.Store, sched *scheduler.Scheduler, projectDir string, startedAt time.Time) *Server {
	s := &Server{
		store:      store,
		scheduler:  sched,
		projectDir: projectDir,
		startedAt:  startedAt,
		mux:        http.NewServeMux(),
		conns:      map[*websocket.Conn]struct{}{},
	}
	s.routes()
	s.inner = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Serve implements daemon.HTTPServer, delegating to the wrapped
// net/http.Server.
func (s *Server) Serve(l net.Listener) error {
	return s.inner.Serve(l)
}

// Shutdown implements daemon.HTTPServer: stops accepting, closes every
// open WebSocket connection, and lets in-flight handlers finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
		delete(s.conns, c)
	}
	s.mu.Unlock()
	return s.inner.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/work-units", s.handleWorkUnitsCollection)
	s.mux.HandleFunc("/work-units/", s.handleWorkUnitItem)
	s.mux.HandleFunc("/attention", s.handleAttention)
	s.mux.HandleFunc("/ws", s.handleWS)
}

