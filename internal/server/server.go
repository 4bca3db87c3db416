// Package server implements the process-wide listener (SPEC_FULL.md §4.10):
// the room registry, the session registry, the WebSocket accept loop, and
// graceful shutdown. Grounded on the teacher's internal/relay/server.go
// Server struct (config + registries + mutex-guarded maps + ServeHTTP) and
// internal/relay/workers.go's handleWingWS accept/read/register shape,
// narrowed from wingthing's many HTTP routes down to the single canvas
// WebSocket endpoint this protocol needs.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/config"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/room"
	"github.com/ehrlich-b/multipixel/internal/session"
	"github.com/ehrlich-b/multipixel/internal/storage"
)

// Server owns every room and every connected session for one process
// (SPEC_FULL.md §4.10).
type Server struct {
	cfg *config.Config

	adminHash []byte

	roomsMu sync.Mutex
	rooms   map[string]*room.Room

	sessMu   sync.Mutex
	sessions map[compositor.SessionHandle]*session.Session
	nextID   uint32

	ctx    context.Context
	cancel context.CancelFunc

	httpSrv *http.Server

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New builds a Server from cfg. The admin password, if set, is hashed once
// here (SPEC_FULL.md §11) rather than compared in the clear on every
// /admin attempt.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Server{
		cfg:        cfg,
		rooms:      make(map[string]*room.Room),
		sessions:   make(map[compositor.SessionHandle]*session.Session),
		ctx:        ctx,
		cancel:     cancel,
		shutdownCh: make(chan struct{}),
	}
	if cfg.AdminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("server: hash admin password: %w", err)
		}
		s.adminHash = hash
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		cancel()
		return nil, fmt.Errorf("server: create data dir %s: %w", cfg.DataDir, err)
	}
	return s, nil
}

// AdminPasswordHash implements session.AdminAuthority.
func (s *Server) AdminPasswordHash() []byte { return s.adminHash }

// JoinRoom implements session.AdminAuthority: resolves the room registered
// under name, opening its storage and starting its chunk system on first
// use (SPEC_FULL.md §3 "Room ... created on first join").
func (s *Server) JoinRoom(name string) *room.Room {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()

	if rm, ok := s.rooms[name]; ok {
		return rm
	}

	path := filepath.Join(s.cfg.DataDir, name+".db")
	store, err := storage.Open(path)
	if err != nil {
		logger.Error("server: open room storage", "room", name, "err", err)
		return nil
	}
	rm := room.New(name, store, s.cfg.AutosaveIntervalMs)
	if s.cfg.PreviewSystem.ProcessAllAtStart {
		if err := rm.PreviewSystem.EnqueueAll(); err != nil {
			logger.Warn("server: enqueue preview backlog", "room", name, "err", err)
		}
	}
	rm.Start(s.ctx)
	s.rooms[name] = rm
	logger.Info("server: room opened", "room", name)
	return rm
}

// ProcessPreviewSystemAll implements session.AdminAuthority: forces a full
// preview-pyramid rebuild for the named room (SPEC_FULL.md §4.8
// "process_preview_system").
func (s *Server) ProcessPreviewSystemAll(roomName string) error {
	s.roomsMu.Lock()
	rm, ok := s.rooms[roomName]
	s.roomsMu.Unlock()
	if !ok {
		return fmt.Errorf("server: room %q not open", roomName)
	}
	if err := rm.PreviewSystem.EnqueueAll(); err != nil {
		return err
	}
	rm.PreviewSystem.Process()
	return nil
}

// Kick implements session.AdminAuthority: it kicks the registered session
// with handle h, and does nothing if no session has that handle.
func (s *Server) Kick(h compositor.SessionHandle, reason string) {
	s.sessMu.Lock()
	sess, ok := s.sessions[h]
	s.sessMu.Unlock()
	if ok {
		sess.Kick(reason)
	}
}

// RequestShutdown signals Done, used by the admin console's "exit" command
// to trigger the same graceful save-and-exit path a SIGTERM does. Safe to
// call more than once.
func (s *Server) RequestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// Done reports when RequestShutdown has been called.
func (s *Server) Done() <-chan struct{} {
	return s.shutdownCh
}

func (s *Server) register(sess *session.Session) {
	s.sessMu.Lock()
	s.sessions[sess.ID] = sess
	s.sessMu.Unlock()
}

func (s *Server) unregister(h compositor.SessionHandle) {
	s.sessMu.Lock()
	delete(s.sessions, h)
	s.sessMu.Unlock()
}

// allocHandle returns the next monotonically increasing session handle,
// wrapping within uint16 per the wire protocol's u16 session id
// (SPEC_FULL.md §4.1).
func (s *Server) allocHandle() compositor.SessionHandle {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	id := compositor.SessionHandle(uint16(s.nextID))
	s.nextID++
	return id
}

// SessionCount returns the number of currently connected sessions, used by
// the admin console's dump command.
func (s *Server) SessionCount() int {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	return len(s.sessions)
}

// Rooms returns a snapshot of every currently open room, used by the
// scheduled maintenance job (internal/maintenance) to back each one up.
func (s *Server) Rooms() []*room.Room {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	out := make([]*room.Room, 0, len(s.rooms))
	for _, rm := range s.rooms {
		out = append(out, rm)
	}
	return out
}

// RoomNames returns the names of every currently open room.
func (s *Server) RoomNames() []string {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		out = append(out, name)
	}
	return out
}

// ListenAndServe starts the HTTP/WebSocket listener and blocks until it
// stops (by Shutdown or a listener error).
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)

	addr := fmt.Sprintf("%s:%d", s.cfg.ListenIP, s.cfg.ListenPort)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	logger.Info("server: listening", "addr", addr)

	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown implements "save_and_exit" (SPEC_FULL.md §4.10): kick every
// session (queuing the kick frame and letting each sender goroutine flush
// it), clean up every room (drain previews, save chunks, close storage),
// and cancel the top-level context so every session's reader/sender/ticker
// goroutines unwind.
func (s *Server) Shutdown() {
	logger.Info("server: save_and_exit")

	s.sessMu.Lock()
	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessMu.Unlock()
	for _, sess := range sessions {
		sess.Kick("server shutting down")
	}

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.httpSrv.Shutdown(ctx)
		cancel()
	}

	s.cancel()
	// Give sender goroutines a moment to flush queued kick frames before the
	// connections are torn down by cancellation cascading to each session.
	time.Sleep(250 * time.Millisecond)

	s.roomsMu.Lock()
	rooms := make([]*room.Room, 0, len(s.rooms))
	for _, rm := range s.rooms {
		rooms = append(rooms, rm)
	}
	s.roomsMu.Unlock()
	for _, rm := range rooms {
		if err := rm.Cleanup(); err != nil {
			logger.Error("server: room cleanup", "room", rm.Name, "err", err)
		}
	}
}
