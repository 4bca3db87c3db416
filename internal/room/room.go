// Package room implements the consistency boundary that groups a set of
// sessions with one chunk engine, preview pipeline, and storage handle
// (SPEC_FULL.md §4.9). Grounded on the teacher's internal/relay session
// roster + broadcast pattern (a map guarded by a mutex, iterated to fan out
// a frame to every member), generalized from the teacher's per-user
// WebSocket fan-out to this server's per-room one.
package room

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ehrlich-b/multipixel/internal/chunksystem"
	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/preview"
	"github.com/ehrlich-b/multipixel/internal/storage"
	"github.com/ehrlich-b/multipixel/internal/tool"
)

// Member is the surface Room needs from a connected session: enough to
// route frames and resolve nickname collisions without Room ever touching
// the session's own mutex (SPEC_FULL.md §4.9).
type Member interface {
	Handle() compositor.SessionHandle
	Nickname() string
	Enqueue(frame []byte)
}

// Room owns one room's storage, chunk system, preview system, and brush
// shape cache, plus its session roster.
type Room struct {
	Name string

	store         *storage.Store
	ChunkSystem   *chunksystem.ChunkSystem
	PreviewSystem *preview.System
	ShapeCache    *tool.ShapeCache

	mu      sync.RWMutex
	members map[compositor.SessionHandle]Member

	cancel context.CancelFunc
	stopped chan struct{}
}

// New constructs a Room backed by store, with autosave/preview wiring
// already connected (SPEC_FULL.md §4.5's chunk system takes callbacks to
// enqueue and drain the preview pyramid).
func New(name string, store *storage.Store, autosaveIntervalMs uint32) *Room {
	ps := preview.New(store)
	cs := chunksystem.New(store, time.Duration(autosaveIntervalMs)*time.Millisecond, ps.Enqueue, ps.Process)
	return &Room{
		Name:          name,
		store:         store,
		ChunkSystem:   cs,
		PreviewSystem: ps,
		ShapeCache:    tool.NewShapeCache(),
		members:       make(map[compositor.SessionHandle]Member),
		stopped:       make(chan struct{}),
	}
}

// Start launches the chunk system's autosave/GC goroutines, returning once
// they have been started; they run until ctx (or a later Cleanup) stops
// them.
func (r *Room) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go func() {
		defer close(r.stopped)
		r.ChunkSystem.Run(ctx)
	}()
}

// Join adds m to the roster, resolving any nickname collision by suffixing
// " (N)" with the smallest free N>=2 (SPEC_FULL.md §4.8, scenario 1), and
// returns the nickname actually assigned.
func (r *Room) Join(m Member, requestedNick string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	nick := r.resolveNicknameLocked(requestedNick)
	r.members[m.Handle()] = m
	return nick
}

func (r *Room) resolveNicknameLocked(requested string) string {
	taken := make(map[string]bool, len(r.members))
	for _, m := range r.members {
		taken[m.Nickname()] = true
	}
	if !taken[requested] {
		return requested
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", requested, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Leave removes h from the roster. Returns true if the roster is now empty,
// signalling the caller (the server's room registry) that this room may be
// eligible for Cleanup once its chunks are flushed.
func (r *Room) Leave(h compositor.SessionHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, h)
	return len(r.members) == 0
}

// Empty reports whether the roster currently has no members.
func (r *Room) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members) == 0
}

// Broadcast pushes frame to every member except the optionally-provided
// skip handle.
func (r *Room) Broadcast(frame []byte, skip compositor.SessionHandle, hasSkip bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for h, m := range r.members {
		if hasSkip && h == skip {
			continue
		}
		m.Enqueue(frame)
	}
}

// Members returns a stable-ordered snapshot of the roster handles, used by
// the admin dump command.
func (r *Room) Members() []compositor.SessionHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]compositor.SessionHandle, 0, len(r.members))
	for h := range r.members {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RosterEntry is a (handle, nickname) pair, used to synchronise a newly
// announced session with the peers already in the room.
type RosterEntry struct {
	Handle compositor.SessionHandle
	Nick   string
}

// Roster returns every current member's handle and nickname.
func (r *Room) Roster() []RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RosterEntry, 0, len(r.members))
	for h, m := range r.members {
		out = append(out, RosterEntry{Handle: h, Nick: m.Nickname()})
	}
	return out
}

// Backup forces a WAL checkpoint and writes a compacted, consistent copy of
// the room's database to destPath, for the scheduled maintenance job
// (SPEC_FULL.md §11/§12).
func (r *Room) Backup(destPath string) error {
	if err := r.store.Checkpoint(); err != nil {
		return fmt.Errorf("room %s: checkpoint: %w", r.Name, err)
	}
	if err := r.store.VacuumInto(destPath); err != nil {
		return fmt.Errorf("room %s: vacuum into %s: %w", r.Name, destPath, err)
	}
	return nil
}

// Cleanup stops the chunk system, flushes every modified chunk and drains
// the preview queues, then closes storage (SPEC_FULL.md §3 "Room ...
// destroyed after its last session leaves and pending chunks are
// flushed").
func (r *Room) Cleanup() error {
	if r.cancel != nil {
		r.cancel()
		<-r.stopped
	}
	r.ChunkSystem.SaveAll()
	r.PreviewSystem.Process()
	return r.store.Close()
}
