// Package maintenance implements the scheduled off-box backup job that
// supplements spec.md's on-disk-only storage model (SPEC_FULL.md §11, §12):
// a cron-triggered WAL checkpoint + VACUUM INTO snapshot per room, gzipped
// and optionally uploaded to S3. Grounded on the teacher's n-backup sibling
// example (internal/agent/scheduler.go): one robfig/cron/v3 instance, one
// registered job, a running-guard so a slow backup can't overlap itself.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ehrlich-b/multipixel/internal/config"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/room"
)

// RoomLister returns a snapshot of every currently open room; implemented by
// *server.Server.
type RoomLister func() []*room.Room

// Scheduler drives the periodic backup job.
type Scheduler struct {
	cfg    *config.Config
	rooms  RoomLister
	cron   *cron.Cron
	mu     sync.Mutex
	inFlight bool
}

// New builds a Scheduler. It returns (nil, nil) if no maintenance cron
// expression is configured, so callers can treat a nil Scheduler as "don't
// start one" without a separate enabled flag.
func New(cfg *config.Config, rooms RoomLister) (*Scheduler, error) {
	expr := cfg.MaintenanceCron
	if expr == "" {
		expr = cfg.Backup.Cron
	}
	if expr == "" {
		return nil, nil
	}

	s := &Scheduler{
		cfg:   cfg,
		rooms: rooms,
		cron:  cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Log.Handler(), slog.LevelDebug)))),
	}
	if _, err := s.cron.AddFunc(expr, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the cron scheduler; it runs until Stop is called.
func (s *Scheduler) Start() {
	logger.Info("maintenance: scheduler started")
	s.cron.Start()
}

// Stop waits (up to ctx's deadline) for any in-flight backup to finish, then
// stops the scheduler.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		logger.Warn("maintenance: stop timed out waiting for in-flight backup")
	}
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		logger.Warn("maintenance: previous backup still running, skipping this tick")
		return
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	rooms := s.rooms()
	start := time.Now()
	for _, rm := range rooms {
		if err := backupRoom(context.Background(), s.cfg, rm); err != nil {
			logger.Error("maintenance: backup failed", "room", rm.Name, "err", err)
		}
	}
	logger.Info("maintenance: backup pass complete", "rooms", len(rooms), "duration", time.Since(start))
}
