package maintenance

import (
	"path/filepath"
	"testing"

	"github.com/ehrlich-b/multipixel/internal/config"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/room"
)

func init() {
	_ = logger.Init("error", "")
}

func noRooms() []*room.Room { return nil }

func TestNewWithNoCronExprReturnsNilScheduler(t *testing.T) {
	cfg := &config.Config{}
	s, err := New(cfg, noRooms)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s != nil {
		t.Fatal("New with no maintenance cron expression configured should return a nil Scheduler")
	}
}

func TestNewPrefersMaintenanceCronOverBackupCron(t *testing.T) {
	cfg := &config.Config{MaintenanceCron: "@every 1h", Backup: config.BackupConfig{Cron: "@every 1m"}}
	s, err := New(cfg, noRooms)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s == nil {
		t.Fatal("New with a configured cron expression should return a non-nil Scheduler")
	}
}

func TestNewFallsBackToBackupCron(t *testing.T) {
	cfg := &config.Config{Backup: config.BackupConfig{Cron: "@every 1m"}}
	s, err := New(cfg, noRooms)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s == nil {
		t.Fatal("New should fall back to cfg.Backup.Cron when MaintenanceCron is unset")
	}
}

func TestNewInvalidCronExprErrors(t *testing.T) {
	cfg := &config.Config{MaintenanceCron: "not a cron expression"}
	if _, err := New(cfg, noRooms); err == nil {
		t.Fatal("New with an invalid cron expression should error")
	}
}

func TestRunOnceSkipsWhenAlreadyInFlight(t *testing.T) {
	cfg := &config.Config{MaintenanceCron: "@every 1h", DataDir: filepath.Join(t.TempDir())}
	s, err := New(cfg, noRooms)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.inFlight = true
	s.runOnce() // should just log-and-return, not touch s.rooms()
	if !s.inFlight {
		t.Fatal("runOnce should not clear inFlight when it short-circuits")
	}
}
