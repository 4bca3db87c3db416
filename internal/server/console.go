package server

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/multipixel/internal/logger"
)

// RunConsole reads admin commands from stdin until EOF or "exit"
// (SPEC_FULL.md §6 "CLI / console. Commands on stdin: help, dump, exit"),
// grounded on the teacher's internal/ui/simple.go readline loop
// (bufio.NewScanner(os.Stdin), TrimSpace, dispatch by exact command word).
// "exit" calls RequestShutdown, which unblocks the listener's select and
// triggers the same save-and-exit path a SIGTERM does.
func (s *Server) RunConsole() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "":
			continue
		case "help":
			fmt.Println("commands: help, dump, exit")
		case "dump":
			s.dump()
		case "exit":
			s.RequestShutdown()
			return
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

// dump prints an operational snapshot: goroutine count and stack trace,
// process RSS/CPU (gopsutil), open-file-descriptor limit (golang.org/x/sys),
// and the server's room/session counts. This stands in for the async
// runtime's task-dump API the original implementation used, which Go has no
// direct equivalent of (SPEC_FULL.md §12 "Admin console dump").
func (s *Server) dump() {
	fmt.Printf("goroutines: %d\n", runtime.NumGoroutine())
	fmt.Printf("sessions:   %d\n", s.SessionCount())
	fmt.Printf("rooms:      %s\n", strings.Join(s.RoomNames(), ", "))

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil {
			fmt.Printf("rss:        %d MiB\n", rss.RSS/(1024*1024))
		}
		if cpct, err := proc.CPUPercent(); err == nil {
			fmt.Printf("cpu:        %.1f%%\n", cpct)
		}
	}

	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err == nil {
		fmt.Printf("nofile:     %d/%d\n", rlimit.Cur, rlimit.Max)
	}

	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, true)
	logger.Info("server: dump requested", "goroutines", runtime.NumGoroutine())
	fmt.Println("--- goroutine stacks ---")
	fmt.Println(string(buf[:n]))
}
