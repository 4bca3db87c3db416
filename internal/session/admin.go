package session

import (
	"strings"

	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/protoerr"
)

// handleCommand dispatches a chat message beginning with "/" (SPEC_FULL.md
// §4.8 "Chat / admin commands"). arg is the text after the slash.
func (s *Session) handleCommand(arg string) error {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "help":
		s.Enqueue(codec.EncodeMessage("commands: help, leave, admin <password>, process_preview_system"))
	case "leave":
		s.Kick("left")
	case "admin":
		s.handleAdminLogin(fields)
	case "process_preview_system":
		return s.handleProcessPreviewSystem()
	default:
		s.Enqueue(codec.EncodeMessage("unknown command: " + fields[0]))
	}
	return nil
}

func (s *Session) handleAdminLogin(fields []string) {
	if len(fields) < 2 {
		s.Enqueue(codec.EncodeMessage("usage: /admin <password>"))
		return
	}
	if !checkAdminPassword(s.srv.AdminPasswordHash(), fields[1]) {
		s.Enqueue(codec.EncodeMessage("invalid admin password"))
		return
	}
	s.adminMode = true
	s.Enqueue(codec.EncodeMessage("admin mode enabled"))
}

func (s *Session) handleProcessPreviewSystem() error {
	if !s.adminMode {
		s.Enqueue(codec.EncodeMessage("admin only"))
		return nil
	}
	if err := s.srv.ProcessPreviewSystemAll(s.room.Name); err != nil {
		return protoerr.WrapStorage("process_preview_system", err)
	}
	s.Enqueue(codec.EncodeProcessingStatusText("preview system rebuilt"))
	return nil
}
