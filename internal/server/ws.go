package server

import (
	"context"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/session"
)

// wsConn adapts *websocket.Conn to session.Conn, restricting the wire to
// binary frames only (SPEC_FULL.md §6 "Non-binary frames are logged and
// ignored").
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) (int, []byte, error) {
	for {
		typ, data, err := w.c.Read(ctx)
		if err != nil {
			return 0, nil, err
		}
		if typ != websocket.MessageBinary {
			logger.Debug("server: ignoring non-binary frame")
			continue
		}
		return int(typ), data, nil
	}
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageBinary, data)
}

func (w *wsConn) Close(reason string) error {
	return w.c.Close(websocket.StatusNormalClosure, reason)
}

// handleWS accepts the canvas protocol's single WebSocket endpoint and runs
// a session to completion, grounded on the teacher's handleWingWS accept
// shape (internal/relay/workers.go): websocket.Accept, a read-size limit,
// then handing the connection off to the per-connection state machine.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		logger.Warn("server: websocket accept", "err", err)
		return
	}
	conn.SetReadLimit(1 << 20)

	id := s.allocHandle()
	sess := session.New(id, &wsConn{c: conn}, s)
	s.register(sess)
	defer s.unregister(id)

	logger.Debug("server: session connected", "session", id)
	sess.Run(s.ctx)
	logger.Debug("server: session disconnected", "session", id)
}
