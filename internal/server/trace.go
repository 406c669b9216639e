package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ezpbars/internal/tasks"
	"github.com/desertthunder/ezpbars/internal/trace"
	"github.com/gorilla/websocket"
)

const (
	authReadTimeout = 10 * time.Second
	writeWait       = 5 * time.Second
	closeGrace      = 2 * time.Second
)

// TraceHandler speaks the trace protocol over websocket for jobs in a registry.
type TraceHandler struct {
	registry  *tasks.Registry
	logger    *log.Logger
	upgrader  websocket.Upgrader
	dropEvery int
	conns     atomic.Int64
}

var _ Handler = (*TraceHandler)(nil)

// NewTraceHandler creates a [TraceHandler]. When dropEvery is positive, every dropEvery-th connection is closed
// abnormally right after a successful handshake, to exercise client reconnection.
func NewTraceHandler(registry *tasks.Registry, logger *log.Logger, dropEvery int) *TraceHandler {
	return &TraceHandler{
		registry:  registry,
		logger:    logger,
		dropEvery: dropEvery,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *TraceHandler) Routes() []string {
	return []string{trace.TracePath}
}

func (h *TraceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	n := h.conns.Add(1)
	logger := h.logger.With("conn", n)

	job, ok := h.handshake(conn, logger)
	if !ok {
		return
	}
	logger = logger.With("uid", job.UID)

	if h.dropEvery > 0 && n%int64(h.dropEvery) == 0 {
		logger.Info("dropping connection")
		return
	}

	h.stream(r.Context(), conn, job, logger)
}

// handshake reads the auth request and answers it. It reports whether streaming should begin.
func (h *TraceHandler) handshake(conn *websocket.Conn, logger *log.Logger) (*tasks.Job, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(authReadTimeout))

	var req trace.AuthRequest
	if err := conn.ReadJSON(&req); err != nil {
		logger.Warn("invalid auth request", "error", err)
		return nil, false
	}
	_ = conn.SetReadDeadline(time.Time{})

	job, err := h.registry.Authorize(req.Sub, req.UID, req.PbarName)
	if err != nil {
		logger.Info("auth rejected", "uid", req.UID, "error", err)
		success := false
		_ = h.write(conn, trace.AuthResponse{Success: &success, ErrorMessage: err.Error()})
		h.awaitClose(conn)
		return nil, false
	}

	success := true
	if err := h.write(conn, trace.AuthResponse{Success: &success}); err != nil {
		return nil, false
	}
	return job, true
}

// stream forwards job updates until the job completes, the client leaves, or the request ends.
func (h *TraceHandler) stream(ctx context.Context, conn *websocket.Conn, job *tasks.Job, logger *log.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The client sends nothing after auth; reading only detects its close.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	updates, err := h.registry.Watch(ctx, job.UID)
	if err != nil {
		logger.Error("watch failed", "error", err)
		return
	}

	for update := range updates {
		snap := update.Snapshot
		if err := h.write(conn, trace.StreamMessage{Type: trace.MessageTypeUpdate, Data: &snap}); err != nil {
			logger.Debug("client write failed", "error", err)
			return
		}
		if update.Done() {
			if err := h.write(conn, trace.StreamMessage{Done: true}); err != nil {
				return
			}
			logger.Info("trace complete")
			select {
			case <-clientGone:
			case <-time.After(closeGrace):
			}
			return
		}
	}
}

func (h *TraceHandler) write(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// awaitClose gives the client a moment to close first, so it sees the last message before the socket goes away.
func (h *TraceHandler) awaitClose(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(closeGrace))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				h.logger.Debug("connection ended without close frame", "error", err)
			}
			return
		}
	}
}
