package trace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ezpbars/internal/progress"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/gorilla/websocket"
)

const closeWriteWait = time.Second

// State is the connection state of a [Subscription].
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return ""
	}
}

// Stats counts what a subscription went through.
type Stats struct {
	Attempts int // connections dialled
	Failures int // abnormal closes, never decayed
	Polls    int // poll fallback calls
	Updates  int // update messages applied to the view
}

// Subscription follows one trace until it settles. Create it with [Subscribe].
type Subscription struct {
	req    Request
	url    string
	view   progress.View
	opts   options
	logger *log.Logger

	failures *failureWindow

	ctx    context.Context
	cancel context.CancelFunc

	done       chan struct{}
	settleOnce sync.Once
	err        error
	finished   chan struct{}

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	stats Stats
}

// Subscribe validates req and starts following the trace on a new goroutine.
//
// Cancelling ctx settles the subscription with the context's error.
func Subscribe(ctx context.Context, req Request, opts ...Option) (*Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	runCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		req:      req,
		url:      req.URL(),
		view:     req.view(),
		opts:     o,
		logger:   shared.WithLogger(o.logger, "pbar", req.PbarName, "uid", req.UID),
		failures: newFailureWindow(o.clock, FailureWindow),
		ctx:      runCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		state:    StateConnecting,
	}

	go s.run()
	return s, nil
}

// WaitForCompletion follows the trace described by req and blocks until it completes, fails, or ctx is cancelled.
func WaitForCompletion(ctx context.Context, req Request, opts ...Option) error {
	s, err := Subscribe(ctx, req, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.Wait(ctx)
}

// Done is closed once the subscription settles.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the outcome once settled: nil for completion, an error otherwise. It returns nil before Done is closed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the subscription settles or ctx is done.
func (s *Subscription) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current connection state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failures returns the number of connection failures in the trailing minute.
func (s *Subscription) Failures() int {
	return s.failures.current()
}

// Stats returns a copy of the subscription counters.
func (s *Subscription) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// URL returns the websocket URL being followed.
func (s *Subscription) URL() string { return s.url }

// Close disposes of the subscription: it settles with [ErrClosed] if still pending, closes the socket, cancels pending
// timers, and waits for the run loop to exit. Safe to call more than once.
func (s *Subscription) Close() error {
	s.settle(ErrClosed)
	s.cancel()
	s.closeConn(false)
	<-s.finished
	s.failures.stop()
	return nil
}

func (s *Subscription) run() {
	stopWatch := context.AfterFunc(s.ctx, func() { s.closeConn(false) })
	defer func() {
		stopWatch()
		s.closeConn(false)
		s.failures.stop()
		s.setState(StateClosed)
		close(s.finished)
	}()

	for {
		terminal, err := s.attempt()
		if terminal {
			s.settle(err)
			return
		}
		if s.ctx.Err() != nil {
			s.settle(s.ctx.Err())
			return
		}

		failures := s.failures.add()
		s.mu.Lock()
		s.stats.Failures++
		s.mu.Unlock()

		delay, poll := RetryDelay(failures)
		s.logger.Warn("connection lost", "error", err, "failures", failures, "delay", delay)

		if poll && s.pollDone() {
			s.logger.Info("poll fallback reports trace complete")
			s.settle(nil)
			return
		}

		select {
		case <-s.ctx.Done():
			s.settle(s.ctx.Err())
			return
		case <-s.opts.clock.After(delay):
		}
	}
}

// attempt runs one connection through handshake and stream. terminal reports whether the subscription is over; when
// it is not, err describes the abnormal close.
func (s *Subscription) attempt() (terminal bool, err error) {
	s.setState(StateConnecting)
	s.mu.Lock()
	s.stats.Attempts++
	s.mu.Unlock()

	s.logger.Debug("connecting", "url", s.url)
	conn, _, err := s.opts.dialer.DialContext(s.ctx, s.url, s.opts.header)
	if err != nil {
		return false, err
	}
	if !s.setConn(conn) {
		conn.Close()
		return false, ErrClosed
	}
	defer s.closeConn(false)

	s.setState(StateAuthenticating)
	if err := conn.WriteJSON(s.req.authRequest()); err != nil {
		return false, err
	}

	if d := s.opts.handshakeTimeout; d > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(d))
	}
	kind, data, err := conn.ReadMessage()
	if err != nil {
		return false, err
	}
	_ = conn.SetReadDeadline(time.Time{})
	if kind != websocket.TextMessage {
		return true, s.fail(protocolErrorf("unexpected frame type %d", kind))
	}
	auth, err := decodeAuthResponse(data)
	if err != nil {
		return true, s.fail(err)
	}
	if !*auth.Success {
		return true, s.fail(&AuthError{Message: auth.ErrorMessage})
	}

	s.setState(StateStreaming)
	s.logger.Debug("authenticated")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}
		if s.ctx.Err() != nil {
			return false, s.ctx.Err()
		}
		if kind != websocket.TextMessage {
			return true, s.fail(protocolErrorf("unexpected frame type %d", kind))
		}

		msg, err := decodeStreamMessage(data)
		if err != nil {
			return true, s.fail(err)
		}

		if msg.Type == MessageTypeUpdate {
			msg.Data.Apply(s.view)
			s.mu.Lock()
			s.stats.Updates++
			s.mu.Unlock()
		}

		if msg.Done {
			s.logger.Debug("trace done")
			s.closeConn(true)
			return true, nil
		}
	}
}

// fail reports a terminal error to the view and closes the socket without counting a failure.
func (s *Subscription) fail(err error) error {
	s.view.OnError(err)
	s.closeConn(true)
	return err
}

// pollDone asks the caller's fallback whether the trace already finished. Errors count as not finished.
func (s *Subscription) pollDone() bool {
	s.mu.Lock()
	s.stats.Polls++
	s.mu.Unlock()

	done, err := s.req.PollResult(s.ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("poll fallback failed", "error", err)
		}
		return false
	}
	return done
}

func (s *Subscription) settle(err error) {
	s.settleOnce.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *Subscription) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// setConn records the live socket. It refuses once the subscription is settled or cancelled.
func (s *Subscription) setConn(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conn = conn
	return true
}

// closeConn closes the live socket, if any. graceful sends a normal closure frame first.
func (s *Subscription) closeConn(graceful bool) {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if graceful {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
	}
	_ = conn.Close()
}
