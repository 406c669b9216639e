package trace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/ezpbars/internal/shared"
	tu "github.com/desertthunder/ezpbars/internal/testing"
	"github.com/gorilla/websocket"
)

const testTimeout = 5 * time.Second

// recordingView logs every call it receives, in order.
type recordingView struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (v *recordingView) record(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, fmt.Sprintf(format, args...))
}

func (v *recordingView) SetOverallEtaSeconds(eta float64)   { v.record("overall=%g", eta) }
func (v *recordingView) SetRemainingEtaSeconds(eta float64) { v.record("remaining=%g", eta) }
func (v *recordingView) SetStepName(name string)            { v.record("step=%s", name) }
func (v *recordingView) SetStepOverallEtaSeconds(eta float64) {
	v.record("step_overall=%g", eta)
}
func (v *recordingView) SetStepRemainingEtaSeconds(eta float64) {
	v.record("step_remaining=%g", eta)
}

func (v *recordingView) OnError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errs = append(v.errs, err)
}

func (v *recordingView) snapshot() ([]string, []error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...), append([]error(nil), v.errs...)
}

// handshake reads the auth request and answers it.
func handshake(t *testing.T, conn *websocket.Conn, reply string) (AuthRequest, bool) {
	var req AuthRequest
	if err := conn.ReadJSON(&req); err != nil {
		return req, false
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
		return req, false
	}
	return req, true
}

// drain reads until the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func send(conn *websocket.Conn, messages ...string) {
	for _, m := range messages {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
			return
		}
	}
}

func requestFor(t *testing.T, domain string, view *recordingView, poll PollFunc) Request {
	t.Helper()
	if poll == nil {
		poll = neverDone
	}
	return Request{
		PbarName:   "example",
		UID:        "uid-1",
		Sub:        "sub-1",
		PollResult: poll,
		View:       view,
		Domain:     domain,
		SSL:        Bool(false),
	}
}

func waitSettled(t *testing.T, s *Subscription) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	err := s.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("subscription did not settle in time")
	}
	return err
}

func TestSubscribe(t *testing.T) {
	t.Run("rejects invalid request", func(t *testing.T) {
		req := validRequest()
		req.UID = ""
		if _, err := Subscribe(context.Background(), req); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("sends auth request and completes on done", func(t *testing.T) {
		got := make(chan AuthRequest, 1)
		srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
			req, ok := handshake(t, conn, `{"success": true}`)
			got <- req
			if !ok {
				return
			}
			send(conn,
				`{"type":"update","data":{"overall_eta_seconds":10,"remaining_eta_seconds":6,"step_name":"download","step_overall_eta_seconds":4,"step_remaining_eta_seconds":2}}`,
				`{"type":"update","data":{"overall_eta_seconds":10,"remaining_eta_seconds":0,"step_name":"upload","step_overall_eta_seconds":6,"step_remaining_eta_seconds":0}}`,
				`{"done":true}`,
			)
			drain(conn)
		})

		view := &recordingView{}
		clock := tu.NewFakeClock()
		s, err := Subscribe(context.Background(), requestFor(t, tu.Host(t, srv), view, nil), WithClock(clock))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if err := waitSettled(t, s); err != nil {
			t.Fatalf("expected completion, got %v", err)
		}

		auth := <-got
		if auth != (AuthRequest{Sub: "sub-1", UID: "uid-1", PbarName: "example"}) {
			t.Errorf("unexpected auth request %+v", auth)
		}

		calls, errs := view.snapshot()
		want := []string{
			"overall=10", "remaining=6", "step=download", "step_overall=4", "step_remaining=2",
			"overall=10", "remaining=0", "step=upload", "step_overall=6", "step_remaining=0",
		}
		if fmt.Sprint(calls) != fmt.Sprint(want) {
			t.Errorf("expected calls %v, got %v", want, calls)
		}
		if len(errs) != 0 {
			t.Errorf("expected no errors, got %v", errs)
		}

		stats := s.Stats()
		if stats.Attempts != 1 || stats.Failures != 0 || stats.Updates != 2 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if s.Failures() != 0 {
			t.Errorf("expected 0 failures, got %d", s.Failures())
		}
		if len(clock.Delays()) != 0 {
			t.Errorf("expected no reconnect delays, got %v", clock.Delays())
		}
	})

	t.Run("auth rejection is terminal", func(t *testing.T) {
		var conns atomic.Int32
		srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
			conns.Add(1)
			if _, ok := handshake(t, conn, `{"success": false, "error_message": "bad token"}`); ok {
				drain(conn)
			}
		})

		view := &recordingView{}
		s, err := Subscribe(context.Background(), requestFor(t, tu.Host(t, srv), view, nil), WithClock(tu.NewFakeClock()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		err = waitSettled(t, s)
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthError, got %v", err)
		}
		if err.Error() != "bad token" {
			t.Errorf("expected server message, got %q", err.Error())
		}
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Error("expected AuthError to wrap ErrAuthFailed")
		}

		_, errs := view.snapshot()
		if len(errs) != 1 || errs[0] != err {
			t.Errorf("expected OnError once with the settled error, got %v", errs)
		}
		if s.Stats().Failures != 0 {
			t.Errorf("expected auth rejection not to count as failure, got %d", s.Stats().Failures)
		}

		s.Close()
		if n := conns.Load(); n != 1 {
			t.Errorf("expected a single connection, got %d", n)
		}
	})

	protocolCases := []struct {
		name   string
		stream func(conn *websocket.Conn)
	}{
		{name: "malformed json", stream: func(conn *websocket.Conn) { send(conn, `{"type":`) }},
		{name: "update without data", stream: func(conn *websocket.Conn) { send(conn, `{"type":"update"}`) }},
		{name: "wrong field type", stream: func(conn *websocket.Conn) { send(conn, `{"done":"yes"}`) }},
		{name: "binary frame", stream: func(conn *websocket.Conn) {
			_ = conn.WriteMessage(websocket.BinaryMessage, []byte(`{"done":true}`))
		}},
	}
	for _, tt := range protocolCases {
		t.Run("protocol violation: "+tt.name, func(t *testing.T) {
			srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
				if _, ok := handshake(t, conn, `{"success": true}`); !ok {
					return
				}
				tt.stream(conn)
				drain(conn)
			})

			view := &recordingView{}
			s, err := Subscribe(context.Background(), requestFor(t, tu.Host(t, srv), view, nil), WithClock(tu.NewFakeClock()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer s.Close()

			err = waitSettled(t, s)
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProtocolError, got %v", err)
			}
			if _, errs := view.snapshot(); len(errs) != 1 {
				t.Errorf("expected OnError once, got %v", errs)
			}
			if s.Stats().Failures != 0 {
				t.Errorf("expected no failures, got %d", s.Stats().Failures)
			}
		})
	}

	t.Run("reconnects after abnormal closes", func(t *testing.T) {
		var conns atomic.Int32
		srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
			if conns.Add(1) <= 3 {
				return
			}
			if _, ok := handshake(t, conn, `{"success": true}`); !ok {
				return
			}
			send(conn, `{"done":true}`)
			drain(conn)
		})

		clock := tu.NewFakeClock()
		s, err := Subscribe(context.Background(), requestFor(t, tu.Host(t, srv), &recordingView{}, nil), WithClock(clock))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := waitSettled(t, s); err != nil {
			t.Fatalf("expected completion, got %v", err)
		}
		s.Close()

		want := []time.Duration{0, 0, time.Second}
		if fmt.Sprint(clock.Delays()) != fmt.Sprint(want) {
			t.Errorf("expected delays %v, got %v", want, clock.Delays())
		}
		stats := s.Stats()
		if stats.Attempts != 4 || stats.Failures != 3 || stats.Polls != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if clock.Pending() != 0 {
			t.Errorf("expected decay timers to be stopped, got %d pending", clock.Pending())
		}
		if s.State() != StateClosed {
			t.Errorf("expected closed state, got %s", s.State())
		}
	})

	t.Run("failures decay after the window", func(t *testing.T) {
		var conns atomic.Int32
		srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
			if conns.Add(1) == 1 {
				return
			}
			if _, ok := handshake(t, conn, `{"success": true}`); ok {
				drain(conn)
			}
		})

		clock := tu.NewFakeClock()
		s, err := Subscribe(context.Background(), requestFor(t, tu.Host(t, srv), &recordingView{}, nil), WithClock(clock))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		tu.Eventually(t, testTimeout, func() bool { return s.State() == StateStreaming }, "streaming on second connection")
		if got := s.Failures(); got != 1 {
			t.Fatalf("expected 1 failure after the dropped connection, got %d", got)
		}

		clock.Advance(FailureWindow - time.Millisecond)
		if got := s.Failures(); got != 1 {
			t.Errorf("expected failure to persist inside the window, got %d", got)
		}
		clock.Advance(time.Millisecond)
		if got := s.Failures(); got != 0 {
			t.Errorf("expected failure to decay after the window, got %d", got)
		}
		if s.Stats().Failures != 1 {
			t.Errorf("expected lifetime failure count to stay 1, got %d", s.Stats().Failures)
		}
	})

	t.Run("auth reply timeout counts as a failure", func(t *testing.T) {
		var conns atomic.Int32
		srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
			if conns.Add(1) == 1 {
				drain(conn)
				return
			}
			if _, ok := handshake(t, conn, `{"success": true}`); !ok {
				return
			}
			send(conn, `{"done":true}`)
			drain(conn)
		})

		clock := tu.NewFakeClock()
		s, err := Subscribe(context.Background(), requestFor(t, tu.Host(t, srv), &recordingView{}, nil),
			WithClock(clock), WithHandshakeTimeout(50*time.Millisecond))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if err := waitSettled(t, s); err != nil {
			t.Fatalf("expected completion after reconnect, got %v", err)
		}
		stats := s.Stats()
		if stats.Attempts != 2 || stats.Failures != 1 {
			t.Errorf("expected 2 attempts and 1 failure, got %+v", stats)
		}
		if want := []time.Duration{0}; fmt.Sprint(clock.Delays()) != fmt.Sprint(want) {
			t.Errorf("expected delays %v, got %v", want, clock.Delays())
		}
	})

	t.Run("polls after repeated failures", func(t *testing.T) {
		srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {})

		var polls atomic.Int32
		poll := func(context.Context) (bool, error) {
			switch polls.Add(1) {
			case 1:
				return false, errors.New("status endpoint down")
			case 2:
				return false, nil
			default:
				return true, nil
			}
		}

		view := &recordingView{}
		clock := tu.NewFakeClock()
		s, err := Subscribe(context.Background(), requestFor(t, tu.Host(t, srv), view, poll), WithClock(clock))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if err := waitSettled(t, s); err != nil {
			t.Fatalf("expected poll to settle with success, got %v", err)
		}

		want := []time.Duration{0, 0, time.Second, 4 * time.Second, 15 * time.Second, 15 * time.Second}
		if fmt.Sprint(clock.Delays()) != fmt.Sprint(want) {
			t.Errorf("expected delays %v, got %v", want, clock.Delays())
		}
		stats := s.Stats()
		if stats.Polls != 3 || stats.Attempts != 7 || stats.Failures != 7 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if _, errs := view.snapshot(); len(errs) != 0 {
			t.Errorf("expected no view errors, got %v", errs)
		}
	})

	t.Run("dial errors count once each", func(t *testing.T) {
		dialer := &failingDialer{}
		clock := tu.NewFakeClock()
		polled := make(chan struct{})
		poll := func(context.Context) (bool, error) {
			close(polled)
			return true, nil
		}

		s, err := Subscribe(context.Background(), requestFor(t, "example.test", &recordingView{}, poll),
			WithClock(clock), WithDialer(dialer))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if err := waitSettled(t, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		<-polled
		if got := s.Failures(); got != 5 {
			t.Errorf("expected 5 failures in the window, got %d", got)
		}
		if dialer.calls.Load() != 5 {
			t.Errorf("expected 5 dials, got %d", dialer.calls.Load())
		}
	})

	t.Run("close before settle reports ErrClosed", func(t *testing.T) {
		streaming := make(chan struct{})
		srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
			if _, ok := handshake(t, conn, `{"success": true}`); !ok {
				return
			}
			send(conn, `{"type":"update","data":{"overall_eta_seconds":10,"remaining_eta_seconds":5}}`)
			close(streaming)
			drain(conn)
		})

		view := &recordingView{}
		s, err := Subscribe(context.Background(), requestFor(t, tu.Host(t, srv), view, nil), WithClock(tu.NewFakeClock()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		<-streaming
		tu.Eventually(t, testTimeout, func() bool { return s.Stats().Updates == 1 }, "update applied")

		if err := s.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("expected idempotent close, got %v", err)
		}

		if !errors.Is(s.Err(), ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", s.Err())
		}
		if err := waitSettled(t, s); !errors.Is(err, ErrClosed) {
			t.Errorf("expected Wait to return ErrClosed, got %v", err)
		}
		if s.State() != StateClosed {
			t.Errorf("expected closed state, got %s", s.State())
		}
		if _, errs := view.snapshot(); len(errs) != 0 {
			t.Errorf("expected no view errors on close, got %v", errs)
		}
	})

	t.Run("context cancellation settles", func(t *testing.T) {
		srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
			if _, ok := handshake(t, conn, `{"success": true}`); ok {
				drain(conn)
			}
		})

		ctx, cancel := context.WithCancel(context.Background())
		s, err := Subscribe(ctx, requestFor(t, tu.Host(t, srv), &recordingView{}, nil), WithClock(tu.NewFakeClock()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		tu.Eventually(t, testTimeout, func() bool { return s.State() == StateStreaming }, "streaming")
		cancel()

		select {
		case <-s.Done():
		case <-time.After(testTimeout):
			t.Fatal("subscription did not settle after cancel")
		}
		if !errors.Is(s.Err(), context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", s.Err())
		}
	})
}

func TestWaitForCompletion(t *testing.T) {
	srv := tu.NewWebsocketServer(t, func(conn *websocket.Conn) {
		if _, ok := handshake(t, conn, `{"success": true}`); !ok {
			return
		}
		send(conn, `{"type":"update","data":{"overall_eta_seconds":1,"remaining_eta_seconds":0},"done":true}`)
		drain(conn)
	})

	view := &recordingView{}
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	if err := WaitForCompletion(ctx, requestFor(t, tu.Host(t, srv), view, nil)); err != nil {
		t.Fatalf("expected completion, got %v", err)
	}
	calls, _ := view.snapshot()
	if len(calls) != 5 {
		t.Errorf("expected the update applied before done, got %v", calls)
	}
}

func TestStateString(t *testing.T) {
	tc := map[State]string{
		StateConnecting:     "connecting",
		StateAuthenticating: "authenticating",
		StateStreaming:      "streaming",
		StateClosed:         "closed",
	}
	for state, want := range tc {
		if state.String() != want {
			t.Errorf("expected %q, got %q", want, state.String())
		}
	}
}

type failingDialer struct {
	calls atomic.Int32
}

func (d *failingDialer) DialContext(context.Context, string, http.Header) (*websocket.Conn, *http.Response, error) {
	d.calls.Add(1)
	return nil, nil, errors.New("connection refused")
}
