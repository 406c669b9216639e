package server

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ezpbars/internal/services"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/desertthunder/ezpbars/internal/tasks"
	tu "github.com/desertthunder/ezpbars/internal/testing"
	"github.com/desertthunder/ezpbars/internal/trace"
)

// remainingView records remaining ETAs and errors.
type remainingView struct {
	mu        sync.Mutex
	remaining []float64
	steps     []string
	errs      []error
}

func (v *remainingView) SetOverallEtaSeconds(float64) {}
func (v *remainingView) SetRemainingEtaSeconds(eta float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.remaining = append(v.remaining, eta)
}
func (v *remainingView) SetStepName(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.steps = append(v.steps, name)
}
func (v *remainingView) SetStepOverallEtaSeconds(float64)   {}
func (v *remainingView) SetStepRemainingEtaSeconds(float64) {}
func (v *remainingView) OnError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errs = append(v.errs, err)
}

func newDevServer(t *testing.T, opts Options) (*tasks.Registry, *httptest.Server) {
	t.Helper()
	registry := tasks.NewRegistry(tasks.WithTickInterval(5*time.Millisecond), tasks.WithSub("sub-1"))
	srv := httptest.NewServer(NewHandler(registry, shared.NewDiscardLogger(), opts))
	t.Cleanup(srv.Close)
	return registry, srv
}

func traceRequest(t *testing.T, srv *httptest.Server, job *tasks.Job, view *remainingView, poll trace.PollFunc) trace.Request {
	t.Helper()
	if poll == nil {
		poll = func(context.Context) (bool, error) { return false, nil }
	}
	return trace.Request{
		PbarName:   job.PbarName,
		UID:        job.UID,
		Sub:        job.Sub,
		PollResult: poll,
		View:       view,
		Domain:     tu.Host(t, srv),
		SSL:        trace.Bool(false),
	}
}

func TestTraceHandler(t *testing.T) {
	t.Run("Streams Job To Completion", func(t *testing.T) {
		registry, srv := newDevServer(t, Options{})
		job, err := registry.Create(0.1, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		view := &remainingView{}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := trace.WaitForCompletion(ctx, traceRequest(t, srv, job, view, nil)); err != nil {
			t.Fatalf("expected completion, got %v", err)
		}

		view.mu.Lock()
		defer view.mu.Unlock()
		if len(view.remaining) == 0 {
			t.Fatal("expected at least one update")
		}
		if last := view.remaining[len(view.remaining)-1]; last > 1e-9 {
			t.Errorf("expected final remaining ETA at or below zero, got %v", last)
		}
		if len(view.errs) != 0 {
			t.Errorf("expected no errors, got %v", view.errs)
		}
	})

	t.Run("Rejects Unknown Trace", func(t *testing.T) {
		_, srv := newDevServer(t, Options{})
		job := &tasks.Job{UID: "missing", Sub: "sub-1", PbarName: tasks.DefaultPbarName}

		view := &remainingView{}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := trace.WaitForCompletion(ctx, traceRequest(t, srv, job, view, nil))
		var authErr *trace.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthError, got %v", err)
		}
		if len(view.errs) != 1 {
			t.Errorf("expected one view error, got %v", view.errs)
		}
	})

	t.Run("Dropped Connections Fall Back To Polling", func(t *testing.T) {
		registry, srv := newDevServer(t, Options{DropEvery: 1})
		job, _ := registry.Create(0.05, 0)

		api := services.NewAPIService(srv.URL, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s, err := trace.Subscribe(ctx, traceRequest(t, srv, job, &remainingView{}, services.PollFunc(api, job.UID)),
			trace.WithClock(tu.NewFakeClock()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if err := s.Wait(ctx); err != nil {
			t.Fatalf("expected poll fallback to complete, got %v", err)
		}
		stats := s.Stats()
		if stats.Failures < trace.PollThreshold || stats.Polls == 0 {
			t.Errorf("expected repeated failures and a poll, got %+v", stats)
		}
	})
}

func TestServerRun(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	registry := tasks.NewRegistry()
	s := New(ln.Addr().String(), NewHandler(registry, shared.NewDiscardLogger(), Options{}), shared.NewDiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	api := services.NewAPIService("http://"+ln.Addr().String(), nil)
	tu.Eventually(t, 5*time.Second, func() bool {
		_, err := api.CreateJob(context.Background(), 1, 0)
		return err == nil
	}, "server accepting requests")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
