package trace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/ezpbars/internal/progress"
	"github.com/desertthunder/ezpbars/internal/shared"
)

func neverDone(context.Context) (bool, error) { return false, nil }

func validRequest() Request {
	return Request{PbarName: "example", UID: "uid-1", Sub: "sub-1", PollResult: neverDone}
}

func TestRequestURL(t *testing.T) {
	tc := []struct {
		name   string
		domain string
		ssl    *bool
		want   string
	}{
		{name: "defaults", want: "wss://ezpbars.com/api/2/progress_bars/traces/"},
		{name: "explicit ssl", ssl: Bool(true), want: "wss://ezpbars.com/api/2/progress_bars/traces/"},
		{name: "insecure", domain: "localhost:8765", ssl: Bool(false), want: "ws://localhost:8765/api/2/progress_bars/traces/"},
		{name: "custom domain", domain: "dev.ezpbars.com", want: "wss://dev.ezpbars.com/api/2/progress_bars/traces/"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.Domain = tt.domain
			req.SSL = tt.ssl
			if got := req.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		if err := validRequest().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tc := []struct {
		name    string
		mutate  func(*Request)
		wantErr error
		field   string
	}{
		{name: "missing pbar name", mutate: func(r *Request) { r.PbarName = "" }, wantErr: shared.ErrMissingArgument, field: "pbar name"},
		{name: "blank uid", mutate: func(r *Request) { r.UID = "  " }, wantErr: shared.ErrMissingArgument, field: "uid"},
		{name: "missing sub", mutate: func(r *Request) { r.Sub = "" }, wantErr: shared.ErrMissingArgument, field: "sub"},
		{name: "missing poll", mutate: func(r *Request) { r.PollResult = nil }, wantErr: shared.ErrMissingArgument, field: "poll"},
		{name: "domain is a url", mutate: func(r *Request) { r.Domain = "https://ezpbars.com/" }, wantErr: shared.ErrInvalidArgument, field: "domain"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to name %q, got %q", tt.field, err.Error())
			}
		})
	}

	t.Run("nil view discards updates", func(t *testing.T) {
		if _, ok := validRequest().view().(progress.Noop); !ok {
			t.Error("expected Noop view for nil View")
		}
	})
}
