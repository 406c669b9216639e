package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/ezpbars/internal/shared"
)

func TestSubscription(t *testing.T) {
	t.Run("New Is Pending", func(t *testing.T) {
		s := NewSubscription(1, "example", "uid-1", "sub-1", "ezpbars.com")
		if s.Status() != StatusPending {
			t.Errorf("expected pending, got %s", s.Status())
		}
		if s.FinishedAt() != nil || s.Duration() != 0 {
			t.Error("expected no finish time")
		}
	})

	t.Run("Finish", func(t *testing.T) {
		s := NewSubscription(1, "example", "uid-1", "sub-1", "")
		s.SetStartedAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		s.Finish(StatusFailed, "bad token", time.Date(2024, 1, 1, 0, 0, 3, 0, time.UTC))

		if s.Status() != StatusFailed || s.ErrorMessage() != "bad token" {
			t.Errorf("unexpected outcome %s %q", s.Status(), s.ErrorMessage())
		}
		if s.Duration() != 3*time.Second {
			t.Errorf("expected 3s, got %v", s.Duration())
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			mutate  func(*Subscription)
			wantErr error
		}{
			{name: "valid", mutate: func(*Subscription) {}},
			{name: "missing id", mutate: func(s *Subscription) { s.SetID("") }, wantErr: shared.ErrMissingArgument},
			{name: "missing uid", mutate: func(s *Subscription) { s.traceUID = "" }, wantErr: shared.ErrMissingArgument},
			{name: "unknown status", mutate: func(s *Subscription) { s.SetStatus("weird") }, wantErr: shared.ErrInvalidInput},
			{name: "pending with finish", mutate: func(s *Subscription) {
				now := time.Now()
				s.SetFinishedAt(&now)
			}, wantErr: shared.ErrInvalidInput},
			{name: "negative counters", mutate: func(s *Subscription) { s.SetCounters(-1, 0, 0) }, wantErr: shared.ErrInvalidInput},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				s := NewSubscription(1, "example", "uid-1", "sub-1", "")
				s.SetID("id-1")
				tt.mutate(s)
				err := s.Validate()
				if tt.wantErr == nil {
					if err != nil {
						t.Errorf("expected no error, got %v", err)
					}
					return
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})
}
