package progress

import (
	"errors"
	"strings"
	"testing"
)

func TestLinear(t *testing.T) {
	t.Run("initial value is 0", func(t *testing.T) {
		bar := NewLinear(20)
		if bar.Value() != 0 {
			t.Errorf("expected initial value 0, got %v", bar.Value())
		}
	})

	t.Run("initial max is 100", func(t *testing.T) {
		bar := NewLinear(20)
		if bar.Max() != 100 {
			t.Errorf("expected max 100, got %v", bar.Max())
		}
	})

	t.Run("value for overall = 100", func(t *testing.T) {
		bar := NewLinear(20)
		bar.SetOverallEtaSeconds(100)
		bar.SetRemainingEtaSeconds(20)
		if bar.Value() != 80 {
			t.Errorf("expected value 80, got %v", bar.Value())
		}
	})

	t.Run("max and value work for overall time above 100", func(t *testing.T) {
		bar := NewLinear(20)
		bar.SetOverallEtaSeconds(200)
		bar.SetRemainingEtaSeconds(40)
		if bar.Value() != 80 {
			t.Errorf("expected value 80, got %v", bar.Value())
		}
		if bar.Max() != 100 {
			t.Errorf("expected max 100, got %v", bar.Max())
		}
	})

	t.Run("value is not clamped", func(t *testing.T) {
		tc := []struct {
			name      string
			overall   float64
			remaining float64
			want      float64
		}{
			{name: "remaining above overall", overall: 50, remaining: 100, want: -100},
			{name: "negative remaining", overall: 100, remaining: -50, want: 150},
			{name: "explicit zero remaining", overall: 100, remaining: 0, want: 100},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				bar := NewLinear(20)
				bar.SetOverallEtaSeconds(tt.overall)
				bar.SetRemainingEtaSeconds(tt.remaining)
				if bar.Value() != tt.want {
					t.Errorf("expected value %v, got %v", tt.want, bar.Value())
				}
				if bar.Render() == "" {
					t.Error("expected render output")
				}
			})
		}
	})

	t.Run("step fields do not change value", func(t *testing.T) {
		bar := NewLinear(20)
		bar.SetOverallEtaSeconds(100)
		bar.SetRemainingEtaSeconds(50)
		bar.SetStepName("compiling")
		bar.SetStepOverallEtaSeconds(10)
		bar.SetStepRemainingEtaSeconds(1)
		if bar.Value() != 50 {
			t.Errorf("expected value 50, got %v", bar.Value())
		}
	})

	t.Run("OnError renders the error", func(t *testing.T) {
		bar := NewLinear(20)
		bar.OnError(errors.New("bad token"))
		if bar.Err() == nil {
			t.Fatal("expected error to be recorded")
		}
		if !strings.Contains(bar.Render(), "bad token") {
			t.Errorf("expected render to contain error, got %q", bar.Render())
		}
	})
}

func TestClampUnit(t *testing.T) {
	tc := []struct {
		in   float64
		want float64
	}{
		{in: -0.5, want: 0},
		{in: 0.25, want: 0.25},
		{in: 1.5, want: 1},
	}
	for _, tt := range tc {
		if got := clampUnit(tt.in); got != tt.want {
			t.Errorf("clampUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
