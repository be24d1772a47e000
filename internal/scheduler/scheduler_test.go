package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
	ch    chan struct{}
}

func (r *countingRefresher) RefreshIfNeeded(context.Context) error {
	r.calls.Add(1)
	if r.ch != nil {
		select {
		case r.ch <- struct{}{}:
		default:
		}
	}
	return r.err
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{"every ten minutes", "*/10 * * * *", true, false},
		{"descriptor", "@every 30m", true, false},
		{"empty schedule - no error, not running", "", false, false},
		{"invalid schedule", "not a schedule", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&countingRefresher{}, tt.schedule, nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if s.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning && s.NextRun() == nil {
				t.Error("NextRun() returned nil for running scheduler")
			}

			s.Stop()
			if s.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_RunsRefresh(t *testing.T) {
	r := &countingRefresher{ch: make(chan struct{}, 1)}
	s := New(r, "@every 1s", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer s.Stop()

	select {
	case <-r.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh was not triggered")
	}
}

func TestScheduler_GracefulShutdown(t *testing.T) {
	s := New(&countingRefresher{}, "@hourly", nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("scheduler still running after context cancelled")
	}
}

func TestScheduler_RunOnceSwallowsErrors(t *testing.T) {
	r := &countingRefresher{err: errors.New("upstream down")}
	s := New(r, "", nil)

	s.RunOnce(context.Background())
	if got := r.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]bool{
		"":             true,
		"0 3 * * *":    true,
		"@every 5m":    true,
		"* * *":        false,
		"every minute": false,
	}
	for schedule, ok := range cases {
		if err := Validate(schedule); (err == nil) != ok {
			t.Errorf("Validate(%q) = %v, want ok=%v", schedule, err, ok)
		}
	}
}
