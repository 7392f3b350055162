package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields map[string]interface{}) {}
func (nopLogger) Info(msg string, fields map[string]interface{})  {}
func (nopLogger) Warn(msg string, fields map[string]interface{})  {}
func (nopLogger) Error(msg string, fields map[string]interface{}) {}

type countingRunner struct {
	calls int32
	block chan struct{}
}

func (r *countingRunner) Run(ctx context.Context) error {
	atomic.AddInt32(&r.calls, 1)
	if r.block != nil {
		<-r.block
	}
	return nil
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	_, err := New(context.Background(), "not a cron spec", &countingRunner{}, nopLogger{})
	if err == nil {
		t.Error("New should reject an invalid cron spec")
	}
}

func TestNew_AcceptsStandardSpecs(t *testing.T) {
	specs := []string{"0 8 * * *", "*/5 * * * *", "@daily", "@every 1h"}
	for _, spec := range specs {
		if _, err := New(context.Background(), spec, &countingRunner{}, nopLogger{}); err != nil {
			t.Errorf("New(%q) returned error: %v", spec, err)
		}
	}
}

func TestScheduler_FiresRunner(t *testing.T) {
	runner := &countingRunner{}
	s, err := New(context.Background(), "@every 10ms", runner, nopLogger{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	s.Start()
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&runner.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("runner never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	s, err := New(context.Background(), "@every 10ms", runner, nopLogger{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	s.Start()

	// Let several triggers elapse while the first run blocks.
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&runner.calls); got != 1 {
		t.Errorf("runner fired %d times while blocked, want 1", got)
	}

	close(runner.block)
	s.Stop()
}
