package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitSucceedsFirstAttempt(t *testing.T) {
	s := New(&Config{Concurrency: 2})
	var ran int32
	s.Submit(context.Background(), "job.ok", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	s.Stop()

	if atomic.LoadInt32(&ran) != 1 {
		t.Errorf("Expected job to run once, ran %d times", ran)
	}
	if len(s.DeadLetters()) != 0 {
		t.Errorf("Expected no dead letters, got %d", len(s.DeadLetters()))
	}
}

func TestSubmitRetriesThenDeadLetters(t *testing.T) {
	s := New(&Config{Concurrency: 2})
	s.SetPolicy("job.fail", RetryPolicy{MaxAttempts: 3, InitialWait: time.Millisecond, Factor: 2, MaxWait: time.Millisecond * 10})

	var attempts int32
	s.Submit(context.Background(), "job.fail", func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("transient")
	})
	s.Stop()

	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	dl := s.DeadLetters()
	if len(dl) != 1 || dl[0].JobType != "job.fail" {
		t.Errorf("Expected 1 dead letter for job.fail, got %v", dl)
	}
}

func TestSubmitRecoversBeforeExhaustingRetries(t *testing.T) {
	s := New(&Config{Concurrency: 2})
	s.SetPolicy("job.flaky", RetryPolicy{MaxAttempts: 5, InitialWait: time.Millisecond, Factor: 2, MaxWait: time.Millisecond * 10})

	var attempts int32
	s.Submit(context.Background(), "job.flaky", func(ctx context.Context) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			return errors.New("transient")
		}
		return nil
	})
	s.Stop()

	if len(s.DeadLetters()) != 0 {
		t.Errorf("Expected no dead letters for a job that eventually succeeds, got %d", len(s.DeadLetters()))
	}
}

func TestStartPeriodicRunsOnInterval(t *testing.T) {
	s := New(&Config{Concurrency: 2})
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	s.StartPeriodic(ctx, PeriodicTask{
		Name:     "test.tick",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})

	time.Sleep(30 * time.Millisecond)
	cancel()
	s.Stop()

	if atomic.LoadInt32(&runs) == 0 {
		t.Error("Expected periodic task to have run at least once")
	}
}
