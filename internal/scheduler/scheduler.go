// Package scheduler runs a submit-and-forget background job queue with
// bounded concurrency, per-job-type retry with backoff, a dead-letter
// sink after the retry cap, and periodic maintenance tasks (spec
// §4.11 "Background scheduler"). Its constructor-wiring shape follows
// the teacher's pipeline.Config/NewPipeline pattern.
package scheduler

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
)

// JobFunc is a unit of background work. A non-nil error triggers the
// retry policy for its job type.
type JobFunc func(ctx context.Context) error

// RetryPolicy controls how a job type is retried before being
// dead-lettered.
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	Factor      float64
	MaxWait     time.Duration
}

// DefaultRetryPolicy mirrors the ingestion pipeline's transient-error
// backoff (spec §4.4): 1s initial, factor 2, capped at 60s, 5 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, InitialWait: time.Second, Factor: 2, MaxWait: 60 * time.Second}
}

// DeadLetter records a job that exhausted its retry policy.
type DeadLetter struct {
	JobType string
	Err     error
	At      time.Time
}

// Config holds scheduler-wide settings.
type Config struct {
	Concurrency int
}

// DefaultConfig bounds concurrency to the number of available
// processors, per spec §4.11.
func DefaultConfig() *Config {
	return &Config{Concurrency: 0} // 0 means "use runtime.NumCPU" — resolved in New
}

// Scheduler is a bounded-concurrency job queue with retry and a
// periodic-task runner.
type Scheduler struct {
	pool *pool.Pool

	mu          sync.Mutex
	policies    map[string]RetryPolicy
	deadLetters []DeadLetter

	stopCh   chan struct{}
	tickerWG sync.WaitGroup
}

// New creates a Scheduler bounded to cfg.Concurrency goroutines (0
// means runtime.NumCPU()).
func New(cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	p := pool.New().WithMaxGoroutines(concurrency)
	return &Scheduler{
		pool:     p,
		policies: make(map[string]RetryPolicy),
		stopCh:   make(chan struct{}),
	}
}

// SetPolicy overrides the retry policy used for jobType; jobs
// submitted without a registered policy use DefaultRetryPolicy.
func (s *Scheduler) SetPolicy(jobType string, policy RetryPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[jobType] = policy
}

func (s *Scheduler) policyFor(jobType string) RetryPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.policies[jobType]; ok {
		return p
	}
	return DefaultRetryPolicy()
}

// Submit enqueues job under jobType on the bounded worker pool. It
// returns immediately; failures are retried per the job type's policy
// and, if exhausted, recorded as a dead letter.
func (s *Scheduler) Submit(ctx context.Context, jobType string, job JobFunc) {
	policy := s.policyFor(jobType)
	s.pool.Go(func() {
		s.runWithRetry(ctx, jobType, job, policy)
	})
}

func (s *Scheduler) runWithRetry(ctx context.Context, jobType string, job JobFunc, policy RetryPolicy) {
	wait := policy.InitialWait
	var lastErr error
attempts:
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = job(ctx)
		if lastErr == nil {
			return
		}
		logger.Warn("scheduler: job attempt failed", "job_type", jobType, "attempt", attempt, "error", lastErr.Error())
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break attempts
		case <-time.After(wait):
		}
		wait = time.Duration(float64(wait) * policy.Factor)
		if wait > policy.MaxWait {
			wait = policy.MaxWait
		}
	}
	s.mu.Lock()
	s.deadLetters = append(s.deadLetters, DeadLetter{JobType: jobType, Err: lastErr, At: time.Now()})
	s.mu.Unlock()
	logger.Error("scheduler: job dead-lettered", lastErr, "job_type", jobType)
}

// DeadLetters returns a snapshot of jobs that exhausted their retry
// policy.
func (s *Scheduler) DeadLetters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeadLetter, len(s.deadLetters))
	copy(out, s.deadLetters)
	return out
}

// PeriodicTask describes a recurring maintenance job.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// Default cadences for the four built-in maintenance tasks (spec
// §4.11 "Periodic tasks").
const (
	CitationResolutionInterval = 24 * time.Hour
	PageRankRecomputeInterval  = 7 * 24 * time.Hour
	OutlierDetectionInterval   = 24 * time.Hour
	DegradationScanInterval    = 7 * 24 * time.Hour
)

// StartPeriodic launches task on a ticker until Stop is called. The
// task's own failures go through Submit so they share the retry/dead
// letter policy of their job type (task.Name).
func (s *Scheduler) StartPeriodic(ctx context.Context, task PeriodicTask) {
	s.tickerWG.Add(1)
	go func() {
		defer s.tickerWG.Done()
		ticker := time.NewTicker(task.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Submit(ctx, task.Name, task.Run)
			}
		}
	}()
}

// Stop halts all periodic tickers and waits for in-flight jobs on the
// worker pool to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.tickerWG.Wait()
	s.pool.Wait()
}
