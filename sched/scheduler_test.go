// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type countingObserver struct {
	lock      sync.Mutex
	starts    int
	retries   int
	completes int
}

func (o *countingObserver) OnStart(*Instance) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.starts++
}

func (o *countingObserver) OnRetry(*Instance, error, time.Duration) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.retries++
}

func (o *countingObserver) OnComplete(*Instance) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.completes++
}

func (o *countingObserver) counts() (int, int, int) {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.starts, o.retries, o.completes
}

type SchedulerTestSuite struct {
	suite.Suite
	Registry  *Registry
	Scheduler *Scheduler
	Observer  *countingObserver
	Ctx       context.Context
}

func (s *SchedulerTestSuite) SetupTest() {
	s.Registry = NewRegistry()
	s.Observer = new(countingObserver)
	s.Scheduler = New(s.Registry, Config{Workers: 2}, NewTestMeasures(),
		s.Observer, NopReporter{}, zap.NewNop())
	s.Ctx = context.Background()
}

func (s *SchedulerTestSuite) start() {
	s.Require().NoError(s.Scheduler.Start(s.Ctx))
}

func (s *SchedulerTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.NoError(s.Scheduler.Stop(ctx))
}

func (s *SchedulerTestSuite) wait(instance *Instance) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-instance.Done():
	case <-ctx.Done():
		s.Require().FailNow("instance did not finish in time")
	}
}

func (s *SchedulerTestSuite) TestSubmitUnknownJob() {
	s.start()
	_, err := s.Scheduler.Submit(s.Ctx, "no.such.job", Args{})
	s.Error(err)
}

func (s *SchedulerTestSuite) TestRunToCompletion() {
	var runs atomic.Int32
	s.Require().NoError(s.Registry.Register(Job{
		Name: "touch",
		Run: func(context.Context, Args) error {
			runs.Add(1)
			return nil
		},
	}))
	s.start()

	instance, err := s.Scheduler.Submit(s.Ctx, "touch", Args{Tenant: "acme"})
	s.Require().NoError(err)
	s.wait(instance)

	s.Equal(Succeeded, instance.State())
	s.NoError(instance.Err())
	s.Equal(int32(1), runs.Load())
	starts, _, completes := s.Observer.counts()
	s.Equal(1, starts)
	s.Equal(1, completes)
}

func (s *SchedulerTestSuite) TestDuplicateIsSkippedWithoutSideEffects() {
	var runs atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	s.Require().NoError(s.Registry.Register(Job{
		Name: "slow",
		Run: func(context.Context, Args) error {
			runs.Add(1)
			close(started)
			<-release
			return nil
		},
	}))
	s.start()

	first, err := s.Scheduler.Submit(s.Ctx, "slow", Args{Tenant: "acme"})
	s.Require().NoError(err)
	<-started

	s.True(s.Scheduler.AlreadyRunning("slow", Args{Tenant: "acme"}, "other"))
	s.False(s.Scheduler.AlreadyRunning("slow", Args{Tenant: "acme"}, first.ID))
	s.False(s.Scheduler.AlreadyRunning("slow", Args{Tenant: "globex"}, "other"))

	duplicate, err := s.Scheduler.Submit(s.Ctx, "slow", Args{Tenant: "acme"})
	s.Require().NoError(err)
	s.wait(duplicate)

	s.Equal(SkippedDuplicate, duplicate.State())
	s.NoError(duplicate.Err(), "a skipped duplicate is a clean no-op")
	s.Equal(int32(1), runs.Load(), "the duplicate must not run the job")

	close(release)
	s.wait(first)
	s.Equal(Succeeded, first.State())
}

// Execute must run the job on the calling goroutine with full retry
// semantics, independent of the worker pool, so joining jobs cannot
// exhaust the pool by queuing their own subtasks.
func (s *SchedulerTestSuite) TestExecuteRunsOnCallingGoroutine() {
	var runs atomic.Int32
	s.Require().NoError(s.Registry.Register(Job{
		Name: "inline",
		Retry: RetryPolicy{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
		},
		Run: func(context.Context, Args) error {
			if runs.Add(1) < 2 {
				return errors.New("throttled")
			}
			return nil
		},
	}))

	// no Start: there are no workers, so completion proves the run
	// happened inline
	instance, err := s.Scheduler.Execute(s.Ctx, "inline", Args{Tenant: "acme"})
	s.Require().NoError(err)

	s.Equal(Succeeded, instance.State())
	s.Equal(int32(2), runs.Load())
	_, retries, completes := s.Observer.counts()
	s.Equal(1, retries)
	s.Equal(1, completes)

	_, err = s.Scheduler.Execute(s.Ctx, "no.such.job", Args{})
	s.Error(err)
}

func (s *SchedulerTestSuite) TestExecuteSkipsDuplicateOfPooledRun() {
	var runs atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	s.Require().NoError(s.Registry.Register(Job{
		Name: "slow",
		Run: func(context.Context, Args) error {
			runs.Add(1)
			close(started)
			<-release
			return nil
		},
	}))
	s.start()

	first, err := s.Scheduler.Submit(s.Ctx, "slow", Args{Tenant: "acme"})
	s.Require().NoError(err)
	<-started

	duplicate, err := s.Scheduler.Execute(s.Ctx, "slow", Args{Tenant: "acme"})
	s.Require().NoError(err)
	s.Equal(SkippedDuplicate, duplicate.State())
	s.Equal(int32(1), runs.Load())

	close(release)
	s.wait(first)
	s.Equal(Succeeded, first.State())
}

func (s *SchedulerTestSuite) TestTimeLimit() {
	s.Require().NoError(s.Registry.Register(Job{
		Name:    "stuck",
		Timeout: 20 * time.Millisecond,
		Run: func(ctx context.Context, _ Args) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))
	s.start()

	instance, err := s.Scheduler.Submit(s.Ctx, "stuck", Args{Tenant: "acme"})
	s.Require().NoError(err)
	s.wait(instance)

	s.Equal(TimedOut, instance.State())
	s.Error(instance.Err())
}

func (s *SchedulerTestSuite) TestTransientFailureIsRetried() {
	var runs atomic.Int32
	s.Require().NoError(s.Registry.Register(Job{
		Name: "flaky",
		Retry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
		},
		Run: func(context.Context, Args) error {
			if runs.Add(1) < 3 {
				return errors.New("throttled")
			}
			return nil
		},
	}))
	s.start()

	instance, err := s.Scheduler.Submit(s.Ctx, "flaky", Args{Tenant: "acme"})
	s.Require().NoError(err)
	s.wait(instance)

	s.Equal(Succeeded, instance.State())
	s.Equal(int32(3), runs.Load())
	_, retries, _ := s.Observer.counts()
	s.Equal(2, retries)
}

func (s *SchedulerTestSuite) TestPermanentFailureIsNotRetried() {
	var runs atomic.Int32
	s.Require().NoError(s.Registry.Register(Job{
		Name: "misconfigured",
		Retry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
		},
		Run: func(context.Context, Args) error {
			runs.Add(1)
			return Permanent(errors.New("no assumable role"))
		},
	}))
	s.start()

	instance, err := s.Scheduler.Submit(s.Ctx, "misconfigured", Args{Tenant: "acme"})
	s.Require().NoError(err)
	s.wait(instance)

	s.Equal(Failed, instance.State())
	s.Equal(int32(1), runs.Load())
	_, retries, _ := s.Observer.counts()
	s.Zero(retries)
}

func (s *SchedulerTestSuite) TestStaleInstanceIsDiscarded() {
	var runs atomic.Int32
	s.Require().NoError(s.Registry.Register(Job{
		Name:   "perishable",
		Expiry: time.Nanosecond,
		Run: func(context.Context, Args) error {
			runs.Add(1)
			return nil
		},
	}))
	s.start()

	instance, err := s.Scheduler.Submit(s.Ctx, "perishable", Args{Tenant: "acme"})
	s.Require().NoError(err)
	s.wait(instance)

	s.Equal(Discarded, instance.State())
	s.Zero(runs.Load())
}

func (s *SchedulerTestSuite) TestPeriodicFiring() {
	fired := make(chan struct{}, 8)
	s.Require().NoError(s.Registry.Register(Job{
		Name:     "heartbeat",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context, Args) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	}))
	s.start()

	timeout := time.After(5 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-timeout:
			s.Require().FailNow("periodic job did not fire")
		}
	}
}

func (s *SchedulerTestSuite) TestRegistryRejectsDuplicatesAndLateRegistration() {
	job := Job{Name: "once", Run: func(context.Context, Args) error { return nil }}
	s.Require().NoError(s.Registry.Register(job))
	s.Error(s.Registry.Register(job))

	s.start()
	s.Error(s.Registry.Register(Job{Name: "late", Run: job.Run}))
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}
