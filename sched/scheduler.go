// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultWorkers    = 8
	defaultQueueDepth = 128
)

type Config struct {
	// Workers bounds how many job instances run concurrently.
	Workers int

	// QueueDepth bounds how many instances may wait for a worker.
	QueueDepth int
}

// Dispatcher hands work to the scheduler. Fan-out jobs depend on this
// rather than on the scheduler itself. Submit queues an instance for the
// worker pool; Execute runs one synchronously on the caller's goroutine
// with the same dedup, retry, time-limit, and metrics treatment. A job
// that joins on its subtasks must Execute them on goroutines it owns, so
// the join can never starve the shared pool.
type Dispatcher interface {
	Submit(ctx context.Context, name string, args Args) (*Instance, error)
	Execute(ctx context.Context, name string, args Args) (*Instance, error)
}

type runKey struct {
	name string
	args Args
}

// Scheduler executes registered jobs on a bounded worker pool and fires
// periodic jobs on their intervals.
type Scheduler struct {
	registry *Registry
	config   Config
	observer Observer
	reporter Reporter
	measures Measures
	logger   *zap.Logger
	now      func() time.Time

	queue   chan *Instance
	lock    sync.Mutex
	running map[runKey]*Instance
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(registry *Registry, config Config, measures Measures, observer Observer, reporter Reporter, logger *zap.Logger) *Scheduler {
	validateConfig(&config)
	if observer == nil {
		observer = NopObserver{}
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Scheduler{
		registry: registry,
		config:   config,
		observer: observer,
		reporter: reporter,
		measures: measures,
		logger:   logger,
		now:      time.Now,
		queue:    make(chan *Instance, config.QueueDepth),
		running:  map[runKey]*Instance{},
	}
}

// Submit schedules one instance of the named job. It blocks while the
// queue is full, bounded by ctx.
func (s *Scheduler) Submit(ctx context.Context, name string, args Args) (*Instance, error) {
	if _, ok := s.registry.Lookup(name); !ok {
		return nil, fmt.Errorf("job %q is not registered", name)
	}
	instance := newInstance(name, args, s.now())
	select {
	case s.queue <- instance:
		return instance, nil
	case <-ctx.Done():
		instance.finish(Discarded, ctx.Err(), s.now())
		return nil, ctx.Err()
	}
}

// Execute runs one instance of the named job to completion on the calling
// goroutine and returns it in a terminal state.
func (s *Scheduler) Execute(ctx context.Context, name string, args Args) (*Instance, error) {
	if _, ok := s.registry.Lookup(name); !ok {
		return nil, fmt.Errorf("job %q is not registered", name)
	}
	instance := newInstance(name, args, s.now())
	s.execute(ctx, instance)
	return instance, nil
}

// AlreadyRunning reports whether an instance of the job with the same
// arguments is executing right now, excluding the instance identified by
// excludeID. This is advisory across processes; within one process the
// scheduler's own dedup check is atomic.
func (s *Scheduler) AlreadyRunning(name string, args Args, excludeID string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	current, ok := s.running[runKey{name: name, args: args}]
	return ok && current.ID != excludeID
}

// Start freezes the registry, spawns the worker pool, and begins firing
// periodic jobs. Periodic jobs fire once immediately, then on their
// interval.
func (s *Scheduler) Start(context.Context) error {
	s.registry.freeze()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for w := 0; w < s.config.Workers; w++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	for _, job := range s.registry.Jobs() {
		if job.Interval <= 0 {
			continue
		}
		s.wg.Add(1)
		go s.periodic(ctx, job)
	}
	s.logger.Info("scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Int("jobs", len(s.registry.Jobs())))
	return nil
}

// Stop cancels the pool and discards instances still waiting in the
// queue. In-flight runs finish on their own timeouts.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	stopped := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case instance := <-s.queue:
			s.finish(instance, Discarded, errors.New("scheduler stopped"))
		default:
			return nil
		}
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case instance := <-s.queue:
			s.execute(ctx, instance)
		}
	}
}

func (s *Scheduler) periodic(ctx context.Context, job Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		if _, err := s.Submit(ctx, job.Name, Args{}); err != nil && ctx.Err() == nil {
			s.logger.Error("failed to submit periodic job", zap.String("job", job.Name), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, instance *Instance) {
	job, ok := s.registry.Lookup(instance.Name)
	if !ok {
		s.finish(instance, Failed, fmt.Errorf("job %q is not registered", instance.Name))
		return
	}

	if job.Expiry > 0 && s.now().Sub(instance.ScheduledAt) > job.Expiry {
		s.logger.Warn("discarding stale job instance",
			zap.String("job", instance.Name),
			zap.Stringer("args", instance.Args),
			zap.Time("scheduled_at", instance.ScheduledAt))
		s.finish(instance, Discarded, nil)
		return
	}

	if !s.markRunning(instance) {
		s.logger.Info("skipping duplicate job instance",
			zap.String("job", instance.Name),
			zap.Stringer("args", instance.Args))
		s.finish(instance, SkippedDuplicate, nil)
		return
	}

	instance.start(s.now())
	s.observer.OnStart(instance)

	runCtx := ctx
	cancel := func() {}
	if job.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
	}
	defer cancel()

	err := backoff.RetryNotify(
		func() error { return job.Run(runCtx, instance.Args) },
		s.policy(job.Retry, runCtx),
		func(err error, next time.Duration) {
			s.measures.JobRetryCount.With(prometheus.Labels{JobLabel: instance.Name}).Add(1)
			s.observer.OnRetry(instance, err, next)
			s.reporter.Report(err)
			s.logger.Warn("retrying job instance",
				zap.String("job", instance.Name),
				zap.Stringer("args", instance.Args),
				zap.Duration("next_attempt_in", next),
				zap.Error(err))
		})

	switch {
	case err == nil:
		s.finish(instance, Succeeded, nil)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded):
		s.reporter.Report(err)
		s.finish(instance, TimedOut, err)
	default:
		s.reporter.Report(err)
		s.finish(instance, Failed, err)
	}
}

// markRunning records the instance as the live run for its key, refusing
// when another live run holds it.
func (s *Scheduler) markRunning(instance *Instance) bool {
	key := runKey{name: instance.Name, args: instance.Args}
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.running[key]; ok {
		return false
	}
	s.running[key] = instance
	return true
}

func (s *Scheduler) finish(instance *Instance, state State, err error) {
	key := runKey{name: instance.Name, args: instance.Args}
	s.lock.Lock()
	if s.running[key] == instance {
		delete(s.running, key)
	}
	s.lock.Unlock()

	instance.finish(state, err, s.now())
	s.measures.JobCompletionCount.With(prometheus.Labels{
		JobLabel:   instance.Name,
		StateLabel: string(state),
	}).Add(1)
	s.observer.OnComplete(instance)
	s.logger.Debug("job instance finished",
		zap.String("job", instance.Name),
		zap.Stringer("args", instance.Args),
		zap.String("state", string(state)),
		zap.Duration("duration", instance.Duration()),
		zap.Error(err))
}

func (s *Scheduler) policy(retry RetryPolicy, ctx context.Context) backoff.BackOff {
	if retry.MaxAttempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	exponential := backoff.NewExponentialBackOff()
	if retry.InitialInterval > 0 {
		exponential.InitialInterval = retry.InitialInterval
	}
	if retry.MaxInterval > 0 {
		exponential.MaxInterval = retry.MaxInterval
	}
	return backoff.WithContext(
		backoff.WithMaxRetries(exponential, uint64(retry.MaxAttempts-1)), ctx)
}

func validateConfig(config *Config) {
	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}
	if config.QueueDepth <= 0 {
		config.QueueDepth = defaultQueueDepth
	}
}
