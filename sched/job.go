// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package sched runs registered jobs on a bounded worker pool: periodic
// firing, per-instance time limits, retry with exponential backoff, and
// advisory dedup of identical in-flight work.
package sched

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Args identify the target of a job instance. Two instances of the same
// job with equal Args are considered the same logical work for dedup.
type Args struct {
	Tenant    string
	AccountID string
}

func (a Args) String() string {
	if a.AccountID == "" {
		return a.Tenant
	}
	return a.Tenant + "/" + a.AccountID
}

// RetryPolicy bounds the exponential backoff applied to a failing run.
// A zero policy means no retries.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Job is one schedulable unit of work, registered once at process start.
type Job struct {
	Name string

	// Interval is the recurrence period. Zero means the job only runs
	// when submitted explicitly.
	Interval time.Duration

	// Expiry is how long a scheduled instance may wait in the queue
	// before it is discarded instead of run. Zero means never discard.
	Expiry time.Duration

	// Timeout is the soft time limit for one run, covering all attempts.
	// Zero means no limit.
	Timeout time.Duration

	Retry RetryPolicy

	Run func(ctx context.Context, args Args) error
}

// Permanent marks err as not worth retrying, ending the run immediately.
// Missing required configuration is the usual case.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Registry holds the job table. It is mutable until the scheduler starts,
// so registration order and construction order are decoupled.
type Registry struct {
	lock   sync.Mutex
	frozen bool
	jobs   map[string]Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: map[string]Job{}}
}

func (r *Registry) Register(job Job) error {
	if job.Name == "" {
		return errors.New("a job name is required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %q has no run function", job.Name)
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.frozen {
		return fmt.Errorf("cannot register job %q after the scheduler has started", job.Name)
	}
	if _, ok := r.jobs[job.Name]; ok {
		return fmt.Errorf("job %q is already registered", job.Name)
	}
	r.jobs[job.Name] = job
	return nil
}

func (r *Registry) Lookup(name string) (Job, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	job, ok := r.jobs[name]
	return job, ok
}

// Jobs returns the registered jobs in name order.
func (r *Registry) Jobs() []Job {
	r.lock.Lock()
	defer r.lock.Unlock()
	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

func (r *Registry) freeze() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.frozen = true
}
