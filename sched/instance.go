// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sched

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	Scheduled        State = "scheduled"
	Running          State = "running"
	Succeeded        State = "succeeded"
	Failed           State = "failed"
	TimedOut         State = "timed_out"
	SkippedDuplicate State = "skipped_duplicate"
	Discarded        State = "discarded"
)

// terminal reports whether an instance in this state is finished.
func (s State) terminal() bool {
	switch s {
	case Scheduled, Running:
		return false
	}
	return true
}

// Instance is one firing of a job. It is created in the Scheduled state
// and moves through Running to exactly one terminal state.
type Instance struct {
	ID          string
	Name        string
	Args        Args
	ScheduledAt time.Time

	lock       sync.Mutex
	state      State
	err        error
	startedAt  time.Time
	finishedAt time.Time
	done       chan struct{}
}

func newInstance(name string, args Args, now time.Time) *Instance {
	return &Instance{
		ID:          uuid.NewString(),
		Name:        name,
		Args:        args,
		ScheduledAt: now,
		state:       Scheduled,
		done:        make(chan struct{}),
	}
}

func (i *Instance) State() State {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.state
}

// Err returns the terminal error, nil until the instance finishes and nil
// for clean completions. A skipped duplicate is a clean completion.
func (i *Instance) Err() error {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.err
}

func (i *Instance) Duration() time.Duration {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.startedAt.IsZero() || i.finishedAt.IsZero() {
		return 0
	}
	return i.finishedAt.Sub(i.startedAt)
}

// Done is closed when the instance reaches a terminal state.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Wait blocks until the instance finishes or ctx ends, returning the
// terminal error in the first case.
func (i *Instance) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Instance) start(now time.Time) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.state = Running
	i.startedAt = now
}

func (i *Instance) finish(state State, err error, now time.Time) {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.state.terminal() {
		return
	}
	i.state = state
	i.err = err
	i.finishedAt = now
	close(i.done)
}
