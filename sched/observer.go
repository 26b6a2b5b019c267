// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sched

import (
	"time"

	"go.uber.org/zap"
)

// Observer receives job lifecycle events. Implementations must not block;
// they run on the worker goroutine executing the instance.
type Observer interface {
	OnStart(instance *Instance)
	OnRetry(instance *Instance, err error, next time.Duration)
	OnComplete(instance *Instance)
}

type NopObserver struct{}

func (NopObserver) OnStart(*Instance)                       {}
func (NopObserver) OnRetry(*Instance, error, time.Duration) {}
func (NopObserver) OnComplete(*Instance)                    {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) OnStart(instance *Instance) {
	for _, observer := range o {
		observer.OnStart(instance)
	}
}

func (o Observers) OnRetry(instance *Instance, err error, next time.Duration) {
	for _, observer := range o {
		observer.OnRetry(instance, err, next)
	}
}

func (o Observers) OnComplete(instance *Instance) {
	for _, observer := range o {
		observer.OnComplete(instance)
	}
}

// Reporter receives unexpected errors for observability. It must not block
// job completion.
type Reporter interface {
	Report(err error)
}

type NopReporter struct{}

func (NopReporter) Report(error) {}

// LogReporter writes reported errors to the process log.
type LogReporter struct {
	Logger *zap.Logger
}

func (r LogReporter) Report(err error) {
	r.Logger.Error("job error reported", zap.Error(err))
}
