// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sched

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Metric names
const (
	JobCompletionCounter = "scheduler_job_completions_count"
	JobRetryCounter      = "scheduler_job_retries_count"
)

// Metric labels
const (
	JobLabel   = "job"
	StateLabel = "state"
)

// ProvideMetrics returns the metrics relevant to the job scheduler.
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: JobCompletionCounter,
				Help: "The total number of job instances reaching a terminal state",
			},
			JobLabel, StateLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: JobRetryCounter,
				Help: "The total number of job run retries",
			},
			JobLabel,
		),
	)
}

type Measures struct {
	fx.In
	JobCompletionCount *prometheus.CounterVec `name:"scheduler_job_completions_count"`
	JobRetryCount      *prometheus.CounterVec `name:"scheduler_job_retries_count"`
}

// NewTestMeasures builds Measures backed by a throwaway registry, for
// tests that exercise the scheduler outside the fx app.
func NewTestMeasures() Measures {
	return Measures{
		JobCompletionCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: JobCompletionCounter, Help: JobCompletionCounter},
			[]string{JobLabel, StateLabel}),
		JobRetryCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: JobRetryCounter, Help: JobRetryCounter},
			[]string{JobLabel}),
	}
}
