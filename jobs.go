// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"time"

	"github.com/xmidt-org/panoptes/inventory"
	"github.com/xmidt-org/panoptes/sched"
	"github.com/xmidt-org/panoptes/sweep"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// JobsConfig holds the periodic job table: recurrence intervals, expiry
// windows, time limits, and retry policies.
type JobsConfig struct {
	// RefreshInterval is how often the all-tenants refresh fires.
	RefreshInterval time.Duration

	// RefreshExpiry discards an all-tenants firing that waited in the
	// queue longer than this, rather than running a stale one.
	RefreshExpiry time.Duration

	// TenantTimeout bounds one tenant's refresh, including the join on
	// its per-account subtasks.
	TenantTimeout time.Duration

	// AccountTimeout bounds one account's collection, across retries.
	AccountTimeout time.Duration

	AccountRetry sched.RetryPolicy

	// SweepInterval is how often expired records are evicted.
	SweepInterval time.Duration
}

type JobsIn struct {
	fx.In
	Registry  *sched.Registry
	Refresher *inventory.Refresher
	Sweeper   *sweep.Sweeper
	Config    JobsConfig
	Logger    *zap.Logger
}

func registerJobs(in JobsIn) error {
	config := in.Config
	validateJobsConfig(&config)

	jobs := []sched.Job{
		{
			Name:     inventory.RefreshAllJob,
			Interval: config.RefreshInterval,
			Expiry:   config.RefreshExpiry,
			Run:      in.Refresher.RefreshAll,
		},
		{
			Name:    inventory.RefreshTenantJob,
			Timeout: config.TenantTimeout,
			Run:     in.Refresher.RefreshTenant,
		},
		{
			Name:    inventory.RefreshAccountJob,
			Timeout: config.AccountTimeout,
			Retry:   config.AccountRetry,
			Run:     in.Refresher.RefreshAccount,
		},
		{
			Name:     sweep.Job,
			Interval: config.SweepInterval,
			Run:      in.Sweeper.Sweep,
		},
	}
	for _, job := range jobs {
		if err := in.Registry.Register(job); err != nil {
			return err
		}
		in.Logger.Info("registered job",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval),
			zap.Duration("timeout", job.Timeout))
	}
	return nil
}

func validateJobsConfig(config *JobsConfig) {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = time.Hour
	}
	if config.RefreshExpiry <= 0 {
		config.RefreshExpiry = 15 * time.Minute
	}
	if config.TenantTimeout <= 0 {
		config.TenantTimeout = 30 * time.Minute
	}
	if config.AccountTimeout <= 0 {
		config.AccountTimeout = 10 * time.Minute
	}
	if config.AccountRetry.MaxAttempts <= 0 {
		config.AccountRetry = sched.RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: 2 * time.Second,
			MaxInterval:     30 * time.Second,
		}
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 30 * time.Minute
	}
}
