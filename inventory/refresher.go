// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package inventory keeps every tenant's cloud inventory mirror fresh. A
// refresh fans out from all tenants, to one job per tenant, to one subtask
// per registered account; each account writes its own records so one bad
// account never aborts the tenant's refresh. Only the authoritative region
// calls the cloud; passive regions restore from the durable snapshot.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/region"
	"github.com/xmidt-org/panoptes/sched"
	"github.com/xmidt-org/panoptes/store"
	"github.com/xmidt-org/panoptes/tenantconf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job names
const (
	RefreshAllJob     = "inventory.refresh_all"
	RefreshTenantJob  = "inventory.refresh_tenant"
	RefreshAccountJob = "inventory.refresh_account"
)

var defaultResourceTypes = []string{
	"IAM_ROLES",
	"MANAGED_POLICIES",
	"S3_BUCKETS",
	"SQS_QUEUES",
	"SNS_TOPICS",
	"ORG_ACCOUNTS",
}

const (
	defaultRecordTTL          = 24 * time.Hour
	defaultAccountParallelism = 4
)

type Config struct {
	// ResourceTypes are the inventory kinds collected per account.
	ResourceTypes []string

	// RecordTTL is the absolute expiry applied to collected records. It
	// must outlast the refresh interval or records expire between runs.
	RecordTTL time.Duration

	// AccountParallelism bounds how many account subtasks one tenant
	// refresh runs at once.
	AccountParallelism int
}

// Refresher owns the inventory refresh jobs.
type Refresher struct {
	hot        store.Hot
	records    store.Records
	snapshots  store.Snapshots
	gate       *region.Gate
	conf       *tenantconf.Adapter
	source     Source
	dispatcher sched.Dispatcher
	config     Config
	logger     *zap.Logger
	now        func() time.Time
}

func New(
	hot store.Hot,
	records store.Records,
	snapshots store.Snapshots,
	gate *region.Gate,
	conf *tenantconf.Adapter,
	source Source,
	dispatcher sched.Dispatcher,
	config Config,
	logger *zap.Logger,
) *Refresher {
	validateConfig(&config)
	return &Refresher{
		hot:        hot,
		records:    records,
		snapshots:  snapshots,
		gate:       gate,
		conf:       conf,
		source:     source,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// ResourceTypes returns the inventory kinds this refresher collects,
// with defaults applied.
func (r *Refresher) ResourceTypes() []string {
	return r.config.ResourceTypes
}

// RefreshAll schedules one refresh per tenant and returns without waiting
// for them.
func (r *Refresher) RefreshAll(ctx context.Context, _ sched.Args) error {
	tenants, err := r.conf.Tenants(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate tenants: %w", err)
	}
	for _, tenant := range tenants {
		if _, err := r.dispatcher.Submit(ctx, RefreshTenantJob, sched.Args{Tenant: tenant}); err != nil {
			return err
		}
	}
	r.logger.Info("scheduled tenant refreshes", zap.Int("tenants", len(tenants)))
	return nil
}

// RefreshTenant refreshes one tenant's mirror. The authoritative region
// fans out one subtask per account, joins them, then snapshots the hot
// cache so the snapshot reflects the post-fan-out state. Passive regions
// restore the hot cache from the snapshot instead.
func (r *Refresher) RefreshTenant(ctx context.Context, args sched.Args) error {
	authoritative, err := r.gate.IsAuthoritative(ctx, args.Tenant)
	if err != nil {
		return err
	}
	if !authoritative {
		return r.restore(ctx, args.Tenant)
	}

	accounts, err := r.conf.Accounts(ctx, args.Tenant)
	if err != nil {
		return fmt.Errorf("failed to enumerate accounts for tenant %q: %w", args.Tenant, err)
	}

	// Subtasks run on goroutines this job owns, bounded by the group
	// limit, never on the shared worker pool: a join that re-queued to
	// the pool could deadlock once every worker held a joining tenant
	// job. Execute still applies the account job's dedup, retry, and
	// time limit.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.AccountParallelism)
	for _, account := range accounts {
		group.Go(func() error {
			_, err := r.dispatcher.Execute(groupCtx, RefreshAccountJob,
				sched.Args{Tenant: args.Tenant, AccountID: account.AccountID})
			return err
		})
	}

	// Join before snapshotting. Account failures were already isolated,
	// reported, and retried by the scheduler, so only an unregistered
	// job or cancellation surfaces here; the snapshot still captures the
	// accounts that made it.
	if err := group.Wait(); err != nil {
		return err
	}

	return r.snapshot(ctx, args.Tenant)
}

// RefreshAccount collects every configured resource type for one account.
// Resource types fail independently; access denied ends the type cleanly.
func (r *Refresher) RefreshAccount(ctx context.Context, args sched.Args) error {
	role, err := r.conf.AssumableRole(ctx, args.Tenant, args.AccountID)
	if errors.Is(err, tenantconf.ErrNotFound) {
		return sched.Permanent(fmt.Errorf("no assumable role configured for account %s of tenant %q",
			args.AccountID, args.Tenant))
	}
	if err != nil {
		return err
	}

	var failures error
	for _, resourceType := range r.config.ResourceTypes {
		found, err := r.source.List(ctx, Query{
			Tenant:       args.Tenant,
			AccountID:    args.AccountID,
			AssumeRole:   role,
			ResourceType: resourceType,
		})
		if errors.Is(err, ErrAccessDenied) {
			r.logger.Debug("inventory access denied",
				zap.String("tenant", args.Tenant),
				zap.String("account_id", args.AccountID),
				zap.String("resource_type", resourceType))
			continue
		}
		if err != nil {
			failures = errors.Join(failures, fmt.Errorf("failed to list %s in account %s: %w",
				resourceType, args.AccountID, err))
			continue
		}
		if err := r.write(ctx, args, resourceType, found); err != nil {
			failures = errors.Join(failures, err)
		}
	}
	return failures
}

func (r *Refresher) write(ctx context.Context, args sched.Args, resourceType string, found []model.Record) error {
	now := r.now()
	namespace := model.Namespace(args.Tenant, resourceType)
	var failures error
	for _, record := range found {
		record.Tenant = args.Tenant
		record.AccountID = args.AccountID
		record.ExpiresAt = now.Add(r.config.RecordTTL)
		record.LastUpdated = now
		if err := r.records.Push(ctx, model.Key{Bucket: namespace, ID: record.ID}, record); err != nil {
			failures = errors.Join(failures, fmt.Errorf("failed to store %s record %q: %w",
				resourceType, record.ID, err))
			continue
		}
		r.hot.Put(namespace, record.ID, record)
	}
	return failures
}

// snapshot writes the durable copy of every resource-type namespace for a
// tenant, from the hot cache's post-refresh contents.
func (r *Refresher) snapshot(ctx context.Context, tenant string) error {
	var failures error
	for _, resourceType := range r.config.ResourceTypes {
		err := r.snapshots.Write(ctx, model.Snapshot{
			Tenant:       tenant,
			ResourceType: resourceType,
			TakenAt:      r.now(),
			Records:      r.hot.Dump(model.Namespace(tenant, resourceType)),
		})
		if err != nil {
			failures = errors.Join(failures, err)
		}
	}
	return failures
}

// restore replaces the hot cache's contents for a tenant with the durable
// snapshot. A missing snapshot means the active region has not produced
// one yet; the namespace is left alone until it does.
func (r *Refresher) restore(ctx context.Context, tenant string) error {
	var failures error
	for _, resourceType := range r.config.ResourceTypes {
		snapshot, err := r.snapshots.Read(ctx, tenant, resourceType)
		if errors.Is(err, store.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			failures = errors.Join(failures, err)
			continue
		}
		r.hot.Restore(model.Namespace(tenant, resourceType), snapshot.Records)
		r.logger.Debug("restored namespace from snapshot",
			zap.String("tenant", tenant),
			zap.String("resource_type", resourceType),
			zap.Int("records", len(snapshot.Records)),
			zap.Time("taken_at", snapshot.TakenAt))
	}
	return failures
}

func validateConfig(config *Config) {
	if len(config.ResourceTypes) == 0 {
		config.ResourceTypes = defaultResourceTypes
	}
	if config.RecordTTL <= 0 {
		config.RecordTTL = defaultRecordTTL
	}
	if config.AccountParallelism <= 0 {
		config.AccountParallelism = defaultAccountParallelism
	}
}
