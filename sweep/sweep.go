// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package sweep evicts expired records. Reads already treat expired
// records as absent; the sweep reclaims the space they still occupy in
// the hot cache and the authoritative store.
package sweep

import (
	"context"
	"errors"

	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/sched"
	"github.com/xmidt-org/panoptes/store"
	"github.com/xmidt-org/panoptes/tenantconf"
	"go.uber.org/zap"
)

// Job is the sweep's name in the scheduler's job table.
const Job = "cache.evict_expired"

type Sweeper struct {
	hot           store.Hot
	records       store.Records
	conf          *tenantconf.Adapter
	resourceTypes []string
	logger        *zap.Logger
}

func New(hot store.Hot, records store.Records, conf *tenantconf.Adapter, resourceTypes []string, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		hot:           hot,
		records:       records,
		conf:          conf,
		resourceTypes: resourceTypes,
		logger:        logger,
	}
}

// Sweep purges the hot cache, then walks every tenant's resource-type
// buckets in the authoritative store deleting expired records. Bucket
// failures are collected rather than aborting the pass.
func (s *Sweeper) Sweep(ctx context.Context, _ sched.Args) error {
	evicted := s.hot.Purge()

	tenants, err := s.conf.Tenants(ctx)
	if err != nil {
		return err
	}

	removed := 0
	var failures error
	for _, tenant := range tenants {
		for _, resourceType := range s.resourceTypes {
			n, err := s.records.DeleteExpired(ctx, model.Namespace(tenant, resourceType))
			if err != nil {
				failures = errors.Join(failures, err)
				continue
			}
			removed += n
		}
	}

	s.logger.Info("eviction sweep finished",
		zap.Int("hot_evicted", evicted),
		zap.Int("authoritative_removed", removed),
		zap.Int("tenants", len(tenants)))
	return failures
}
