// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package region decides which process may write for a tenant. Exactly one
// region is the authoritative writer for a tenant at any time; every other
// region restores its hot cache from the durable snapshot instead of
// calling the cloud inventory source.
package region

import (
	"context"

	"github.com/spf13/cast"
	"github.com/xmidt-org/panoptes/tenantconf"
	"go.uber.org/zap"
)

// ActiveRegionPath is where a tenant's configuration document names its
// authoritative writer region. Absent, the tenant defaults to the process
// region, so single-region deployments are authoritative without setup.
const ActiveRegionPath = "cache.active_region"

type Config struct {
	// Region is the region this process runs in.
	Region string

	// Bootstrap marks a local or single-region deployment that is always
	// authoritative, regardless of tenant configuration.
	Bootstrap bool
}

type Gate struct {
	conf   *tenantconf.Adapter
	config Config
	logger *zap.Logger
}

func New(conf *tenantconf.Adapter, config Config, logger *zap.Logger) *Gate {
	return &Gate{conf: conf, config: config, logger: logger}
}

// IsAuthoritative reports whether this process is the authoritative writer
// for tenant. When false, the caller must not call the cloud inventory
// source or write authoritative records for the tenant.
func (g *Gate) IsAuthoritative(ctx context.Context, tenant string) (bool, error) {
	if g.config.Bootstrap {
		return true, nil
	}
	raw, err := g.conf.Value(ctx, tenant, ActiveRegionPath, g.config.Region)
	if err != nil {
		return false, err
	}
	active := cast.ToString(raw)
	if active == "" {
		active = g.config.Region
	}
	authoritative := active == g.config.Region
	if !authoritative {
		g.logger.Debug("not the authoritative writer",
			zap.String("tenant", tenant),
			zap.String("region", g.config.Region),
			zap.String("active_region", active))
	}
	return authoritative, nil
}
