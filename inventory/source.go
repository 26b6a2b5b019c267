// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"context"
	"errors"

	"github.com/xmidt-org/panoptes/model"
)

// ErrAccessDenied reports the account refused the assumed identity. This
// is an expected soft failure; the account is skipped without retry.
var ErrAccessDenied = errors.New("access to the account was denied")

// Query targets one resource type in one account.
type Query struct {
	Tenant       string
	AccountID    string
	AssumeRole   string
	Region       string
	ResourceType string
}

// Source lists the live cloud resources matching a query. Implementations
// wrap the per-resource-type cloud API calls and their pagination; the
// returned records carry the resource identifier in ID and the raw
// descriptor in Data.
type Source interface {
	List(ctx context.Context, query Query) ([]model.Record, error)
}

// NopSource lists nothing, for deployments that only replicate snapshots.
type NopSource struct{}

func (NopSource) List(context.Context, Query) ([]model.Record, error) {
	return nil, nil
}
