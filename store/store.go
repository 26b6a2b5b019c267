// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"

	"github.com/xmidt-org/panoptes/model"
)

const (
	// TypeLabel is for labeling metrics; if there is a single metric for
	// successful queries, the TypeLabel and corresponding type can be used
	// when incrementing the metric.
	TypeLabel  = "type"
	InsertType = "insert"
	DeleteType = "delete"
	ReadType   = "read"
	SweepType  = "sweep"
)

// Hot is the low-latency, read-dominant cache holding the freshest
// per-record view. Records are grouped by namespace (see model.Namespace)
// and keyed by resource identifier. A record whose TTL has passed is absent.
type Hot interface {
	Put(namespace, key string, record model.Record)
	Get(namespace, key string) (model.Record, bool)

	// Dump returns a copy of all live records in a namespace.
	Dump(namespace string) map[string]model.Record

	// Restore destructively replaces the namespace contents with records.
	// Entries not present in records do not survive.
	Restore(namespace string, records map[string]model.Record)

	Clear(namespace string)

	// Purge evicts expired records from every namespace and returns the
	// number removed.
	Purge() int
}

// Records is the authoritative, TTL-bearing system of record for individual
// records, used to reconcile the hot store.
type Records interface {
	Push(ctx context.Context, key model.Key, record model.Record) error
	Get(ctx context.Context, key model.Key) (model.Record, error)
	Delete(ctx context.Context, key model.Key) (model.Record, error)
	GetAll(ctx context.Context, bucket string) (map[string]model.Record, error)

	// DeleteExpired removes records in a bucket whose TTL has passed and
	// returns the number removed. Backends with native expiry may still
	// hold expired records until this is called; reads already treat them
	// as absent either way.
	DeleteExpired(ctx context.Context, bucket string) (int, error)
}

// Snapshots is the durable blob store holding full, compressed,
// cross-region-replicable copies of a tenant+resource-type's cache contents.
type Snapshots interface {
	Write(ctx context.Context, snapshot model.Snapshot) error
	Read(ctx context.Context, tenant, resourceType string) (model.Snapshot, error)
}

// NopSnapshots discards writes and reports every snapshot as missing, for
// deployments without a configured blob store.
type NopSnapshots struct{}

func (NopSnapshots) Write(context.Context, model.Snapshot) error {
	return nil
}

func (NopSnapshots) Read(context.Context, string, string) (model.Snapshot, error) {
	return model.Snapshot{}, ErrSnapshotNotFound
}
