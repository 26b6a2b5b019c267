// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/sched"
	"github.com/xmidt-org/panoptes/store"
	"github.com/xmidt-org/panoptes/store/hot"
	"github.com/xmidt-org/panoptes/store/inmem"
	"github.com/xmidt-org/panoptes/tenantconf"
	"go.uber.org/zap"
)

func TestSweepEvictsExpiredRecords(t *testing.T) {
	ctx := context.Background()
	hotCache := hot.New()
	records := inmem.NewInMem()
	conf := tenantconf.New(records, zap.NewNop())

	require.NoError(t, tenantconf.UpsertInList(ctx, conf, "acme", tenantconf.SpokeAccounts,
		tenantconf.SpokeAccount{Name: "core", AccountID: "111111111111", AssumableRole: "collector"}))

	namespace := model.Namespace("acme", "IAM_ROLES")
	now := time.Now()
	stale := model.Record{
		ID:        "arn:aws:iam::111111111111:role/stale",
		Tenant:    "acme",
		AccountID: "111111111111",
		ExpiresAt: now.Add(20 * time.Millisecond),
	}
	fresh := stale
	fresh.ID = "arn:aws:iam::111111111111:role/fresh"
	fresh.ExpiresAt = now.Add(time.Hour)

	for _, record := range []model.Record{stale, fresh} {
		require.NoError(t, records.Push(ctx, model.Key{Bucket: namespace, ID: record.ID}, record))
		hotCache.Put(namespace, record.ID, record)
	}

	time.Sleep(50 * time.Millisecond)

	sweeper := New(hotCache, records, conf, []string{"IAM_ROLES"}, zap.NewNop())
	require.NoError(t, sweeper.Sweep(ctx, sched.Args{}))

	_, ok := hotCache.Get(namespace, stale.ID)
	assert.False(t, ok, "expired record must be gone from the hot cache")
	_, ok = hotCache.Get(namespace, fresh.ID)
	assert.True(t, ok, "live record must survive the sweep")

	_, err := records.Get(ctx, model.Key{Bucket: namespace, ID: stale.ID})
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	stored, err := records.GetAll(ctx, namespace)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	removed, err := records.DeleteExpired(ctx, namespace)
	require.NoError(t, err)
	assert.Zero(t, removed, "a second sweep has nothing left to remove")
}
