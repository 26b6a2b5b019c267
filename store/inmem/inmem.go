// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/store"
)

// InMem implements the authoritative record store in process memory. It is
// meant to help get an instance of panoptes up and running quickly without a
// need to set up a dedicated DB, and it backs most package tests. Not
// recommended outside test and single-node dev environments.
type InMem struct {
	data map[string]map[string]model.Record
	lock sync.Mutex
	now  func() time.Time
}

func NewInMem() store.Records {
	return &InMem{
		data: map[string]map[string]model.Record{},
		now:  time.Now,
	}
}

func (i *InMem) Push(_ context.Context, key model.Key, record model.Record) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.data[key.Bucket] == nil {
		i.data[key.Bucket] = map[string]model.Record{}
	}
	record.ID = key.ID
	i.data[key.Bucket][key.ID] = record
	return nil
}

func (i *InMem) Get(_ context.Context, key model.Key) (model.Record, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	bucket, ok := i.data[key.Bucket]
	if !ok {
		return model.Record{}, store.KeyNotFoundError{Key: key}
	}
	record, ok := bucket[key.ID]
	if !ok || i.expired(record) {
		return model.Record{}, store.KeyNotFoundError{Key: key}
	}
	return record, nil
}

func (i *InMem) Delete(_ context.Context, key model.Key) (model.Record, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	bucket := i.data[key.Bucket]
	if bucket == nil {
		return model.Record{}, store.KeyNotFoundError{Key: key}
	}
	record, ok := bucket[key.ID]
	if !ok {
		return model.Record{}, store.KeyNotFoundError{Key: key}
	}
	i.deleteRecord(key.Bucket, key.ID, bucket)
	if i.expired(record) {
		return model.Record{}, store.KeyNotFoundError{Key: key}
	}
	return record, nil
}

func (i *InMem) GetAll(_ context.Context, bucketName string) (map[string]model.Record, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	result := map[string]model.Record{}
	for id, record := range i.data[bucketName] {
		if !i.expired(record) {
			result[id] = record
		}
	}
	return result, nil
}

func (i *InMem) DeleteExpired(_ context.Context, bucketName string) (int, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	bucket := i.data[bucketName]
	removed := 0
	for id, record := range bucket {
		if i.expired(record) {
			i.deleteRecord(bucketName, id, bucket)
			removed++
		}
	}
	return removed, nil
}

func (i *InMem) expired(record model.Record) bool {
	return !record.ExpiresAt.IsZero() && !record.ExpiresAt.After(i.now())
}

func (i *InMem) deleteRecord(bucketName, id string, bucket map[string]model.Record) {
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(i.data, bucketName)
	}
}
