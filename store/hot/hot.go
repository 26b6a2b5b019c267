// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package hot

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/store"
)

// Cache implements the hot store over one ttlcache per namespace. Expired
// records are invisible to reads immediately; the backing memory is released
// by Purge, which the eviction sweep calls on an interval.
type Cache struct {
	lock       sync.RWMutex
	namespaces map[string]*ttlcache.Cache[string, model.Record]
}

func New() store.Hot {
	return &Cache{
		namespaces: map[string]*ttlcache.Cache[string, model.Record]{},
	}
}

func (c *Cache) namespace(name string, create bool) *ttlcache.Cache[string, model.Record] {
	c.lock.RLock()
	ns := c.namespaces[name]
	c.lock.RUnlock()
	if ns != nil || !create {
		return ns
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if ns = c.namespaces[name]; ns == nil {
		ns = ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, model.Record](),
		)
		c.namespaces[name] = ns
	}
	return ns
}

func (c *Cache) Put(namespace, key string, record model.Record) {
	ttl, live := ttlFor(record)
	if !live {
		// already expired at write time; storing it would only make work
		// for the next purge
		if ns := c.namespace(namespace, false); ns != nil {
			ns.Delete(key)
		}
		return
	}
	c.namespace(namespace, true).Set(key, record, ttl)
}

// ttlFor translates a record's absolute expiry into a ttlcache duration.
// The second return is false when the record is already expired.
func ttlFor(record model.Record) (time.Duration, bool) {
	if record.ExpiresAt.IsZero() {
		return ttlcache.NoTTL, true
	}
	remaining := time.Until(record.ExpiresAt)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

func (c *Cache) Get(namespace, key string) (model.Record, bool) {
	ns := c.namespace(namespace, false)
	if ns == nil {
		return model.Record{}, false
	}
	item := ns.Get(key)
	if item == nil || item.IsExpired() {
		return model.Record{}, false
	}
	return item.Value(), true
}

func (c *Cache) Dump(namespace string) map[string]model.Record {
	result := map[string]model.Record{}
	ns := c.namespace(namespace, false)
	if ns == nil {
		return result
	}
	for key, item := range ns.Items() {
		if item.IsExpired() {
			continue
		}
		result[key] = item.Value()
	}
	return result
}

// Restore replaces the namespace contents wholesale. This is the passive
// region repopulation path, so stale entries must not survive a restore.
// The replacement is built aside and swapped in under the lock; readers
// see either the full old set or the full new set, never a partial one.
func (c *Cache) Restore(namespace string, records map[string]model.Record) {
	fresh := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, model.Record](),
	)
	for key, record := range records {
		if ttl, live := ttlFor(record); live {
			fresh.Set(key, record, ttl)
		}
	}

	c.lock.Lock()
	c.namespaces[namespace] = fresh
	c.lock.Unlock()
}

func (c *Cache) Clear(namespace string) {
	if ns := c.namespace(namespace, false); ns != nil {
		ns.DeleteAll()
	}
}

func (c *Cache) Purge() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	removed := 0
	for _, ns := range c.namespaces {
		before := ns.Len()
		ns.DeleteExpired()
		removed += before - ns.Len()
	}
	return removed
}
