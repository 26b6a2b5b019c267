// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package hot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/xmidt-org/panoptes/model"
)

const testNamespace = "acme_IAM_ROLES"

type HotCacheTestSuite struct {
	suite.Suite
	RoleOne model.Record
	RoleTwo model.Record
	Expired model.Record
}

func (s *HotCacheTestSuite) SetupSuite() {
	s.RoleOne = model.Record{
		ID:        "arn:aws:iam::111111111111:role/admin",
		Tenant:    "acme",
		AccountID: "111111111111",
		Data:      map[string]interface{}{"path": "/"},
	}
	s.RoleTwo = model.Record{
		ID:        "arn:aws:iam::111111111111:role/readonly",
		Tenant:    "acme",
		AccountID: "111111111111",
		Data:      map[string]interface{}{"path": "/"},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	s.Expired = model.Record{
		ID:        "arn:aws:iam::111111111111:role/stale",
		Tenant:    "acme",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
}

func (s *HotCacheTestSuite) TestPutThenGet() {
	cache := New()
	cache.Put(testNamespace, s.RoleOne.ID, s.RoleOne)

	got, ok := cache.Get(testNamespace, s.RoleOne.ID)
	s.Require().True(ok)
	s.Equal(s.RoleOne, got)

	_, ok = cache.Get(testNamespace, "arn:aws:iam::111111111111:role/other")
	s.False(ok)

	_, ok = cache.Get("acme_SQS_QUEUES", s.RoleOne.ID)
	s.False(ok)
}

func (s *HotCacheTestSuite) TestDumpSkipsNothingLive() {
	cache := New()
	cache.Put(testNamespace, s.RoleOne.ID, s.RoleOne)
	cache.Put(testNamespace, s.RoleTwo.ID, s.RoleTwo)

	dump := cache.Dump(testNamespace)
	s.Len(dump, 2)
	s.Equal(s.RoleOne, dump[s.RoleOne.ID])
	s.Equal(s.RoleTwo, dump[s.RoleTwo.ID])

	s.Empty(cache.Dump("unknown_NS"))
}

func (s *HotCacheTestSuite) TestRestoreReplaces() {
	cache := New()
	cache.Put(testNamespace, s.RoleOne.ID, s.RoleOne)

	cache.Restore(testNamespace, map[string]model.Record{
		s.RoleTwo.ID: s.RoleTwo,
	})

	_, ok := cache.Get(testNamespace, s.RoleOne.ID)
	s.False(ok, "restore must be a full replace, not a merge")
	got, ok := cache.Get(testNamespace, s.RoleTwo.ID)
	s.Require().True(ok)
	s.Equal(s.RoleTwo, got)
}

// Readers during a restore must always see a complete set, old or new,
// never an emptied or half-loaded namespace.
func (s *HotCacheTestSuite) TestRestoreIsInvisibleToConcurrentReaders() {
	cache := New()
	cache.Put(testNamespace, s.RoleOne.ID, s.RoleOne)
	cache.Put(testNamespace, s.RoleTwo.ID, s.RoleTwo)

	replacement := map[string]model.Record{}
	for i := 0; i < 2; i++ {
		record := s.RoleTwo
		record.ID = "arn:aws:iam::111111111111:role/replacement-" + string(rune('a'+i))
		replacement[record.ID] = record
	}

	stop := make(chan struct{})
	partial := make(chan int, 1)
	go func() {
		defer close(partial)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if n := len(cache.Dump(testNamespace)); n != 2 {
				partial <- n
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		cache.Restore(testNamespace, replacement)
	}
	close(stop)

	if n, ok := <-partial; ok {
		s.Failf("partial namespace observed", "dump returned %d records during restore", n)
	}
	dump := cache.Dump(testNamespace)
	s.Require().Len(dump, 2)
	for id := range replacement {
		s.Contains(dump, id)
	}
}

func (s *HotCacheTestSuite) TestClear() {
	cache := New()
	cache.Put(testNamespace, s.RoleOne.ID, s.RoleOne)
	cache.Clear(testNamespace)
	s.Empty(cache.Dump(testNamespace))
	// clearing an unknown namespace is a no-op
	cache.Clear("unknown_NS")
}

func (s *HotCacheTestSuite) TestExpiredWriteIsAbsent() {
	cache := New()
	cache.Put(testNamespace, s.Expired.ID, s.Expired)

	_, ok := cache.Get(testNamespace, s.Expired.ID)
	s.False(ok, "a record written with an expiry in the past is never visible")
	s.Equal(0, cache.Purge())
}

func (s *HotCacheTestSuite) TestPurgeEvictsExpired() {
	cache := New()
	shortLived := s.RoleTwo
	shortLived.ExpiresAt = time.Now().Add(20 * time.Millisecond)

	cache.Put(testNamespace, s.RoleOne.ID, s.RoleOne)
	cache.Put(testNamespace, shortLived.ID, shortLived)
	time.Sleep(50 * time.Millisecond)

	_, ok := cache.Get(testNamespace, shortLived.ID)
	s.False(ok, "expired records are absent even before a sweep")

	removed := cache.Purge()
	s.Equal(1, removed)

	got, ok := cache.Get(testNamespace, s.RoleOne.ID)
	s.Require().True(ok)
	s.Equal(s.RoleOne, got)
}

func TestHotCache(t *testing.T) {
	suite.Run(t, new(HotCacheTestSuite))
}
