//go:build small_tests || all_tests

package email

import (
	"context"
	"sync"
)

// TestMxCache is an unbounded MxCache with injectable errors.
type TestMxCache struct {
	getErr error
	putErr error

	mutex   sync.Mutex
	entries map[string]*MxCacheEntry
	puts    int
}

func NewTestMxCache() *TestMxCache {
	return &TestMxCache{entries: map[string]*MxCacheEntry{}}
}

func (c *TestMxCache) Get(
	_ context.Context, domain string,
) (*MxCacheEntry, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.entries[domain], nil
}

func (c *TestMxCache) Put(
	_ context.Context, domain string, entry *MxCacheEntry,
) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[domain] = entry
	c.puts++
	return nil
}

func (c *TestMxCache) entry(domain string) *MxCacheEntry {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.entries[domain]
}

func (c *TestMxCache) putCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.puts
}
