package email

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const DefaultMxCacheSize = 10000

// MemoryMxCache is a process-local MxCache bounded by both size and age.
//
// When full, it evicts the least recently used entry.
type MemoryMxCache struct {
	lru *expirable.LRU[string, *MxCacheEntry]
}

// NewMemoryMxCache creates a cache holding up to size entries for up to ttl.
// A size <= 0 selects DefaultMxCacheSize; a ttl <= 0 selects
// DefaultMxCacheTtl.
func NewMemoryMxCache(size int, ttl time.Duration) *MemoryMxCache {
	if size <= 0 {
		size = DefaultMxCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultMxCacheTtl
	}
	lru := expirable.NewLRU[string, *MxCacheEntry](size, nil, ttl)
	return &MemoryMxCache{lru}
}

func (c *MemoryMxCache) Get(
	_ context.Context, domain string,
) (*MxCacheEntry, error) {
	entry, _ := c.lru.Get(domain)
	return entry, nil
}

func (c *MemoryMxCache) Put(
	_ context.Context, domain string, entry *MxCacheEntry,
) error {
	c.lru.Add(domain, entry)
	return nil
}

func (c *MemoryMxCache) Len() int {
	return c.lru.Len()
}

// TieredMxCache checks a fast Local cache before a Shared one.
//
// Shared is typically a db.DynamoDb, which lets multiple processes (such
// as concurrent Lambda instances) reuse each other's lookups. Entries found
// only in Shared are copied into Local. A failure to copy is logged, and the
// Shared entry is still returned.
type TieredMxCache struct {
	Local  MxCache
	Shared MxCache
	Log    *log.Logger
}

func (c *TieredMxCache) Get(
	ctx context.Context, domain string,
) (entry *MxCacheEntry, err error) {
	if entry, err = c.Local.Get(ctx, domain); err != nil || entry != nil {
		return
	} else if entry, err = c.Shared.Get(ctx, domain); err != nil {
		return nil, err
	} else if entry != nil {
		if putErr := c.Local.Put(ctx, domain, entry); putErr != nil {
			const errFmt = "ERROR: failed to copy shared MX cache entry " +
				"for %s into local cache: %s"
			c.Log.Printf(errFmt, domain, putErr)
		}
	}
	return
}

func (c *TieredMxCache) Put(
	ctx context.Context, domain string, entry *MxCacheEntry,
) error {
	return errors.Join(
		c.Local.Put(ctx, domain, entry), c.Shared.Put(ctx, domain, entry),
	)
}
