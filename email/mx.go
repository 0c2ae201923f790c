package email

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMxCacheTtl      = time.Hour
	DefaultMxLookupTimeout = 5 * time.Second
)

// Resolver wraps the LookupMX method from the net standard library.
//
// This interface allows for unit testing code that relies on this method
// without performing actual DNS lookups. *net.Resolver implements it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// MxRecord is a single mail host for a domain.
type MxRecord struct {
	Host string
	Pref uint16
}

// MxCacheEntry holds the outcome of resolving a domain's MX records.
//
// Unresolvable marks a domain known to have no usable mail hosts, so that
// failed lookups are cached as well as successful ones.
type MxCacheEntry struct {
	Records      []MxRecord
	Unresolvable bool
	Expires      time.Time
}

// Expired reports whether the entry is no longer valid at time now.
func (e *MxCacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.Expires)
}

// HasMailHosts reports whether the entry contains at least one mail host.
func (e *MxCacheEntry) HasMailHosts() bool {
	return !e.Unresolvable && len(e.Records) != 0
}

// MxCache stores MxCacheEntry values by lowercase domain name.
//
// Get returns a nil entry and nil error on a cache miss. Implementations must
// be safe for concurrent use.
type MxCache interface {
	Get(ctx context.Context, domain string) (*MxCacheEntry, error)
	Put(ctx context.Context, domain string, entry *MxCacheEntry) error
}

// MxChecker looks up and caches the MX records for email domains.
//
// Concurrent lookups for the same domain share a single DNS query, since bulk
// uploads routinely contain many addresses from the same domain.
//
// Resolver is required. All other fields are optional: a nil Cache disables
// caching, and zero values for Ttl, Timeout, and Now select the defaults.
type MxChecker struct {
	Resolver Resolver
	Cache    MxCache
	Ttl      time.Duration
	Timeout  time.Duration
	Now      func() time.Time
	Log      *log.Logger

	// Lookups, if not nil, counts lookups by a "result" label of "hit",
	// "miss", or "error".
	Lookups *prometheus.CounterVec

	group singleflight.Group
}

// HasMailHosts reports whether domain has at least one usable MX record.
//
// Returns an error only if the lookup failed for a reason other than the
// domain not existing or having no MX records.
func (c *MxChecker) HasMailHosts(
	ctx context.Context, domain string,
) (bool, error) {
	entry, err := c.Lookup(ctx, domain)
	if err != nil {
		return false, err
	}
	return entry.HasMailHosts(), nil
}

// Lookup returns the unexpired cache entry for domain, resolving and caching
// a new one if necessary.
func (c *MxChecker) Lookup(
	ctx context.Context, domain string,
) (*MxCacheEntry, error) {
	domain = strings.ToLower(domain)

	if entry := c.cached(ctx, domain); entry != nil {
		c.count("hit")
		return entry, nil
	}

	// singleflight rethrows panics in a new goroutine, where the caller can't
	// recover them.
	ch := c.group.DoChan(domain, func() (val any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return c.resolve(ctx, domain)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.count("error")
			return nil, res.Err
		}
		c.count("miss")
		return res.Val.(*MxCacheEntry), nil
	}
}

func (c *MxChecker) cached(ctx context.Context, domain string) *MxCacheEntry {
	if c.Cache == nil {
		return nil
	}

	entry, err := c.Cache.Get(ctx, domain)
	if err != nil {
		c.Log.Printf("ERROR reading MX cache for %s: %s", domain, err)
		return nil
	} else if entry == nil || entry.Expired(c.now()) {
		return nil
	}
	return entry
}

// resolve performs the DNS query on behalf of every caller waiting on domain.
// The query isn't bound to the first caller's cancellation, since other
// callers may still be waiting for it.
func (c *MxChecker) resolve(
	ctx context.Context, domain string,
) (*MxCacheEntry, error) {
	ctx = context.WithoutCancel(ctx)
	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	records, err := c.Resolver.LookupMX(lookupCtx, domain)
	entry := &MxCacheEntry{Expires: c.now().Add(c.ttl())}

	if len(records) != 0 {
		// LookupMX may return valid records alongside an error for any
		// malformed ones.
		if err != nil {
			c.Log.Printf("some MX records for %s are invalid: %s", domain, err)
		}
		entry.Records = toMxRecords(records)
		entry.Unresolvable = len(entry.Records) == 0
	} else if err == nil || isNotFound(err) {
		entry.Unresolvable = true
	} else {
		const errFmt = "error retrieving MX records for %s: %w"
		return nil, fmt.Errorf(errFmt, domain, err)
	}

	if c.Cache != nil {
		if err := c.Cache.Put(ctx, domain, entry); err != nil {
			c.Log.Printf("ERROR caching MX records for %s: %s", domain, err)
		}
	}
	return entry, nil
}

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// toMxRecords normalizes host names and sorts by preference. A "null MX"
// record (RFC 7505), whose host is ".", means the domain accepts no mail and
// is dropped.
func toMxRecords(records []*net.MX) []MxRecord {
	result := make([]MxRecord, 0, len(records))

	for _, r := range records {
		host := strings.ToLower(strings.TrimSuffix(r.Host, "."))
		if host != "" {
			result = append(result, MxRecord{host, r.Pref})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Pref < result[j].Pref
	})
	return result
}

func (c *MxChecker) count(result string) {
	if c.Lookups != nil {
		c.Lookups.WithLabelValues(result).Inc()
	}
}

func (c *MxChecker) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *MxChecker) ttl() time.Duration {
	if c.Ttl <= 0 {
		return DefaultMxCacheTtl
	}
	return c.Ttl
}

func (c *MxChecker) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultMxLookupTimeout
	}
	return c.Timeout
}
