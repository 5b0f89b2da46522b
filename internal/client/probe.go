package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

const (
	probeCacheTTL      = 30 * time.Second
	probeCacheMaxEntry = 256
)

type availabilityRow struct {
	PlanCode    string `json:"planCode"`
	Fqn         string `json:"fqn"`
	Datacenters []struct {
		Datacenter   string `json:"datacenter"`
		Availability string `json:"availability"`
	} `json:"datacenters"`
}

type probeCacheKey struct {
	region      string
	planCode    string
	fingerprint string
}

type probeCacheEntry struct {
	reading models.AvailabilityReading
	cachedAt time.Time
}

// Prober answers "is this plan+options combination available in these
// datacenters", coalescing duplicate calls from the scheduler and the
// monitor behind a short-lived cache. One Prober is shared across accounts;
// the cache key includes the account's region, not its identity, since
// availability is a property of the OVH catalog, not of a credential set.
type Prober struct {
	pool *Pool

	mu    sync.Mutex
	cache map[probeCacheKey]probeCacheEntry

	cacheHits   func()
	cacheMisses func()
}

func NewProber(pool *Pool) *Prober {
	return &Prober{
		pool:  pool,
		cache: make(map[probeCacheKey]probeCacheEntry),
	}
}

// OnCacheEvent wires counters (C10) for cache hit/miss observation.
func (p *Prober) OnCacheEvent(hits, misses func()) {
	p.cacheHits, p.cacheMisses = hits, misses
}

// Probe returns the availability state per requested datacenter for
// planCode+options under account. Datacenters absent from OVH's response
// are reported AvailabilityUnknown.
func (p *Prober) Probe(ctx context.Context, account models.Account, planCode string, options []string, datacenters []string) (map[string]models.AvailabilityState, error) {
	fingerprint := models.Fingerprint(options)
	key := probeCacheKey{region: account.EndpointRegion, planCode: planCode, fingerprint: fingerprint}

	if reading, ok := p.lookupCache(key); ok {
		return subset(reading.States, datacenters), nil
	}

	reading, err := p.fetch(ctx, account, planCode, fingerprint)
	if err != nil {
		return nil, err
	}

	p.storeCache(key, reading)
	return subset(reading.States, datacenters), nil
}

func (p *Prober) lookupCache(key probeCacheKey) (models.AvailabilityReading, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[key]
	if !ok || time.Since(entry.cachedAt) > probeCacheTTL {
		if p.cacheMisses != nil {
			p.cacheMisses()
		}
		return models.AvailabilityReading{}, false
	}
	if p.cacheHits != nil {
		p.cacheHits()
	}
	return entry.reading, true
}

func (p *Prober) storeCache(key probeCacheKey, reading models.AvailabilityReading) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.cache) >= probeCacheMaxEntry {
		p.evictOldestLocked()
	}
	p.cache[key] = probeCacheEntry{reading: reading, cachedAt: reading.FetchedAt}
}

// evictOldestLocked drops the single oldest entry. Called with mu held.
func (p *Prober) evictOldestLocked() {
	var oldestKey probeCacheKey
	var oldestAt time.Time
	first := true
	for k, v := range p.cache {
		if first || v.cachedAt.Before(oldestAt) {
			oldestKey, oldestAt, first = k, v.cachedAt, false
		}
	}
	if !first {
		delete(p.cache, oldestKey)
	}
}

func (p *Prober) fetch(ctx context.Context, account models.Account, planCode, fingerprint string) (models.AvailabilityReading, error) {
	c := p.pool.For(account)
	path := fmt.Sprintf("/dedicated/server/availabilities?planCode=%s", planCode)
	_, body, err := c.Do(ctx, "GET", path, nil)
	if err != nil {
		return models.AvailabilityReading{}, err
	}

	var rows []availabilityRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return models.AvailabilityReading{}, fmt.Errorf("decode availability response: %w", err)
	}

	states := make(map[string]models.AvailabilityState)
	for _, row := range rows {
		if row.PlanCode != planCode {
			continue
		}
		if models.Fingerprint(optionsFromFqn(row.Fqn)) != fingerprint {
			continue
		}
		for _, dc := range row.Datacenters {
			states[dc.Datacenter] = models.MapAvailabilityBucket(dc.Availability)
		}
	}

	return models.AvailabilityReading{
		PlanCode:    planCode,
		Fingerprint: fingerprint,
		States:      states,
		FetchedAt:   time.Now(),
	}, nil
}

// optionsFromFqn best-effort decomposes OVH's fully-qualified name into the
// option codes that follow the base plan code, so fetched rows can be
// matched back to a fingerprint computed from a task's option list.
func optionsFromFqn(fqn string) []string {
	parts := splitNonEmpty(fqn, '.')
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func subset(states map[string]models.AvailabilityState, datacenters []string) map[string]models.AvailabilityState {
	if len(datacenters) == 0 {
		return states
	}
	out := make(map[string]models.AvailabilityState, len(datacenters))
	for _, dc := range datacenters {
		state, ok := states[dc]
		if !ok {
			state = models.AvailabilityUnknown
		}
		out[dc] = state
	}
	return out
}
