package aggregate

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultTrendTTL = 5 * time.Minute

// trendCacheSize bounds the number of (year, topN) payloads kept; the
// working set is a handful of years so this never evicts in practice.
const trendCacheSize = 32

// TrendCache holds computed trend payloads per (year, topN) key with a
// TTL. An expired entry reads as a miss. The underlying LRU serializes
// concurrent access; writes are last-write-wins.
type TrendCache struct {
	lru *expirable.LRU[string, TrendsPayload]
}

func NewTrendCache(ttl time.Duration) *TrendCache {
	if ttl <= 0 {
		ttl = defaultTrendTTL
	}
	return &TrendCache{lru: expirable.NewLRU[string, TrendsPayload](trendCacheSize, nil, ttl)}
}

func (c *TrendCache) Get(year, topN int) (TrendsPayload, bool) {
	return c.lru.Get(trendKey(year, topN))
}

func (c *TrendCache) Set(payload TrendsPayload) {
	c.lru.Add(trendKey(payload.Year, payload.TopN), payload)
}

func trendKey(year, topN int) string {
	return fmt.Sprintf("monthly_event_trends:%d:top%d", year, topN)
}
