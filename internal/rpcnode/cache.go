package rpcnode

import (
	"sync"

	"github.com/btcsuite/btcd/btcjson"
)

// TxCache is a thread-safe, hit/miss-counted cache of previously-fetched raw
// transactions, keyed by txid. The Enricher uses it to avoid re-fetching a
// previous output's transaction once per spending input.
type TxCache struct {
	mu     sync.Mutex
	byTxID map[string]*btcjson.TxRawResult
	hits   uint64
	misses uint64
}

// NewTxCache constructs an empty transaction cache.
func NewTxCache() *TxCache {
	return &TxCache{byTxID: make(map[string]*btcjson.TxRawResult)}
}

// Get returns the cached transaction for txid, if present.
func (c *TxCache) Get(txid string) (*btcjson.TxRawResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.byTxID[txid]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return tx, ok
}

// Put stores tx under txid.
func (c *TxCache) Put(txid string, tx *btcjson.TxRawResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byTxID[txid] = tx
}

// CacheStats reports cumulative cache hit/miss counts.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// Stats returns the cache's current hit/miss counters.
func (c *TxCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses}
}

// HitRate returns the fraction of lookups that were hits, or 0 if there have
// been no lookups yet.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
