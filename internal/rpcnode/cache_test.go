package rpcnode

import (
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/stretchr/testify/require"
)

func TestTxCache_MissThenHit(t *testing.T) {
	c := NewTxCache()
	txid := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"

	_, ok := c.Get(txid)
	require.False(t, ok)

	c.Put(txid, &btcjson.TxRawResult{Txid: txid})

	tx, ok := c.Get(txid)
	require.True(t, ok)
	require.Equal(t, txid, tx.Txid)

	stats := c.Stats()
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(1), stats.Misses)
	require.InDelta(t, 0.5, stats.HitRate(), 0.0001)
}

func TestCacheStats_HitRateEmpty(t *testing.T) {
	require.Equal(t, float64(0), CacheStats{}.HitRate())
}
