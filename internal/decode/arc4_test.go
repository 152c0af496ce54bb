package decode

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestARC4_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		key := make([]byte, 1+rng.Intn(32))
		rng.Read(key)
		data := make([]byte, 1+rng.Intn(256))
		rng.Read(data)

		encrypted, err := ARC4(data, key)
		require.NoError(t, err)
		decrypted, err := ARC4(encrypted, key)
		require.NoError(t, err)
		require.Equal(t, data, decrypted)
	}
}

func TestARC4KeyFromTxID(t *testing.T) {
	txid := "abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890"
	// this txid is 64 hex chars, so the key is its 32 raw decoded bytes;
	// non-hex input must be rejected.
	key, err := ARC4KeyFromTxID(txid)
	require.NoError(t, err)
	require.Equal(t, len(txid)/2, len(key))

	_, err = ARC4KeyFromTxID("not-hex")
	require.Error(t, err)
}
