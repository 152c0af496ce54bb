package ecvalidate

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func generatorMultiple(t *testing.T, scalar uint64) []byte {
	t.Helper()
	buf := make([]byte, 32)
	for i := 0; i < 8; i++ {
		buf[31-i] = byte(scalar >> (8 * i))
	}
	_, pub := btcec.PrivKeyFromBytes(buf)
	return pub.SerializeCompressed()
}

func TestValidate_GeneratorMultiplesAccepted(t *testing.T) {
	for _, scalar := range []uint64{1, 2, 3, 42, 123456} {
		pk := generatorMultiple(t, scalar)
		require.Equal(t, Valid, Validate(pk), "scalar %d", scalar)
	}
}

func TestValidate_NullKey(t *testing.T) {
	require.Equal(t, Null, Validate(make([]byte, 33)))
	require.Equal(t, Null, Validate(make([]byte, 65)))
}

func TestValidate_BadLength(t *testing.T) {
	require.Equal(t, Invalid, Validate(make([]byte, 20)))
}

func TestValidate_InvalidPoint(t *testing.T) {
	bad := generatorMultiple(t, 1)
	bad[32] ^= 0xFF // corrupt x to almost certainly move off-curve
	require.Equal(t, Invalid, Validate(bad))
}
