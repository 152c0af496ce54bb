package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsStampsBurnKey(t *testing.T) {
	require.True(t, IsStampsBurnKey("022222222222222222222222222222222222222222222222222222222222222222"))
	require.True(t, IsStampsBurnKey("030303030303030303030303030303030303030303030303030303030303030302"))
	require.False(t, IsStampsBurnKey("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"))
}

func TestIsProofOfBurnKey(t *testing.T) {
	require.True(t, IsProofOfBurnKey("02"+repeat("ff", 32)))
	require.True(t, IsProofOfBurnKey("03"+repeat("ff", 32)))
	require.True(t, IsProofOfBurnKey("04"+repeat("ff", 64)))
	require.True(t, IsProofOfBurnKey(repeat("ff", 32)))
	require.False(t, IsProofOfBurnKey("02"+repeat("ff", 31)+"00"))
}

func TestClassifyStampsBurn(t *testing.T) {
	kind, ok := ClassifyStampsBurn("033333333333333333333333333333333333333333333333333333333333333333")
	require.True(t, ok)
	require.Equal(t, BurnStamps33, kind)

	_, ok = ClassifyStampsBurn("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	require.False(t, ok)
}

func TestClassifyBurnPattern(t *testing.T) {
	kind, ok := ClassifyBurnPattern("020202020202020202020202020202020202020202020202020202020202020202")
	require.True(t, ok)
	require.Equal(t, BurnStamps0202, kind)

	kind, ok = ClassifyBurnPattern("02" + repeat("ff", 32))
	require.True(t, ok)
	require.Equal(t, BurnProofOfBurn, kind)

	kind, ok = ClassifyBurnPattern("02" + repeat("aa", 32))
	require.True(t, ok)
	require.Equal(t, BurnUnknown, kind)

	_, ok = ClassifyBurnPattern("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	require.False(t, ok)
}

func TestIsSuspiciousBurnPattern(t *testing.T) {
	require.True(t, IsSuspiciousBurnPattern("02"+repeat("aa", 32)))
	require.False(t, IsSuspiciousBurnPattern("022222222222222222222222222222222222222222222222222222222222222222"))
	require.False(t, IsSuspiciousBurnPattern("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"))
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
