package rpcnode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextBackoff(t *testing.T) {
	require.Equal(t, 200*time.Millisecond, NextBackoff(100*time.Millisecond, 2.0, 30*time.Second))
	require.Equal(t, 30*time.Second, NextBackoff(25*time.Second, 2.0, 30*time.Second))
	require.Equal(t, 30*time.Second, NextBackoff(30*time.Second, 2.0, 30*time.Second))
}
