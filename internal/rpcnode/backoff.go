package rpcnode

import "time"

// NextBackoff implements exponential backoff with a hard cap:
// new = min(current * multiplier, max).
func NextBackoff(current time.Duration, multiplier float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > max {
		return max
	}
	return next
}
