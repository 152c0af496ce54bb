// Package ecvalidate decides whether a 33- or 65-byte pubkey encodes a point
// on the secp256k1 curve, distinguishing the all-zero "null key" padding
// convention from a genuine invalid point.
package ecvalidate

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Status is the outcome of validating a single pubkey slot.
type Status int

const (
	// Valid means the bytes decode to a point on secp256k1.
	Valid Status = iota
	// Null means the slot is the distinguished all-zero padding pattern.
	Null
	// Invalid means the bytes are not a valid encoding of a curve point; a
	// pubkey in this state is a "data key".
	Invalid
)

// Validate checks pubkey membership in the secp256k1 group. btcec.ParsePubKey
// already performs the length/prefix checks and the curve-equation solve for
// both 33-byte compressed and 65-byte uncompressed encodings; the null-key
// case is checked first since it is not a distinguished error from
// ParsePubKey.
func Validate(pubkey []byte) Status {
	if isNullKey(pubkey) {
		return Null
	}
	if len(pubkey) != 33 && len(pubkey) != 65 {
		return Invalid
	}
	if _, err := btcec.ParsePubKey(pubkey); err != nil {
		return Invalid
	}
	return Valid
}

func isNullKey(pubkey []byte) bool {
	if len(pubkey) != 33 && len(pubkey) != 65 {
		return false
	}
	return bytes.Equal(pubkey, make([]byte, len(pubkey)))
}
