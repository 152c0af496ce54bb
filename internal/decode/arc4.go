package decode

import (
	"crypto/rc4"
	"encoding/hex"
	"fmt"
)

// ARC4KeyFromTxID decodes a txid's hex string into the raw bytes used as an
// ARC4 key by Stamps and Counterparty (§ GLOSSARY "First-input txid").
func ARC4KeyFromTxID(txidHex string) ([]byte, error) {
	key, err := hex.DecodeString(txidHex)
	if err != nil {
		return nil, fmt.Errorf("decode txid as arc4 key: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty arc4 key")
	}
	return key, nil
}

// ARC4 is a symmetric stream cipher; the same call decrypts or encrypts.
// Backed by the standard library's crypto/rc4, the exact algorithm
// original_source's hand-rolled KSA+PRGA implements.
func ARC4(data, key []byte) ([]byte, error) {
	if len(key) == 0 || len(data) == 0 {
		return nil, fmt.Errorf("arc4: empty key or data")
	}
	cipher, err := rc4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("arc4: %w", err)
	}
	out := make([]byte, len(data))
	cipher.XORKeyStream(out, data)
	return out, nil
}
