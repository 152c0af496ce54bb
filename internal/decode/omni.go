package decode

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// OmniPacketLen is the size of one Omni Class-B data packet: a compressed
// pubkey's 31 payload bytes (bytes 1..31, dropping the 0x02/0x03 prefix and
// the trailing byte).
const OmniPacketLen = 31

// OmniPacketChunk extracts the 31-byte Omni/Counterparty payload chunk from
// a compressed (33-byte) pubkey. Uncompressed pubkeys carry no Omni payload.
func OmniPacketChunk(pubkey []byte) ([]byte, bool) {
	if len(pubkey) != 33 {
		return nil, false
	}
	return pubkey[1:32], true
}

// OmniDeobfuscate tries sequence numbers 1..255 against a single obfuscated
// packet, returning the deobfuscated bytes and the sequence number that
// self-verified (its own first byte equals the sequence it was derived
// with), or ok=false if no sequence verified.
//
// The keystream for sequence n is the first 31 bytes of the digest produced
// by hashing the sender's address with SHA-256, then re-hashing the
// previous digest's uppercase-hex encoding n-1 more times.
func OmniDeobfuscate(senderAddress string, obfuscated []byte) (data []byte, sequence int, ok bool) {
	if len(obfuscated) != OmniPacketLen {
		return nil, 0, false
	}

	hashInput := []byte(senderAddress)
	for seq := 1; seq <= 255; seq++ {
		digest := sha256.Sum256(hashInput)
		keystream := digest[:OmniPacketLen]

		deobfuscated := make([]byte, OmniPacketLen)
		for i := range deobfuscated {
			deobfuscated[i] = obfuscated[i] ^ keystream[i]
		}
		if int(deobfuscated[0]) == seq {
			return deobfuscated, seq, true
		}

		hashInput = []byte(bytes.ToUpper([]byte(hex.EncodeToString(digest[:]))))
	}
	return nil, 0, false
}

// OmniHeader is the 4-byte header carried after reassembling deobfuscated
// packets in sequence order (minus each packet's leading sequence byte).
type OmniHeader struct {
	Version     uint16
	MessageType uint16
}

// ParseOmniMessage reads the 4-byte {version, message_type} header from
// reassembled Omni payload data.
func ParseOmniMessage(data []byte) (OmniHeader, []byte, bool) {
	if len(data) < 4 {
		return OmniHeader{}, nil, false
	}
	hdr := OmniHeader{
		Version:     uint16(data[0])<<8 | uint16(data[1]),
		MessageType: uint16(data[2])<<8 | uint16(data[3]),
	}
	return hdr, data[4:], true
}
