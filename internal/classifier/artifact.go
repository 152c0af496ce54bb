package classifier

import (
	"encoding/hex"
	"sort"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// DecodedArtifact re-derives the raw decoded payload for an
// already-classified transaction, for cmd/decode-artifacts. It performs no
// classification of its own: protocol selects which decoding path to
// re-run, mirroring exactly what the matching Detector did.
func DecodedArtifact(tx model.EnrichedTransaction, outputs []model.Output, protocol model.Protocol) (data []byte, ok bool) {
	switch protocol {
	case model.ProtocolOmniLayer:
		packets := omniPackets(tx.SenderAddress, outputs)
		sort.Slice(packets, func(i, j int) bool { return packets[i].sequence < packets[j].sequence })
		var combined []byte
		for _, p := range packets {
			combined = append(combined, p.payload...)
		}
		return combined, len(combined) > 0
	case model.ProtocolBitcoinStamps, model.ProtocolCounterparty:
		key, err := decode.ARC4KeyFromTxID(tx.FirstInputTxID)
		if err != nil {
			return nil, false
		}
		decrypted, err := decode.ARC4(concatenatedPubkeySlots(outputs), key)
		if err != nil {
			return nil, false
		}
		return decrypted, true
	case model.ProtocolDataStorage, model.ProtocolLikelyDataStorage:
		combined := concatenatedPubkeySlots(outputs)
		return combined, len(combined) > 0
	case model.ProtocolPPk:
		combined := concatenatedPubkeySlots(outputs)
		if opReturn, err := hex.DecodeString(tx.OpReturnHex); err == nil {
			combined = append(combined, opReturn...)
		}
		return combined, true
	default:
		return nil, false
	}
}

// ArtifactExtension maps a content type to the file extension
// cmd/decode-artifacts uses for the decoded payload it writes.
func ArtifactExtension(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	case "image/svg+xml":
		return "svg"
	case "application/json":
		return "json"
	case "text/html":
		return "html"
	case "text/plain":
		return "txt"
	case "application/gzip", "application/x-tar", "application/zlib", "application/zip",
		"application/x-rar-compressed", "application/x-7z-compressed", "application/x-bzip2":
		return "bin"
	default:
		return "dat"
	}
}

// ArtifactCategory buckets a content type into the
// images/json/html/compressed/data directory DecodedArtifact's output goes
// under.
func ArtifactCategory(contentType string) string {
	switch {
	case contentType == "application/json":
		return "json"
	case contentType == "text/html":
		return "html"
	case len(contentType) >= 6 && contentType[:6] == "image/":
		return "images"
	case contentType == "application/gzip" || contentType == "application/zlib" ||
		contentType == "application/zip" || contentType == "application/x-tar" ||
		contentType == "application/x-rar-compressed" || contentType == "application/x-7z-compressed" ||
		contentType == "application/x-bzip2":
		return "compressed"
	default:
		return "data"
	}
}
