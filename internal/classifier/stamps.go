package classifier

import (
	"bytes"
	"encoding/hex"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// StampsDetector recognizes Bitcoin Stamps payloads, either via a
// Stamps-specific burn-key pattern or an ARC4-decrypted "STAMP:"/"stamp:"
// prefix (§4.3.3). Must run before Counterparty: a Stamps payload can be
// embedded inside an otherwise valid Counterparty envelope.
type StampsDetector struct{}

func (StampsDetector) Name() string { return "stamps" }

var (
	stampsPrefixUpper = []byte("STAMP:")
	stampsPrefixLower = []byte("stamp:")
	cntrprtyPrefix    = []byte("CNTRPRTY")
)

func (StampsDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	if !hasStampsShape(outputs) {
		return nil
	}

	hasBurnKey := anyStampsBurnKey(outputs)

	concatenated := concatenatedPubkeySlots(outputs)
	key, keyErr := decode.ARC4KeyFromTxID(tx.FirstInputTxID)

	var decrypted []byte
	matchedPrefix := false
	if keyErr == nil {
		if d, err := decode.ARC4(concatenated, key); err == nil {
			decrypted = d
			matchedPrefix = bytes.HasPrefix(decrypted, stampsPrefixUpper) || bytes.HasPrefix(decrypted, stampsPrefixLower)
		}
	}

	if !matchedPrefix && !hasBurnKey {
		return nil
	}

	transport := model.TransportPure
	variant := "StampsUnknown"
	contentType := "application/octet-stream"

	if matchedPrefix {
		payload := decrypted[len(stampsPrefixUpper):]
		if bytes.HasPrefix(payload, cntrprtyPrefix) {
			transport = model.TransportCounterparty
		}
		variant, contentType = stampsVariant(payload)
	}

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		outs = append(outs, buildOutputClassificationWithPolicy(out, model.ProtocolBitcoinStamps, variant, contentType, true))
	}

	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolBitcoinStamps,
			Variant:                variant,
			ContentType:            contentType,
			TransportProtocol:      transport,
			ProtocolSignatureFound: matchedPrefix,
		},
		Outputs: outs,
	}
}

func hasStampsShape(outputs []model.Output) bool {
	for _, out := range outputs {
		if out.Multisig != nil && out.Multisig.RequiredSigs == 1 && out.Multisig.TotalPubkeys == 3 {
			return true
		}
	}
	return false
}

func anyStampsBurnKey(outputs []model.Output) bool {
	for _, pk := range allPubkeys(outputs) {
		if decode.IsStampsBurnKey(hex.EncodeToString(pk)) {
			return true
		}
	}
	return false
}

// stampsVariant sniffs the post-"STAMP:" payload in §4.3.3's priority
// order, extended per §2C with a PDF check, a bare-XML check, and a
// printable-ASCII-ratio fallback ahead of the final StampsData/
// octet-stream default.
func stampsVariant(payload []byte) (variant, contentType string) {
	if format, ok := decode.DetectCompressionFormat(payload); ok {
		return "StampsCompressed", format
	}
	if format, ok := decode.DetectImageFormat(payload); ok {
		return "StampsClassic", string(format)
	}
	if magic, ok := decode.DetectBinaryFileMagic(payload); ok && magic == decode.MagicPDF {
		return "StampsClassic", string(magic)
	}
	if variant, isJSON := decode.DetectJSONProtocolField(payload); isJSON {
		switch variant {
		case "SRC20":
			return "StampsSRC20", "application/json"
		case "SRC721":
			return "StampsSRC721", "application/json"
		case "SRC101":
			return "StampsSRC101", "application/json"
		default:
			return "StampsData", "application/json"
		}
	}
	if decode.DetectHTML(payload) {
		return "StampsHTML", "text/html"
	}
	if decode.DetectXML(payload) {
		return "StampsData", "application/xml"
	}
	if decode.IsLikelyText(payload, 0.8, 10) {
		return "StampsData", "text/plain"
	}
	return "StampsData", "application/octet-stream"
}
