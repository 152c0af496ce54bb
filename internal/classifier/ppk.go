package classifier

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// PPkDetector recognizes PPk payloads, signalled by a fixed pubkey
// occupying slot 2 of a P2MS output (§4.3.6).
type PPkDetector struct{}

func (PPkDetector) Name() string { return "ppk" }

const ppkMarkerPubkeyHex = "0320a0de360cc2ae8672db7d557086a4e7c8eca062c0a5a4ba9922dee0aacf3e12"

func (PPkDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	matched := false
	for i := range outputs {
		slot2 := pubkeySlot(outputs, i, 2)
		if len(slot2) > 0 && hex.EncodeToString(slot2) == ppkMarkerPubkeyHex {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}

	combined := concatenatedPubkeySlots(outputs)
	if opReturn, err := hex.DecodeString(tx.OpReturnHex); err == nil {
		combined = append(combined, opReturn...)
	}

	variant, contentType := ppkVariant(combined)

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		outs = append(outs, buildOutputClassification(out, model.ProtocolPPk, variant, contentType))
	}

	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolPPk,
			Variant:                variant,
			ContentType:            contentType,
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: true,
		},
		Outputs: outs,
	}
}

// ppkVariant decides among PPkProfile, PPkRegistration, PPkMessage, and
// PPkUnknown per §4.3.6's cascade.
func ppkVariant(combined []byte) (variant, contentType string) {
	if isPPkProfile(combined) {
		return "PPkProfile", "application/json"
	}
	if isQuotedDecimal(combined) {
		return "PPkRegistration", "text/plain"
	}
	if bytes.Contains(combined, []byte("PPk")) || bytes.Contains(combined, []byte("ppk")) || decode.IsLikelyText(combined, 0.80, 1) {
		return "PPkMessage", "text/plain"
	}
	return "PPkUnknown", "application/octet-stream"
}

// isPPkProfile checks for an "RT" TLV header: two bytes "RT", a length byte
// that must equal 0x20 (a false-positive filter), then JSON.
func isPPkProfile(data []byte) bool {
	if len(data) < 3 || data[0] != 'R' || data[1] != 'T' || data[2] != 0x20 {
		return false
	}
	_, isJSON := decode.DetectJSONProtocolField(data[3:])
	return isJSON
}

func isQuotedDecimal(data []byte) bool {
	if len(data) < 3 || data[0] != '"' || data[len(data)-1] != '"' {
		return false
	}
	_, err := strconv.ParseInt(string(data[1:len(data)-1]), 10, 64)
	return err == nil
}
