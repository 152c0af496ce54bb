package classifier

import (
	"bytes"
	"encoding/hex"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// OpReturnSignalledDetector recognizes protocols signalled by the
// transaction's OP_RETURN output rather than by its P2MS pubkey content
// (§4.3.8). Must run before DataStorage: these are specific protocols that
// would otherwise be swallowed as generic data sniffing.
type OpReturnSignalledDetector struct{}

func (OpReturnSignalledDetector) Name() string { return "opreturn_signalled" }

var protocol47930Marker = []byte{0xbb, 0x3a}

func (OpReturnSignalledDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	payload, err := hex.DecodeString(tx.OpReturnHex)
	if err != nil || len(payload) == 0 {
		return nil
	}

	twoOfTwo := hasShape(outputs, 2, 2)

	variant := ""
	switch {
	case twoOfTwo && bytes.HasPrefix(payload, protocol47930Marker):
		variant = "Protocol47930"
	case twoOfTwo && (bytes.Contains(payload, []byte("CLIPPERZ REG")) || bytes.Contains(payload, []byte("CLIPPERZ 1.0 REG"))):
		variant = "CLIPPERZ"
	case isGenericASCIISignal(payload):
		variant = "GenericASCII"
	default:
		return nil
	}

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		outs = append(outs, buildOutputClassification(out, model.ProtocolOpReturnSignalled, variant, "application/octet-stream"))
	}
	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolOpReturnSignalled,
			Variant:                variant,
			ContentType:            "application/octet-stream",
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: true,
		},
		Outputs: outs,
	}
}

func hasShape(outputs []model.Output, m, n int) bool {
	for _, out := range outputs {
		if out.Multisig != nil && out.Multisig.RequiredSigs == m && out.Multisig.TotalPubkeys == n {
			return true
		}
	}
	return false
}

// isGenericASCIISignal matches either a short, mostly-printable OP_RETURN
// payload or one containing a run of ≥5 consecutive printable characters.
func isGenericASCIISignal(payload []byte) bool {
	if len(payload) <= 40 && decode.PrintableASCIIRatio(payload) >= 0.80 {
		return true
	}
	return longestPrintableRun(payload) >= 5
}

func longestPrintableRun(data []byte) int {
	best, cur := 0, 0
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}
