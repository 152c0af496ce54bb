package classifier

import (
	"bytes"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// AsciiIdentifierDetector recognizes a small set of known ASCII identifiers
// pinned to specific pubkey slots (§4.3.5). Position is strict: the same
// identifier at the wrong slot is not evidence.
type AsciiIdentifierDetector struct{}

func (AsciiIdentifierDetector) Name() string { return "ascii_identifier" }

func (AsciiIdentifierDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	for i, out := range outputs {
		if out.Multisig == nil {
			continue
		}
		slot0 := pubkeySlot(outputs, i, 0)
		slot1 := pubkeySlot(outputs, i, 1)

		variant := ""
		switch {
		case slotHasASCII(slot0, 1, "TB0001") || slotHasASCII(slot1, 1, "TB0001"):
			variant = "AsciiTB0001"
		case slotHasASCII(slot0, 1, "TEST01"):
			variant = "AsciiTEST01"
		case bytes.Contains(slot1, []byte("METROXMN")):
			variant = "AsciiMETROXMN"
		case slotHasAllowlisted(slot0):
			variant = "AsciiAllowlisted"
		default:
			continue
		}

		outs := make([]model.P2MSOutputClassification, 0, len(outputs))
		for _, o := range outputs {
			outs = append(outs, buildOutputClassification(o, model.ProtocolAsciiIdentifier, variant, "text/plain"))
		}
		return &model.Classification{
			Transaction: model.TransactionClassification{
				TxID:                   tx.TxID,
				Protocol:               model.ProtocolAsciiIdentifier,
				Variant:                variant,
				ContentType:            "text/plain",
				TransportProtocol:      model.TransportPure,
				ProtocolSignatureFound: true,
			},
			Outputs: outs,
		}
	}
	return nil
}

var allowlistedIdentifiers = [][]byte{[]byte("NEWBCOIN"), []byte("PRVCY")}

func slotHasASCII(slot []byte, offset int, identifier string) bool {
	if len(slot) < offset+len(identifier) {
		return false
	}
	return bytes.Equal(slot[offset:offset+len(identifier)], []byte(identifier))
}

func slotHasAllowlisted(slot0 []byte) bool {
	head := slot0
	if len(head) > 20 {
		head = head[:20]
	}
	for _, id := range allowlistedIdentifiers {
		if bytes.Contains(head, id) {
			return true
		}
	}
	return false
}
