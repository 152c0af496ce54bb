package classifier

import (
	"encoding/hex"

	"github.com/goodnatureofminers/p2ms-classifier/internal/ecvalidate"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// LikelyLegitimateMultisigDetector is the last cascade member before
// Unknown: every pubkey is a valid EC point and no earlier detector
// matched (§4.3.11).
type LikelyLegitimateMultisigDetector struct{}

func (LikelyLegitimateMultisigDetector) Name() string { return "likely_legitimate_multisig" }

func (LikelyLegitimateMultisigDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	if anyInvalidECPoint(outputs) {
		return nil
	}

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		variant := legitimateVariant(out)
		outs = append(outs, buildOutputClassification(out, model.ProtocolLikelyLegitimateMultisig, variant, ""))
	}

	txVariant := "LegitimateMultisig"
	if len(outs) > 0 {
		txVariant = outs[0].Variant
	}

	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolLikelyLegitimateMultisig,
			Variant:                txVariant,
			ContentType:            "",
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: false,
		},
		Outputs: outs,
	}
}

// legitimateVariant distinguishes a plain legitimate multisig from one
// carrying duplicate valid keys or null-padded slots (§4.3.11, §4.4A).
func legitimateVariant(out model.Output) string {
	if out.Multisig == nil {
		return "LegitimateMultisig"
	}
	seen := make(map[string]bool)
	nullCount, realCount := 0, 0
	dupe := false
	for _, pk := range out.Multisig.Pubkeys {
		switch ecvalidate.Validate(pk) {
		case ecvalidate.Null:
			nullCount++
		default:
			realCount++
			key := hex.EncodeToString(pk)
			if seen[key] {
				dupe = true
			}
			seen[key] = true
		}
	}
	switch {
	case nullCount > 0 && realCount > 0:
		return "LegitimateMultisigWithNullKey"
	case dupe:
		return "LegitimateMultisigDupeKeys"
	default:
		return "LegitimateMultisig"
	}
}
