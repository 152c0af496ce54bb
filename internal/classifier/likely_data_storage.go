package classifier

import (
	"github.com/goodnatureofminers/p2ms-classifier/internal/ecvalidate"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// LikelyDataStorageDetector covers the softer, shape-based signals of data
// embedding: an off-curve pubkey, an unusually high P2MS output count, or
// every P2MS output being dust (§4.3.10).
type LikelyDataStorageDetector struct{}

func (LikelyDataStorageDetector) Name() string { return "likely_data_storage" }

const (
	likelyDataStorageMinOutputs = 5
	likelyDataStorageDustSats   = 1000
)

func (LikelyDataStorageDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	invalidECPoint := anyInvalidECPoint(outputs)

	variant := ""
	switch {
	case invalidECPoint:
		variant = "InvalidECPoint"
	case len(outputs) >= likelyDataStorageMinOutputs:
		variant = "HighOutputCount"
	case allOutputsDust(outputs, likelyDataStorageDustSats):
		variant = "DustAmount"
	default:
		return nil
	}

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		outs = append(outs, likelyDataStorageOutputClassification(out, variant, invalidECPoint))
	}
	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolLikelyDataStorage,
			Variant:                variant,
			ContentType:            "application/octet-stream",
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: false,
		},
		Outputs: outs,
	}
}

// likelyDataStorageOutputClassification applies §4.4A's InvalidECPoint
// override: an output with at least one failing pubkey always reports
// spendability_reason = invalid_ec_point, even when real_keys still clears
// M using the remaining valid keys.
func likelyDataStorageOutputClassification(out model.Output, variant string, txHasInvalidECPoint bool) model.P2MSOutputClassification {
	c := buildOutputClassification(out, model.ProtocolLikelyDataStorage, variant, "application/octet-stream")
	if txHasInvalidECPoint && c.DataKeyCount > 0 {
		c.SpendabilityReason = model.ReasonInvalidECPoint
	}
	return c
}

func anyInvalidECPoint(outputs []model.Output) bool {
	for _, out := range outputs {
		if out.Multisig == nil {
			continue
		}
		for _, pk := range out.Multisig.Pubkeys {
			if ecvalidate.Validate(pk) == ecvalidate.Invalid {
				return true
			}
		}
	}
	return false
}

func allOutputsDust(outputs []model.Output, maxSats int64) bool {
	if len(outputs) == 0 {
		return false
	}
	for _, out := range outputs {
		if out.Amount > maxSats {
			return false
		}
	}
	return true
}
