package classifier

import (
	"encoding/hex"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/ecvalidate"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// spendResult is the outcome of scoring one P2MS output's pubkey slots
// against the M-of-N threshold (§4.4, §4.4A).
type spendResult struct {
	realKeys int
	burnKeys int
	dataKeys int
	spendable bool
	reason   model.SpendabilityReason
}

// analyzeOutput applies the generic spendability rule: realKeys counts
// pubkeys that pass the EC Validator and are not null-padded; the output is
// spendable iff realKeys >= m. When excludeBurnFromReal is set (the
// Stamps/Counterparty refinement, §4.4A), a pubkey matching a known burn
// pattern is removed from realKeys even if it also happens to validate as a
// curve point.
func analyzeOutput(pubkeys [][]byte, m int, excludeBurnFromReal bool) spendResult {
	var realKeys, burnKeys, dataKeys, nullKeys int

	for _, pk := range pubkeys {
		_, isBurn := decode.ClassifyBurnPattern(hex.EncodeToString(pk))
		if isBurn {
			burnKeys++
		}

		switch ecvalidate.Validate(pk) {
		case ecvalidate.Null:
			nullKeys++
		case ecvalidate.Invalid:
			dataKeys++
		case ecvalidate.Valid:
			if isBurn && excludeBurnFromReal {
				continue
			}
			realKeys++
		}
	}

	res := spendResult{realKeys: realKeys, burnKeys: burnKeys, dataKeys: dataKeys}
	res.spendable = realKeys >= m
	res.reason = spendabilityReason(res, nullKeys, len(pubkeys), excludeBurnFromReal)
	return res
}

func spendabilityReason(res spendResult, nullKeys, total int, excludeBurnFromReal bool) model.SpendabilityReason {
	if res.spendable {
		return model.ReasonSufficientRealKeys
	}
	if excludeBurnFromReal && res.burnKeys > 0 {
		return model.ReasonBurnKeysBlockThreshold
	}
	if nullKeys == total {
		return model.ReasonNullKeysOnly
	}
	if res.dataKeys > 0 {
		return model.ReasonInvalidECPoint
	}
	return model.ReasonInsufficientRealKeys
}

// buildOutputClassification assembles a P2MSOutputClassification for out
// using the generic spendability rule (§4.4), the default every detector
// other than Stamps/Counterparty/LikelyDataStorage uses.
func buildOutputClassification(out model.Output, protocol model.Protocol, variant, contentType string) model.P2MSOutputClassification {
	return buildOutputClassificationWithPolicy(out, protocol, variant, contentType, false)
}

// buildOutputClassificationWithPolicy is buildOutputClassification with the
// Stamps/Counterparty burn-key exclusion refinement (§4.4A) available to
// detectors that need it.
func buildOutputClassificationWithPolicy(out model.Output, protocol model.Protocol, variant, contentType string, excludeBurnFromReal bool) model.P2MSOutputClassification {
	m := 1
	var pubkeys [][]byte
	if out.Multisig != nil {
		m = out.Multisig.RequiredSigs
		pubkeys = out.Multisig.Pubkeys
	}
	res := analyzeOutput(pubkeys, m, excludeBurnFromReal)
	spendable := res.spendable
	return model.P2MSOutputClassification{
		TxID:               out.TxID,
		Vout:               out.Vout,
		Protocol:           protocol,
		Variant:            variant,
		ContentType:        contentType,
		IsSpendable:        &spendable,
		SpendabilityReason: res.reason,
		RealPubkeyCount:    res.realKeys,
		BurnKeyCount:       res.burnKeys,
		DataKeyCount:       res.dataKeys,
	}
}
