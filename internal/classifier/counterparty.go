package classifier

import (
	"bytes"
	"encoding/json"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// CounterpartyDetector recognizes Counterparty envelopes ARC4-decrypted from
// the concatenated pubkey-slot payload (§4.3.4). Must run after Stamps: a
// Stamps payload can be embedded inside an otherwise-matching Counterparty
// envelope and must be claimed first.
//
// EnableTier2 opts the {2-of-2, 2-of-3, 3-of-3} multisig shapes into the
// match; the always-on tier-1 shapes are {1-of-3, 1-of-2}. Zero value keeps
// tier-2 disabled, matching §4.3.4's "when opted in".
type CounterpartyDetector struct {
	EnableTier2 bool
}

func (CounterpartyDetector) Name() string { return "counterparty" }

var cntrprtySignature = []byte("CNTRPRTY")

func (d CounterpartyDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	matching := counterpartyShapedOutputs(outputs, d.EnableTier2)
	if len(matching) == 0 {
		return nil
	}

	key, err := decode.ARC4KeyFromTxID(tx.FirstInputTxID)
	if err != nil {
		return nil
	}
	decrypted, err := decode.ARC4(concatenatedPubkeySlots(outputs), key)
	if err != nil {
		return nil
	}

	sigOffset := -1
	switch {
	case bytes.HasPrefix(decrypted, cntrprtySignature):
		sigOffset = 0
	case len(decrypted) > 1 && bytes.HasPrefix(decrypted[1:], cntrprtySignature):
		sigOffset = 1
	}
	if sigOffset < 0 {
		return nil
	}

	variant := "CounterpartyUnknown"
	numericType := -1
	typeOffset := sigOffset + len(cntrprtySignature)
	if typeOffset < len(decrypted) {
		numericType = int(decrypted[typeOffset])
		variant = counterpartyVariant(decrypted[typeOffset])
	}

	contentType := "application/octet-stream"
	metadataJSON := ""
	if numericType >= 0 {
		if b, err := json.Marshal(map[string]int{"numeric_type": numericType}); err == nil {
			metadataJSON = string(b)
		}
	}

	matchingSet := make(map[int]bool, len(matching))
	for _, idx := range matching {
		matchingSet[idx] = true
	}

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for i, out := range outputs {
		if !matchingSet[i] {
			outs = append(outs, model.P2MSOutputClassification{
				TxID:     tx.TxID,
				Vout:     out.Vout,
				Protocol: model.ProtocolCounterparty,
			})
			continue
		}
		outs = append(outs, buildOutputClassificationWithPolicy(out, model.ProtocolCounterparty, variant, contentType, true))
	}

	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolCounterparty,
			Variant:                variant,
			ContentType:            contentType,
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: true,
			AdditionalMetadataJSON: metadataJSON,
		},
		Outputs: outs,
	}
}

// counterpartyShapedOutputs returns the indices of outputs whose multisig
// shape is a supported Counterparty tier.
func counterpartyShapedOutputs(outputs []model.Output, enableTier2 bool) []int {
	var idx []int
	for i, out := range outputs {
		ms := out.Multisig
		if ms == nil {
			continue
		}
		switch {
		case ms.RequiredSigs == 1 && (ms.TotalPubkeys == 3 || ms.TotalPubkeys == 2):
			idx = append(idx, i)
		case enableTier2 && ms.RequiredSigs == 2 && (ms.TotalPubkeys == 2 || ms.TotalPubkeys == 3):
			idx = append(idx, i)
		case enableTier2 && ms.RequiredSigs == 3 && ms.TotalPubkeys == 3:
			idx = append(idx, i)
		}
	}
	return idx
}

func counterpartyVariant(messageType byte) string {
	switch {
	case containsByte(messageType, 0, 2, 3, 4, 50):
		return "CounterpartyTransfer"
	case containsByte(messageType, 20, 21, 22, 90, 91):
		return "CounterpartyIssuance"
	case containsByte(messageType, 60, 110):
		return "CounterpartyDestruction"
	case containsByte(messageType, 10, 11, 12, 70):
		return "CounterpartyDEX"
	case messageType == 30:
		return "CounterpartyOracle"
	case containsByte(messageType, 40, 80, 81):
		return "CounterpartyGaming"
	case containsByte(messageType, 100, 101, 102):
		return "CounterpartyUtility"
	default:
		return "CounterpartyUnknown"
	}
}

func containsByte(v byte, candidates ...byte) bool {
	for _, c := range candidates {
		if v == c {
			return true
		}
	}
	return false
}
