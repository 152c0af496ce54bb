// Package classifier implements the Classifier Core: an ordered cascade of
// protocol detectors that turn one enriched transaction's P2MS outputs into
// a TransactionClassification plus per-output P2MSOutputClassification rows.
//
// Order is a correctness property (§4.3): Stamps must run before
// Counterparty so an embedded Stamps payload is not swallowed by a
// Counterparty envelope match, and OpReturnSignalled must run before
// DataStorage so specific OP_RETURN-signalled protocols are not swallowed
// as generic storage.
package classifier

import "github.com/goodnatureofminers/p2ms-classifier/internal/model"

// Detector is one protocol-specific classifier in the cascade. Detect
// returns nil if tx does not match this detector's protocol; outputs is
// always the transaction's P2MS (multisig) Output rows, in vout order.
type Detector interface {
	Name() string
	Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification
}

// Cascade is the fixed detector order §4.3 specifies. Unknown is not a
// member: it is the guaranteed-match fallback Classify applies when no
// cascade member matches. enableTier2 opts CounterpartyDetector into the
// {2-of-2, 2-of-3, 3-of-3} multisig shapes (§4.3.4, §6).
func Cascade(enableTier2 bool) []Detector {
	return []Detector{
		OmniDetector{},
		ChancecoinDetector{},
		StampsDetector{},
		CounterpartyDetector{EnableTier2: enableTier2},
		AsciiIdentifierDetector{},
		PPkDetector{},
		WikiLeaksCablegateDetector{},
		OpReturnSignalledDetector{},
		DataStorageDetector{},
		LikelyDataStorageDetector{},
		LikelyLegitimateMultisigDetector{},
	}
}

// Classify runs the cascade against tx and its P2MS outputs, returning the
// first detector's match, or the Unknown fallback if none match. outputs
// must already be filtered to script_type = multisig rows (as
// store.MultisigOutputsForTxID returns them) — the cascade never sees any
// other output type. enableTier2 is forwarded to Cascade.
func Classify(tx model.EnrichedTransaction, outputs []model.Output, enableTier2 bool) model.Classification {
	for _, d := range Cascade(enableTier2) {
		if c := d.Detect(tx, outputs); c != nil {
			return *c
		}
	}
	return UnknownDetector{}.detect(tx, outputs)
}
