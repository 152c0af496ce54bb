package classifier

import "github.com/goodnatureofminers/p2ms-classifier/internal/model"

// UnknownDetector is the guaranteed-match fallback Classify applies when no
// cascade member matches (§4.3.12). It is not itself a Cascade member: its
// detect method is called directly rather than through the Detector
// interface, since it never returns nil.
type UnknownDetector struct{}

func (UnknownDetector) detect(tx model.EnrichedTransaction, outputs []model.Output) model.Classification {
	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		outs = append(outs, buildOutputClassification(out, model.ProtocolUnknown, "", ""))
	}
	return model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolUnknown,
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: false,
		},
		Outputs: outs,
	}
}
