package classifier

import "github.com/goodnatureofminers/p2ms-classifier/internal/model"

// WikiLeaksCablegateDetector recognizes transactions with an adjacent
// output paying the canonical WikiLeaks donation address (§4.3.7). It
// produces a single variant under the DataStorage protocol rather than a
// protocol of its own.
type WikiLeaksCablegateDetector struct{}

func (WikiLeaksCablegateDetector) Name() string { return "wikileaks_cablegate" }

func (WikiLeaksCablegateDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	if !tx.HasWikiLeaksOutput {
		return nil
	}

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		outs = append(outs, buildOutputClassification(out, model.ProtocolDataStorage, "WikiLeaksCablegate", "application/octet-stream"))
	}
	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolDataStorage,
			Variant:                "WikiLeaksCablegate",
			ContentType:            "application/octet-stream",
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: true,
		},
		Outputs: outs,
	}
}
