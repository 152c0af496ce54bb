package classifier

import (
	"bytes"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// ChancecoinDetector recognizes Chancecoin messages embedded in a 1-of-2
// P2MS output's second pubkey slot (§4.3.2).
type ChancecoinDetector struct{}

func (ChancecoinDetector) Name() string { return "chancecoin" }

var chancecoinSignature = []byte("CHANCECO")

func (ChancecoinDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	for i, out := range outputs {
		if out.Multisig == nil || out.Multisig.RequiredSigs != 1 || out.Multisig.TotalPubkeys != 2 {
			continue
		}
		slot1 := pubkeySlot(outputs, i, 1)
		if len(slot1) < 9 || !bytes.Equal(slot1[1:9], chancecoinSignature) {
			continue
		}

		variant := "ChancecoinUnknown"
		if len(slot1) >= 10 {
			variant = chancecoinVariant(slot1[9])
		}

		outs := make([]model.P2MSOutputClassification, 0, len(outputs))
		for _, o := range outputs {
			outs = append(outs, buildOutputClassification(o, model.ProtocolChancecoin, variant, "application/octet-stream"))
		}
		return &model.Classification{
			Transaction: model.TransactionClassification{
				TxID:                   tx.TxID,
				Protocol:               model.ProtocolChancecoin,
				Variant:                variant,
				ContentType:            "application/octet-stream",
				TransportProtocol:      model.TransportPure,
				ProtocolSignatureFound: true,
			},
			Outputs: outs,
		}
	}
	return nil
}

func chancecoinVariant(messageType byte) string {
	switch messageType {
	case 0:
		return "ChancecoinSend"
	case 10:
		return "ChancecoinOrder"
	case 11:
		return "ChancecoinBTCPay"
	case 14:
		return "ChancecoinRoll"
	case 40, 41:
		return "ChancecoinBet"
	case 70:
		return "ChancecoinCancel"
	default:
		return "ChancecoinUnknown"
	}
}
