package classifier

import (
	"sort"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// OmniDetector recognizes Omni Layer Class B transactions (§4.3.1).
type OmniDetector struct{}

func (OmniDetector) Name() string { return "omni" }

type omniPacket struct {
	sequence int
	payload  []byte
}

func (OmniDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	if !tx.HasExodusOutput {
		return nil
	}

	packets := omniPackets(tx.SenderAddress, outputs)
	sort.Slice(packets, func(i, j int) bool { return packets[i].sequence < packets[j].sequence })

	var combined []byte
	for _, p := range packets {
		combined = append(combined, p.payload...)
	}

	variant := "OmniFailedDeobfuscation"
	if hdr, _, ok := decode.ParseOmniMessage(combined); ok {
		if v, ok := omniVariant(hdr.MessageType); ok {
			variant = v
		}
	}

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		outs = append(outs, buildOutputClassification(out, model.ProtocolOmniLayer, variant, "application/octet-stream"))
	}

	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolOmniLayer,
			Variant:                variant,
			ContentType:            "application/octet-stream",
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: true,
		},
		Outputs: outs,
	}
}

// omniPackets extracts the obfuscated pubkey-slot 1 and 2 chunk from every
// P2MS output in vout order, then deobfuscates each chunk independently
// against the sender address, keeping only the chunks that self-verify.
func omniPackets(senderAddress string, outputs []model.Output) []omniPacket {
	var packets []omniPacket
	for _, out := range outputs {
		if out.Multisig == nil {
			continue
		}
		for _, slot := range []int{1, 2} {
			if slot >= len(out.Multisig.Pubkeys) {
				continue
			}
			chunk, ok := decode.OmniPacketChunk(out.Multisig.Pubkeys[slot])
			if !ok {
				continue
			}
			data, seq, ok := decode.OmniDeobfuscate(senderAddress, chunk)
			if !ok || len(data) == 0 {
				continue
			}
			packets = append(packets, omniPacket{sequence: seq, payload: data[1:]})
		}
	}
	return packets
}

func omniVariant(messageType uint16) (string, bool) {
	switch {
	case contains16(messageType, 0, 2, 4, 5):
		return "OmniTransfer", true
	case messageType == 3:
		return "OmniDistribution", true
	case messageType >= 50 && messageType <= 55 && messageType != 53:
		return "OmniIssuance", true
	case messageType == 56:
		return "OmniDestruction", true
	case messageType >= 20 && messageType <= 28:
		return "OmniDEX", true
	case contains16(messageType, 53, 70, 71, 72, 185, 186):
		return "OmniAdministration", true
	case contains16(messageType, 31, 200):
		return "OmniUtility", true
	default:
		return "", false
	}
}

func contains16(v uint16, candidates ...uint16) bool {
	for _, c := range candidates {
		if v == c {
			return true
		}
	}
	return false
}
