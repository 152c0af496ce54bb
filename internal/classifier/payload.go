package classifier

import "github.com/goodnatureofminers/p2ms-classifier/internal/model"

// concatenatedPubkeySlots concatenates, in vout order and slot order, the
// bytes each pubkey carries after dropping its 1-byte prefix (0x02/0x03/
// 0x04). This is the "concatenated pubkey-slot data" §4.3.3/§4.3.4/§4.3.9
// refer to: the raw material Stamps, Counterparty, and DataStorage sniff
// before any decryption.
func concatenatedPubkeySlots(outputs []model.Output) []byte {
	var buf []byte
	for _, out := range outputs {
		if out.Multisig == nil {
			continue
		}
		for _, pk := range out.Multisig.Pubkeys {
			if len(pk) < 2 {
				continue
			}
			buf = append(buf, pk[1:]...)
		}
	}
	return buf
}

// pubkeySlot returns pubkey index slotIndex of output n (0-based) across
// the transaction's P2MS outputs, or nil if it does not exist. Several
// detectors (ASCII identifiers, PPk, Chancecoin) pin evidence to a specific
// slot of a specific output rather than the whole concatenated payload.
func pubkeySlot(outputs []model.Output, outputIndex, slotIndex int) []byte {
	if outputIndex < 0 || outputIndex >= len(outputs) {
		return nil
	}
	ms := outputs[outputIndex].Multisig
	if ms == nil || slotIndex < 0 || slotIndex >= len(ms.Pubkeys) {
		return nil
	}
	return ms.Pubkeys[slotIndex]
}

// allPubkeys flattens every pubkey slot across outputs, in vout/slot
// order.
func allPubkeys(outputs []model.Output) [][]byte {
	var all [][]byte
	for _, out := range outputs {
		if out.Multisig == nil {
			continue
		}
		all = append(all, out.Multisig.Pubkeys...)
	}
	return all
}
