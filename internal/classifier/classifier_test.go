package classifier

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

func generatorMultiple(t *testing.T, scalar uint64) []byte {
	t.Helper()
	buf := make([]byte, 32)
	for i := 0; i < 8; i++ {
		buf[31-i] = byte(scalar >> (8 * i))
	}
	_, pub := btcec.PrivKeyFromBytes(buf)
	return pub.SerializeCompressed()
}

func padPubkey(prefix byte, payload []byte) []byte {
	pk := make([]byte, 33)
	pk[0] = prefix
	n := copy(pk[1:], payload)
	for i := 1 + n; i < 33; i++ {
		pk[i] = 0
	}
	return pk
}

func multisigOutput(txid string, vout uint32, m int, pubkeys ...[]byte) model.Output {
	return model.Output{
		TxID:       txid,
		Vout:       vout,
		ScriptType: model.ScriptTypeMultisig,
		Multisig: &model.MultisigInfo{
			RequiredSigs: m,
			TotalPubkeys: len(pubkeys),
			Pubkeys:      pubkeys,
		},
	}
}

// Scenario 1: a 1-of-2 P2MS output whose pubkey 1 carries "CHANCECO" at
// offset 1 yields protocol=Chancecoin, variant=ChancecoinSend.
func TestCascade_Chancecoin(t *testing.T) {
	slot1 := padPubkey(0x02, append([]byte("CHANCECO"), 0x00))
	out := multisigOutput("tx1", 0, 1, generatorMultiple(t, 1), slot1)

	tx := model.EnrichedTransaction{TxID: "tx1", FirstInputTxID: hex.EncodeToString([]byte("some-txid-bytes-000000000000000"))}
	c := Classify(tx, []model.Output{out}, false)

	require.Equal(t, model.ProtocolChancecoin, c.Transaction.Protocol)
	require.Equal(t, "ChancecoinSend", c.Transaction.Variant)
	require.True(t, c.Transaction.ProtocolSignatureFound)
}

// Scenario 2: a 1-of-3 P2MS whose concatenated pubkey-slot data
// ARC4-decrypts to "stamp:" followed by PNG magic.
func TestCascade_StampsClassic(t *testing.T) {
	plaintext := append([]byte("stamp:"), []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}...)
	plaintext = append(plaintext, make([]byte, 96-len(plaintext))...)

	firstInputTxID := "aa00112233445566778899aabbccddeeff00112233445566778899aabbccdd"
	key, err := decode.ARC4KeyFromTxID(firstInputTxID)
	require.NoError(t, err)
	ciphertext, err := decode.ARC4(plaintext, key)
	require.NoError(t, err)
	require.Len(t, ciphertext, 96)

	pubkeys := []([]byte){
		padPubkey(0x02, ciphertext[0:32]),
		padPubkey(0x02, ciphertext[32:64]),
		padPubkey(0x02, ciphertext[64:96]),
	}
	out := multisigOutput("tx2", 0, 1, pubkeys...)

	tx := model.EnrichedTransaction{TxID: "tx2", FirstInputTxID: firstInputTxID}
	c := Classify(tx, []model.Output{out}, false)

	require.Equal(t, model.ProtocolBitcoinStamps, c.Transaction.Protocol)
	require.Equal(t, "StampsClassic", c.Transaction.Variant)
	require.Equal(t, "image/png", c.Transaction.ContentType)
	require.Equal(t, model.TransportPure, c.Transaction.TransportProtocol)
}

// Scenario 3: a 1-of-3 whose decrypted payload begins "CNTRPRTY" followed
// by message-type byte 20 (Issuance).
func TestCascade_CounterpartyIssuance(t *testing.T) {
	plaintext := append([]byte("CNTRPRTY"), 20)
	plaintext = append(plaintext, make([]byte, 96-len(plaintext))...)

	firstInputTxID := "bb00112233445566778899aabbccddeeff00112233445566778899aabbccdd"
	key, err := decode.ARC4KeyFromTxID(firstInputTxID)
	require.NoError(t, err)
	ciphertext, err := decode.ARC4(plaintext, key)
	require.NoError(t, err)

	pubkeys := []([]byte){
		padPubkey(0x02, ciphertext[0:32]),
		padPubkey(0x02, ciphertext[32:64]),
		padPubkey(0x02, ciphertext[64:96]),
	}
	out := multisigOutput("tx3", 0, 1, pubkeys...)

	tx := model.EnrichedTransaction{TxID: "tx3", FirstInputTxID: firstInputTxID}
	c := Classify(tx, []model.Output{out}, false)

	require.Equal(t, model.ProtocolCounterparty, c.Transaction.Protocol)
	require.Equal(t, "CounterpartyIssuance", c.Transaction.Variant)
	require.Contains(t, c.Transaction.AdditionalMetadataJSON, "20")
}

// omniObfuscate is the forward direction of decode.OmniDeobfuscate, used
// only to build test fixtures: the keystream for sequence 1 is the first 31
// bytes of sha256(senderAddress).
func omniObfuscate(senderAddress string, sequence byte, payload [30]byte) []byte {
	digest := sha256.Sum256([]byte(senderAddress))
	keystream := digest[:decode.OmniPacketLen]
	plain := append([]byte{sequence}, payload[:]...)
	out := make([]byte, decode.OmniPacketLen)
	for i := range out {
		out[i] = plain[i] ^ keystream[i]
	}
	return out
}

// Scenario 4: an Exodus-address-adjacent transaction whose P2MS slots 1..2,
// after SHA-256 deobfuscation, yield header 00 00 00 00 (version 0, type 0).
func TestCascade_OmniTransfer(t *testing.T) {
	sender := "1SenderAddressXXXXXXXXXXXXXXXXXXXX"
	var payload [30]byte // header 0000 0000 followed by zero padding
	chunk := omniObfuscate(sender, 1, payload)

	slot1 := padPubkey(0x02, chunk)
	out := multisigOutput("tx4", 0, 1, generatorMultiple(t, 1), slot1)

	tx := model.EnrichedTransaction{TxID: "tx4", HasExodusOutput: true, SenderAddress: sender}
	c := Classify(tx, []model.Output{out}, false)

	require.Equal(t, model.ProtocolOmniLayer, c.Transaction.Protocol)
	require.Equal(t, "OmniTransfer", c.Transaction.Variant)
}

// Scenario 5: six P2MS outputs, all valid keys, no signature matches.
func TestCascade_LikelyDataStorage_HighOutputCount(t *testing.T) {
	var outputs []model.Output
	for i := 0; i < 6; i++ {
		outputs = append(outputs, multisigOutput("tx5", uint32(i), 1, generatorMultiple(t, uint64(i+1))))
	}
	tx := model.EnrichedTransaction{TxID: "tx5"}
	c := Classify(tx, outputs, false)

	require.Equal(t, model.ProtocolLikelyDataStorage, c.Transaction.Protocol)
	require.Equal(t, "HighOutputCount", c.Transaction.Variant)
}

// Scenario 6: two P2MS outputs, all keys valid, no signatures, amounts
// above the dust threshold.
func TestCascade_LikelyLegitimateMultisig(t *testing.T) {
	out1 := multisigOutput("tx6", 0, 1, generatorMultiple(t, 1))
	out1.Amount = 50000
	out2 := multisigOutput("tx6", 1, 1, generatorMultiple(t, 2))
	out2.Amount = 100000

	tx := model.EnrichedTransaction{TxID: "tx6"}
	c := Classify(tx, []model.Output{out1, out2}, false)

	require.Equal(t, model.ProtocolLikelyLegitimateMultisig, c.Transaction.Protocol)
	require.Equal(t, "LegitimateMultisig", c.Transaction.Variant)
	for _, o := range c.Outputs {
		require.NotNil(t, o.IsSpendable)
		require.True(t, *o.IsSpendable)
	}
}

func TestCascade_InvalidECPointBeatsUnknown(t *testing.T) {
	out := multisigOutput("tx7", 0, 1, generatorMultiple(t, 1))
	out.Multisig.Pubkeys = append(out.Multisig.Pubkeys, bytes.Repeat([]byte{0xAB}, 33))

	tx := model.EnrichedTransaction{TxID: "tx7"}
	c := Classify(tx, []model.Output{out}, false)
	require.Equal(t, model.ProtocolLikelyDataStorage, c.Transaction.Protocol)
	require.Equal(t, "InvalidECPoint", c.Transaction.Variant)
}

// UnknownDetector is never reached through Classify given the cascade
// covers every valid/invalid-key combination, so it is exercised directly
// here.
func TestUnknownDetector_Direct(t *testing.T) {
	tx := model.EnrichedTransaction{TxID: "txU"}
	c := UnknownDetector{}.detect(tx, nil)
	require.Equal(t, model.ProtocolUnknown, c.Transaction.Protocol)
	require.Empty(t, c.Outputs)
}

func TestAsciiIdentifier_PositionIsStrict(t *testing.T) {
	test01 := padPubkey(0x02, []byte("TEST01"))
	outSlot0 := multisigOutput("tx8", 0, 1, test01, generatorMultiple(t, 1))
	tx := model.EnrichedTransaction{TxID: "tx8"}
	c := Classify(tx, []model.Output{outSlot0}, false)
	require.Equal(t, model.ProtocolAsciiIdentifier, c.Transaction.Protocol)
	require.Equal(t, "AsciiTEST01", c.Transaction.Variant)

	outSlot1 := multisigOutput("tx9", 0, 1, generatorMultiple(t, 1), test01)
	tx2 := model.EnrichedTransaction{TxID: "tx9"}
	c2 := Classify(tx2, []model.Output{outSlot1}, false)
	require.NotEqual(t, "AsciiTEST01", c2.Transaction.Variant)
}

func TestOpReturnSignalled_GenericASCIIBoundary(t *testing.T) {
	out := multisigOutput("tx10", 0, 1, generatorMultiple(t, 1))
	tx := model.EnrichedTransaction{TxID: "tx10", OpReturnHex: hex.EncodeToString([]byte("hello world"))}
	c := Classify(tx, []model.Output{out}, false)
	require.Equal(t, model.ProtocolOpReturnSignalled, c.Transaction.Protocol)
	require.Equal(t, "GenericASCII", c.Transaction.Variant)
}

// A Stamps payload that is bare XML (no HTML markers, no SVG root element)
// falls to the XML rule rather than the final octet-stream fallback.
func TestCascade_StampsBareXML(t *testing.T) {
	plaintext := append([]byte("stamp:"), []byte("<?xml version=\"1.0\"?><note>hi</note>")...)
	plaintext = append(plaintext, make([]byte, 96-len(plaintext))...)

	firstInputTxID := "cc00112233445566778899aabbccddeeff00112233445566778899aabbccdd"
	key, err := decode.ARC4KeyFromTxID(firstInputTxID)
	require.NoError(t, err)
	ciphertext, err := decode.ARC4(plaintext, key)
	require.NoError(t, err)
	require.Len(t, ciphertext, 96)

	pubkeys := []([]byte){
		padPubkey(0x02, ciphertext[0:32]),
		padPubkey(0x02, ciphertext[32:64]),
		padPubkey(0x02, ciphertext[64:96]),
	}
	out := multisigOutput("tx11", 0, 1, pubkeys...)

	tx := model.EnrichedTransaction{TxID: "tx11", FirstInputTxID: firstInputTxID}
	c := Classify(tx, []model.Output{out}, false)

	require.Equal(t, model.ProtocolBitcoinStamps, c.Transaction.Protocol)
	require.Equal(t, "StampsData", c.Transaction.Variant)
	require.Equal(t, "application/xml", c.Transaction.ContentType)
}

// A Stamps payload that is neither a recognized magic/JSON/HTML/XML shape
// but is still mostly printable ASCII falls to the text fallback rather
// than octet-stream.
func TestCascade_StampsPrintableTextFallback(t *testing.T) {
	plaintext := append([]byte("stamp:"), []byte("just a plain text note here")...)
	plaintext = append(plaintext, bytes.Repeat([]byte("x"), 96-len(plaintext))...)

	firstInputTxID := "dd00112233445566778899aabbccddeeff00112233445566778899aabbccdd"
	key, err := decode.ARC4KeyFromTxID(firstInputTxID)
	require.NoError(t, err)
	ciphertext, err := decode.ARC4(plaintext, key)
	require.NoError(t, err)
	require.Len(t, ciphertext, 96)

	pubkeys := []([]byte){
		padPubkey(0x02, ciphertext[0:32]),
		padPubkey(0x02, ciphertext[32:64]),
		padPubkey(0x02, ciphertext[64:96]),
	}
	out := multisigOutput("tx12", 0, 1, pubkeys...)

	tx := model.EnrichedTransaction{TxID: "tx12", FirstInputTxID: firstInputTxID}
	c := Classify(tx, []model.Output{out}, false)

	require.Equal(t, model.ProtocolBitcoinStamps, c.Transaction.Protocol)
	require.Equal(t, "StampsData", c.Transaction.Variant)
	require.Equal(t, "text/plain", c.Transaction.ContentType)
}
