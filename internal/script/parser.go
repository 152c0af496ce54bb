// Package script recognizes pay-to-multisig (P2MS, "bare multisig") script
// templates and extracts their M-of-N structure and pubkeys.
//
// Unlike txscript's own standardness checks, this parser must tolerate
// scripts that mix 33- and 65-byte pubkey encodings within the same output
// (Stamps and Counterparty do this deliberately) and must report byte
// offsets for each pubkey, so it walks opcodes directly with
// txscript.MakeScriptTokenizer rather than relying on
// txscript.ExtractPkScriptAddrs.
package script

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

const (
	minPubkeyLen = 33
	maxPubkeyLen = 65
	maxN         = 20
)

// Pubkey is one extracted pubkey slot together with its byte offset within
// the script.
type Pubkey struct {
	Bytes  []byte
	Offset int
}

// Multisig is a parsed P2MS descriptor.
type Multisig struct {
	RequiredSigs int
	TotalPubkeys int
	Pubkeys      []Pubkey
}

// ErrNonStandard is returned (wrapped with a reason) when a script does not
// match the P2MS template.
type ErrNonStandard struct {
	Reason string
}

func (e *ErrNonStandard) Error() string {
	return fmt.Sprintf("nonstandard script: %s", e.Reason)
}

func nonStandard(format string, args ...any) error {
	return &ErrNonStandard{Reason: fmt.Sprintf(format, args...)}
}

// Parse recognizes the template
// <M_opcode> <pubkey_1> ... <pubkey_N> <N_opcode> OP_CHECKMULTISIG
// and returns the decoded M, N and pubkeys in on-the-wire order, or a
// non-standard rejection.
func Parse(rawScript []byte) (*Multisig, error) {
	tok := txscript.MakeScriptTokenizer(0, rawScript)

	if !tok.Next() {
		return nil, nonStandard("empty script")
	}
	m, ok := smallInt(tok.Opcode(), tok.Data())
	if !ok || m < 1 {
		return nil, nonStandard("missing or invalid M opcode")
	}

	var pubkeys []Pubkey
	for tok.Next() {
		op := tok.Opcode()
		data := tok.Data()

		// A direct-push opcode carrying exactly 33 or 65 bytes is a pubkey
		// slot. Anything else ends the pubkey run; it is either the N
		// opcode (if followed immediately by OP_CHECKMULTISIG) or a
		// rejection.
		if data != nil && (len(data) == minPubkeyLen || len(data) == maxPubkeyLen) {
			pubkeys = append(pubkeys, Pubkey{
				Bytes:  append([]byte(nil), data...),
				Offset: int(tok.ByteIndex()) - len(data),
			})
			continue
		}

		n, ok := smallInt(op, data)
		if !ok {
			return nil, nonStandard("unexpected opcode 0x%02x in pubkey run", op)
		}
		if n < 1 || n > maxN {
			return nil, nonStandard("N out of range: %d", n)
		}
		if n != len(pubkeys) {
			return nil, nonStandard("N opcode (%d) does not match pubkey count (%d)", n, len(pubkeys))
		}

		if !tok.Next() {
			return nil, nonStandard("missing OP_CHECKMULTISIG")
		}
		if tok.Opcode() != txscript.OP_CHECKMULTISIG {
			return nil, nonStandard("expected OP_CHECKMULTISIG, got 0x%02x", tok.Opcode())
		}
		if tok.Next() {
			return nil, nonStandard("trailing bytes after OP_CHECKMULTISIG")
		}
		if err := tok.Err(); err != nil {
			return nil, nonStandard("tokenizer error: %v", err)
		}

		if m > n {
			return nil, nonStandard("M (%d) exceeds N (%d)", m, n)
		}

		return &Multisig{
			RequiredSigs: m,
			TotalPubkeys: n,
			Pubkeys:      pubkeys,
		}, nil
	}

	if err := tok.Err(); err != nil {
		return nil, nonStandard("tokenizer error: %v", err)
	}
	return nil, nonStandard("script ended before N/OP_CHECKMULTISIG")
}

// Serialize reconstructs the canonical P2MS script for a parsed Multisig,
// used by the Parse -> Serialize -> Parse round-trip test.
func Serialize(ms *Multisig) ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddInt64(int64(ms.RequiredSigs))
	for _, pk := range ms.Pubkeys {
		if len(pk.Bytes) != minPubkeyLen && len(pk.Bytes) != maxPubkeyLen {
			return nil, fmt.Errorf("invalid pubkey length %d", len(pk.Bytes))
		}
		builder.AddData(pk.Bytes)
	}
	builder.AddInt64(int64(ms.TotalPubkeys))
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	return builder.Script()
}

// smallInt decodes an OP_0..OP_16 opcode, or a minimally-encoded numeric data
// push (used for N in 17..20, which has no dedicated small-int opcode), to
// its integer value.
func smallInt(op byte, data []byte) (int, bool) {
	if op == txscript.OP_0 {
		return 0, true
	}
	if op >= txscript.OP_1 && op <= txscript.OP_16 {
		return int(op-txscript.OP_1) + 1, true
	}
	if data != nil && len(data) >= 1 && len(data) <= 2 {
		v := 0
		for i := len(data) - 1; i >= 0; i-- {
			v = v<<8 | int(data[i])
		}
		return v, true
	}
	return 0, false
}
