package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// UpsertOutput inserts or updates an Output row. The UPSERT deliberately
// never writes is_spent — Stage 1 always inserts with is_spent=0 via the
// INSERT branch, and Stage 2's own MarkOutputSpent is the only path that
// sets it, preserving the flag exactly as §3's lifecycle invariant requires.
func (s *Store) UpsertOutput(ctx context.Context, out model.Output) (err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("upsert_output", err, started) }()

	var requiredSigs, totalPubkeys *int
	var pubkeysJSON *string
	if out.Multisig != nil {
		rs, tp := out.Multisig.RequiredSigs, out.Multisig.TotalPubkeys
		requiredSigs, totalPubkeys = &rs, &tp
		hexPubkeys := make([]string, len(out.Multisig.Pubkeys))
		for i, pk := range out.Multisig.Pubkeys {
			hexPubkeys[i] = hex.EncodeToString(pk)
		}
		b, jerr := json.Marshal(hexPubkeys)
		if jerr != nil {
			return fmt.Errorf("marshal pubkeys: %w", jerr)
		}
		s := string(b)
		pubkeysJSON = &s
	}

	const query = `
INSERT INTO outputs (txid, vout, height, amount, script_type, script_hex, is_coinbase, is_spent, required_sigs, total_pubkeys, pubkeys_json)
VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
ON CONFLICT (txid, vout) DO UPDATE SET
    height = excluded.height,
    amount = excluded.amount,
    script_type = excluded.script_type,
    script_hex = excluded.script_hex,
    is_coinbase = excluded.is_coinbase,
    required_sigs = excluded.required_sigs,
    total_pubkeys = excluded.total_pubkeys,
    pubkeys_json = excluded.pubkeys_json`

	_, err = s.wdb.ExecContext(ctx, query,
		out.TxID, out.Vout, out.Height, out.Amount, string(out.ScriptType), out.ScriptHex,
		boolToInt(out.IsCoinbase), requiredSigs, totalPubkeys, pubkeysJSON)
	if err != nil {
		return fmt.Errorf("upsert output %s:%d: %w", out.TxID, out.Vout, err)
	}
	return nil
}

// MarkOutputSpent sets is_spent=1 for (txid, vout), used by Stage 2 once it
// observes the output has been consumed by a later transaction's input.
func (s *Store) MarkOutputSpent(ctx context.Context, txid string, vout uint32) (err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("mark_output_spent", err, started) }()

	_, err = s.wdb.ExecContext(ctx, `UPDATE outputs SET is_spent = 1 WHERE txid = ? AND vout = ?`, txid, vout)
	if err != nil {
		return fmt.Errorf("mark output spent %s:%d: %w", txid, vout, err)
	}
	return nil
}

// MultisigOutputsForTxID returns every multisig Output belonging to txid, in
// vout order.
func (s *Store) MultisigOutputsForTxID(ctx context.Context, txid string) (outs []model.Output, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("multisig_outputs_for_txid", err, started) }()

	const query = `
SELECT txid, vout, height, amount, script_type, script_hex, is_coinbase, is_spent, required_sigs, total_pubkeys, pubkeys_json
FROM outputs
WHERE txid = ? AND script_type = 'multisig'
ORDER BY vout`

	rows, qerr := s.rdb.QueryContext(ctx, query, txid)
	if qerr != nil {
		return nil, fmt.Errorf("query multisig outputs for %s: %w", txid, qerr)
	}
	defer rows.Close()

	for rows.Next() {
		out, rerr := scanOutput(rows)
		if rerr != nil {
			return nil, rerr
		}
		outs = append(outs, out)
	}
	return outs, rows.Err()
}

// DistinctMultisigTxIDsSince returns distinct txids owning at least one
// multisig output, ordered by txid, starting after afterTxID (empty string
// to start from the beginning) — Stage 2/3's resume cursor.
func (s *Store) DistinctMultisigTxIDsSince(ctx context.Context, afterTxID string, limit int) (txids []string, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("distinct_multisig_txids_since", err, started) }()

	const query = `
SELECT DISTINCT txid FROM outputs
WHERE script_type = 'multisig' AND txid > ?
ORDER BY txid
LIMIT ?`

	rows, qerr := s.rdb.QueryContext(ctx, query, afterTxID, limit)
	if qerr != nil {
		return nil, fmt.Errorf("query distinct multisig txids: %w", qerr)
	}
	defer rows.Close()

	for rows.Next() {
		var txid string
		if serr := rows.Scan(&txid); serr != nil {
			return nil, serr
		}
		txids = append(txids, txid)
	}
	return txids, rows.Err()
}

func scanOutput(rows interface{ Scan(...any) error }) (model.Output, error) {
	var out model.Output
	var scriptType string
	var isCoinbase, isSpent int
	var requiredSigs, totalPubkeys *int
	var pubkeysJSON *string

	if err := rows.Scan(&out.TxID, &out.Vout, &out.Height, &out.Amount, &scriptType, &out.ScriptHex,
		&isCoinbase, &isSpent, &requiredSigs, &totalPubkeys, &pubkeysJSON); err != nil {
		return out, fmt.Errorf("scan output: %w", err)
	}
	out.ScriptType = model.ScriptType(scriptType)
	out.IsCoinbase = isCoinbase != 0
	out.IsSpent = isSpent != 0

	if requiredSigs != nil && totalPubkeys != nil && pubkeysJSON != nil {
		var hexPubkeys []string
		if err := json.Unmarshal([]byte(*pubkeysJSON), &hexPubkeys); err != nil {
			return out, fmt.Errorf("unmarshal pubkeys: %w", err)
		}
		pubkeys := make([][]byte, len(hexPubkeys))
		for i, h := range hexPubkeys {
			b, err := hex.DecodeString(h)
			if err != nil {
				return out, fmt.Errorf("decode pubkey hex: %w", err)
			}
			pubkeys[i] = b
		}
		out.Multisig = &model.MultisigInfo{
			RequiredSigs: *requiredSigs,
			TotalPubkeys: *totalPubkeys,
			Pubkeys:      pubkeys,
		}
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
