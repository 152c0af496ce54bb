package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// UpsertEnrichedTransaction inserts or replaces the EnrichedTransaction row
// for tx.TxID.
func (s *Store) UpsertEnrichedTransaction(ctx context.Context, tx model.EnrichedTransaction) (err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("upsert_enriched_transaction", err, started) }()

	patternsJSON, jerr := json.Marshal(tx.BurnKeyPatterns)
	if jerr != nil {
		return fmt.Errorf("marshal burn key patterns: %w", jerr)
	}

	const query = `
INSERT INTO enriched_transactions (
    txid, height, input_count, output_count, total_input_value, total_output_value,
    transaction_fee, fee_per_byte, transaction_size, first_input_txid,
    has_exodus_output, has_wikileaks_output, burn_key_patterns_json, op_return_hex, sender_address
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (txid) DO UPDATE SET
    height = excluded.height,
    input_count = excluded.input_count,
    output_count = excluded.output_count,
    total_input_value = excluded.total_input_value,
    total_output_value = excluded.total_output_value,
    transaction_fee = excluded.transaction_fee,
    fee_per_byte = excluded.fee_per_byte,
    transaction_size = excluded.transaction_size,
    first_input_txid = excluded.first_input_txid,
    has_exodus_output = excluded.has_exodus_output,
    has_wikileaks_output = excluded.has_wikileaks_output,
    burn_key_patterns_json = excluded.burn_key_patterns_json,
    op_return_hex = excluded.op_return_hex,
    sender_address = excluded.sender_address`

	_, err = s.wdb.ExecContext(ctx, query,
		tx.TxID, tx.Height, tx.InputCount, tx.OutputCount, tx.TotalInputValue, tx.TotalOutputValue,
		tx.TransactionFee, tx.FeePerByte, tx.TransactionSize, tx.FirstInputTxID,
		boolToInt(tx.HasExodusOutput), boolToInt(tx.HasWikiLeaksOutput), string(patternsJSON),
		nullIfEmpty(tx.OpReturnHex), nullIfEmpty(tx.SenderAddress))
	if err != nil {
		return fmt.Errorf("upsert enriched transaction %s: %w", tx.TxID, err)
	}
	return nil
}

// GetEnrichedTransaction returns the EnrichedTransaction for txid, or
// sql.ErrNoRows if it does not exist yet.
func (s *Store) GetEnrichedTransaction(ctx context.Context, txid string) (tx model.EnrichedTransaction, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("get_enriched_transaction", err, started) }()

	const query = `
SELECT txid, height, input_count, output_count, total_input_value, total_output_value,
       transaction_fee, fee_per_byte, transaction_size, first_input_txid,
       has_exodus_output, has_wikileaks_output, burn_key_patterns_json, op_return_hex, sender_address
FROM enriched_transactions WHERE txid = ?`

	var hasExodus, hasWikiLeaks int
	var patternsJSON string
	var opReturnHex, senderAddress sql.NullString
	row := s.rdb.QueryRowContext(ctx, query, txid)
	if err = row.Scan(&tx.TxID, &tx.Height, &tx.InputCount, &tx.OutputCount, &tx.TotalInputValue, &tx.TotalOutputValue,
		&tx.TransactionFee, &tx.FeePerByte, &tx.TransactionSize, &tx.FirstInputTxID,
		&hasExodus, &hasWikiLeaks, &patternsJSON, &opReturnHex, &senderAddress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.EnrichedTransaction{}, err
		}
		return model.EnrichedTransaction{}, fmt.Errorf("get enriched transaction %s: %w", txid, err)
	}
	tx.HasExodusOutput = hasExodus != 0
	tx.HasWikiLeaksOutput = hasWikiLeaks != 0
	tx.OpReturnHex = opReturnHex.String
	tx.SenderAddress = senderAddress.String
	if err := json.Unmarshal([]byte(patternsJSON), &tx.BurnKeyPatterns); err != nil {
		return model.EnrichedTransaction{}, fmt.Errorf("unmarshal burn key patterns: %w", err)
	}
	return tx, nil
}
