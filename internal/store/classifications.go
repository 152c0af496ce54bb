package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// InsertClassification persists one TransactionClassification row followed
// by all of its P2MSOutputClassification rows inside a single transaction,
// parent-first, so the store's foreign key and the enforce_p2ms_only_classification
// trigger are always satisfied.
func (s *Store) InsertClassification(ctx context.Context, c model.Classification) (err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("insert_classification", err, started) }()

	tx, berr := s.wdb.BeginTx(ctx, nil)
	if berr != nil {
		return fmt.Errorf("begin classification tx: %w", berr)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const txQuery = `
INSERT INTO transaction_classifications (txid, protocol, variant, content_type, transport_protocol, protocol_signature_found, additional_metadata_json)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (txid) DO UPDATE SET
    protocol = excluded.protocol,
    variant = excluded.variant,
    content_type = excluded.content_type,
    transport_protocol = excluded.transport_protocol,
    protocol_signature_found = excluded.protocol_signature_found,
    additional_metadata_json = excluded.additional_metadata_json`

	t := c.Transaction
	if _, err = tx.ExecContext(ctx, txQuery, t.TxID, string(t.Protocol), nullIfEmpty(t.Variant),
		nullIfEmpty(t.ContentType), nullIfEmpty(string(t.TransportProtocol)),
		boolToInt(t.ProtocolSignatureFound), nullIfEmpty(t.AdditionalMetadataJSON)); err != nil {
		return fmt.Errorf("insert transaction classification %s: %w", t.TxID, err)
	}

	const outQuery = `
INSERT INTO p2ms_output_classifications (txid, vout, protocol, variant, content_type, is_spendable, spendability_reason, real_pubkey_count, burn_key_count, data_key_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (txid, vout, protocol) DO UPDATE SET
    variant = excluded.variant,
    content_type = excluded.content_type,
    is_spendable = excluded.is_spendable,
    spendability_reason = excluded.spendability_reason,
    real_pubkey_count = excluded.real_pubkey_count,
    burn_key_count = excluded.burn_key_count,
    data_key_count = excluded.data_key_count`

	for _, o := range c.Outputs {
		var isSpendable *int
		if o.IsSpendable != nil {
			v := boolToInt(*o.IsSpendable)
			isSpendable = &v
		}
		if _, err = tx.ExecContext(ctx, outQuery, o.TxID, o.Vout, string(o.Protocol), nullIfEmpty(o.Variant),
			nullIfEmpty(o.ContentType), isSpendable, nullIfEmpty(string(o.SpendabilityReason)),
			o.RealPubkeyCount, o.BurnKeyCount, o.DataKeyCount); err != nil {
			return fmt.Errorf("insert output classification %s:%d: %w", o.TxID, o.Vout, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit classification tx: %w", err)
	}
	return nil
}

// ListClassificationsSince pages through transaction_classifications in
// txid order, for cmd/decode-artifacts to re-run decoding without loading
// the whole table into memory.
func (s *Store) ListClassificationsSince(ctx context.Context, afterTxID string, limit int) (cs []model.TransactionClassification, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("list_classifications_since", err, started) }()

	const query = `
SELECT txid, protocol, variant, content_type, transport_protocol, protocol_signature_found, additional_metadata_json
FROM transaction_classifications
WHERE txid > ?
ORDER BY txid
LIMIT ?`

	rows, qerr := s.rdb.QueryContext(ctx, query, afterTxID, limit)
	if qerr != nil {
		return nil, fmt.Errorf("list classifications after %q: %w", afterTxID, qerr)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.TransactionClassification
		var protocol, transport string
		var signatureFound int
		var variant, contentType, metadataJSON sql.NullString
		if err = rows.Scan(&c.TxID, &protocol, &variant, &contentType, &transport, &signatureFound, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		c.Protocol = model.Protocol(protocol)
		c.TransportProtocol = model.Transport(transport)
		c.ProtocolSignatureFound = signatureFound != 0
		c.Variant = variant.String
		c.ContentType = contentType.String
		c.AdditionalMetadataJSON = metadataJSON.String
		cs = append(cs, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classifications: %w", err)
	}
	return cs, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
