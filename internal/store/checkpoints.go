package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// SaveCheckpoint persists cp as the latest progress marker for its stage.
func (s *Store) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) (err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("save_checkpoint", err, started) }()

	const query = `
INSERT INTO checkpoints (stage, byte_offset, lines_processed, last_txid, batch_index)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (stage) DO UPDATE SET
    byte_offset = excluded.byte_offset,
    lines_processed = excluded.lines_processed,
    last_txid = excluded.last_txid,
    batch_index = excluded.batch_index,
    updated_at = strftime('%s', 'now')`

	_, err = s.wdb.ExecContext(ctx, query, string(cp.Stage), cp.ByteOffset, cp.LinesProcessed, nullIfEmpty(cp.LastTxID), cp.BatchIndex)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.Stage, err)
	}
	return nil
}

// LoadCheckpoint returns the saved Checkpoint for stage, or a zero-value
// Checkpoint with ok=false if the stage has never checkpointed.
func (s *Store) LoadCheckpoint(ctx context.Context, stage model.Stage) (cp model.Checkpoint, ok bool, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("load_checkpoint", err, started) }()

	const query = `SELECT stage, byte_offset, lines_processed, last_txid, batch_index FROM checkpoints WHERE stage = ?`

	var lastTxID sql.NullString
	row := s.rdb.QueryRowContext(ctx, query, string(stage))
	scanErr := row.Scan(&cp.Stage, &cp.ByteOffset, &cp.LinesProcessed, &lastTxID, &cp.BatchIndex)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return model.Checkpoint{}, false, nil
	}
	if scanErr != nil {
		err = fmt.Errorf("load checkpoint %s: %w", stage, scanErr)
		return model.Checkpoint{}, false, err
	}
	cp.LastTxID = lastTxID.String
	return cp, true, nil
}
