package classifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// Store is the subset of *store.Store Stage 3 reads and writes through.
type Store interface {
	DistinctMultisigTxIDsSince(ctx context.Context, afterTxID string, limit int) ([]string, error)
	MultisigOutputsForTxID(ctx context.Context, txid string) ([]model.Output, error)
	GetEnrichedTransaction(ctx context.Context, txid string) (model.EnrichedTransaction, error)
	InsertClassification(ctx context.Context, c model.Classification) error
	SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error
	LoadCheckpoint(ctx context.Context, stage model.Stage) (model.Checkpoint, bool, error)
}

// Metrics is the subset of internal/metrics the classifier reports against.
type Metrics interface {
	ObserveTxClassified(protocol string)
	ObserveTxFailed(reason string)
}

// Config controls checkpoint cadence and cascade options.
type Config struct {
	BatchSize int

	// EnableTier2 opts CounterpartyDetector into the {2-of-2, 2-of-3, 3-of-3}
	// multisig shapes, per §4.3.4/§6. Off by default.
	EnableTier2 bool
}

// DefaultConfig returns the suggested checkpoint batch size.
func DefaultConfig() Config { return Config{BatchSize: 500} }

// Run drives Stage 3 to completion: it pages through distinct multisig
// txids starting after resume.LastTxID, classifies each one against its
// EnrichedTransaction row and P2MS outputs, and checkpoints after every
// page. A missing EnrichedTransaction row (the Enricher has not yet reached
// this txid) is logged and counted, not fatal; only a Store failure or
// context cancellation aborts the run.
func Run(ctx context.Context, st Store, metrics Metrics, resume model.Checkpoint, cfg Config, logger *zap.Logger) error {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}

	lastTxID := resume.LastTxID
	batchIndex := resume.BatchIndex

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		txids, err := st.DistinctMultisigTxIDsSince(ctx, lastTxID, cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("list multisig txids after %q: %w", lastTxID, err)
		}
		if len(txids) == 0 {
			return nil
		}

		for _, txid := range txids {
			if err := classifyOne(ctx, st, metrics, logger, txid, cfg.EnableTier2); err != nil {
				return err
			}
		}

		batchIndex++
		lastTxID = txids[len(txids)-1]
		if err := st.SaveCheckpoint(ctx, model.Checkpoint{
			Stage:      model.StageClassify,
			LastTxID:   lastTxID,
			BatchIndex: batchIndex,
		}); err != nil {
			return fmt.Errorf("save classify checkpoint at %q: %w", lastTxID, err)
		}
	}
}

func classifyOne(ctx context.Context, st Store, metrics Metrics, logger *zap.Logger, txid string, enableTier2 bool) error {
	outputs, err := st.MultisigOutputsForTxID(ctx, txid)
	if err != nil {
		return fmt.Errorf("load multisig outputs for %s: %w", txid, err)
	}
	if len(outputs) == 0 {
		return nil
	}

	tx, err := st.GetEnrichedTransaction(ctx, txid)
	if err != nil {
		metrics.ObserveTxFailed("missing_enriched_transaction")
		if logger != nil {
			logger.Warn("classification skipped, no enriched transaction yet",
				zap.String("txid", txid), zap.Error(err))
		}
		return nil
	}

	c := Classify(tx, outputs, enableTier2)
	if err := st.InsertClassification(ctx, c); err != nil {
		return fmt.Errorf("insert classification for %s: %w", txid, err)
	}
	metrics.ObserveTxClassified(string(c.Transaction.Protocol))
	return nil
}
