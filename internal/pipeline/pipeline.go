// Package pipeline sequences Stage 1 (Extractor), Stage 2 (Enricher), and
// Stage 3 (Classifier Core) against a shared Store, the way
// cmd/pipeline composes the three stages into one long-running process
// instead of three separate binaries.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/classifier"
	"github.com/goodnatureofminers/p2ms-classifier/internal/enricher"
	"github.com/goodnatureofminers/p2ms-classifier/internal/extractor"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// Store is the union of every stage's Store dependency, satisfied by
// *store.Store.
type Store interface {
	extractor.Store
	enricher.Store
	classifier.Store
}

// Metrics is the union of every stage's Metrics dependency.
type Metrics struct {
	Extractor  extractor.Metrics
	Enricher   enricher.Metrics
	Classifier classifier.Metrics
}

// NodeClient is the subset of *rpcnode.Client the Enricher stage needs.
type NodeClient = enricher.NodeClient

// Config controls all three stages. Zero-value fields fall back to each
// stage's own DefaultConfig.
type Config struct {
	Extractor  extractor.Config
	Enricher   enricher.Config
	Classifier classifier.Config
}

// Run executes Stage 1 against csvInput, then Stage 2 against node, then
// Stage 3, each resuming from its own persisted checkpoint. A stage's
// failure aborts the run before the next stage starts; this is the
// sequential, not concurrent, composition §4.9 describes for the combined
// pipeline binary.
func Run(ctx context.Context, csvInput io.Reader, st Store, node NodeClient, metrics Metrics, cfg Config, logger *zap.Logger) error {
	extractResume, _, err := st.LoadCheckpoint(ctx, model.StageExtract)
	if err != nil {
		return fmt.Errorf("load extract checkpoint: %w", err)
	}
	logger.Info("pipeline: starting extract stage", zap.String("resume_txid", extractResume.LastTxID))
	if err := extractor.Run(ctx, csvInput, st, metrics.Extractor, extractResume, cfg.Extractor, logger); err != nil {
		return fmt.Errorf("extract stage: %w", err)
	}

	enrichResume, _, err := st.LoadCheckpoint(ctx, model.StageEnrich)
	if err != nil {
		return fmt.Errorf("load enrich checkpoint: %w", err)
	}
	logger.Info("pipeline: starting enrich stage", zap.String("resume_txid", enrichResume.LastTxID))
	if err := enricher.Run(ctx, st, node, metrics.Enricher, enrichResume, cfg.Enricher, logger); err != nil {
		return fmt.Errorf("enrich stage: %w", err)
	}

	classifyResume, _, err := st.LoadCheckpoint(ctx, model.StageClassify)
	if err != nil {
		return fmt.Errorf("load classify checkpoint: %w", err)
	}
	logger.Info("pipeline: starting classify stage", zap.String("resume_txid", classifyResume.LastTxID))
	if err := classifier.Run(ctx, st, metrics.Classifier, classifyResume, cfg.Classifier, logger); err != nil {
		return fmt.Errorf("classify stage: %w", err)
	}

	logger.Info("pipeline: all stages complete")
	return nil
}
