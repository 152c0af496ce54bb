package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/classifier"
	"github.com/goodnatureofminers/p2ms-classifier/internal/metrics"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
	"github.com/goodnatureofminers/p2ms-classifier/internal/store"
)

type config struct {
	DBPath    string `long:"db-path" env:"P2MS_DECODE_ARTIFACTS_DB_PATH" description:"path to the SQLite store" default:"p2ms.db"`
	OutputDir string `long:"output-dir" env:"P2MS_DECODE_ARTIFACTS_OUTPUT_DIR" description:"root directory decoded artifacts are written under" default:"output_data/decoded"`
	PageSize  int    `long:"page-size" env:"P2MS_DECODE_ARTIFACTS_PAGE_SIZE" description:"txids fetched per store query" default:"500"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("decode-artifacts run failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	st, err := store.Open(cfg.DBPath, metrics.NewStore())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	written, skipped := 0, 0
	lastTxID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cs, err := st.ListClassificationsSince(ctx, lastTxID, pageSize)
		if err != nil {
			return fmt.Errorf("list classifications after %q: %w", lastTxID, err)
		}
		if len(cs) == 0 {
			break
		}

		for _, c := range cs {
			ok, err := decodeOne(ctx, st, cfg.OutputDir, c, logger)
			if err != nil {
				return err
			}
			if ok {
				written++
			} else {
				skipped++
			}
		}
		lastTxID = cs[len(cs)-1].TxID
	}

	logger.Info("decode-artifacts complete", zap.Int("written", written), zap.Int("skipped", skipped))
	return nil
}

func decodeOne(ctx context.Context, st *store.Store, outputDir string, c model.TransactionClassification, logger *zap.Logger) (bool, error) {
	outputs, err := st.MultisigOutputsForTxID(ctx, c.TxID)
	if err != nil {
		return false, fmt.Errorf("load outputs for %s: %w", c.TxID, err)
	}
	if len(outputs) == 0 {
		return false, nil
	}

	tx, err := st.GetEnrichedTransaction(ctx, c.TxID)
	if err != nil {
		logger.Warn("decode-artifacts skipped, no enriched transaction", zap.String("txid", c.TxID), zap.Error(err))
		return false, nil
	}

	data, ok := classifier.DecodedArtifact(tx, outputs, c.Protocol)
	if !ok {
		return false, nil
	}

	category := classifier.ArtifactCategory(c.ContentType)
	ext := classifier.ArtifactExtension(c.ContentType)
	dir := filepath.Join(outputDir, string(c.Protocol), category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.%s", c.TxID, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write artifact %s: %w", path, err)
	}
	return true, nil
}
