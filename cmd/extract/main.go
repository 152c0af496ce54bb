package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/extractor"
	"github.com/goodnatureofminers/p2ms-classifier/internal/metrics"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
	"github.com/goodnatureofminers/p2ms-classifier/internal/store"
)

type config struct {
	DBPath        string `long:"db-path" env:"P2MS_EXTRACT_DB_PATH" description:"path to the SQLite store" default:"p2ms.db"`
	MigrationsDir string `long:"migrations-dir" env:"P2MS_EXTRACT_MIGRATIONS_DIR" description:"path to SQLite migration files" default:"internal/store/migrations"`
	InputPath     string `long:"input" env:"P2MS_EXTRACT_INPUT" description:"path to the CSV UTXO dump, - for stdin" default:"-"`
	BatchSize     int    `long:"batch-size" env:"P2MS_EXTRACT_BATCH_SIZE" description:"rows per checkpoint batch" default:"5000"`
	MetricsAddr   string `long:"metrics-addr" env:"P2MS_EXTRACT_METRICS_ADDR" description:"address for metrics server" default:":2112"`
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
		logger.Fatal("extractor stage failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	if err := store.RunMigrations(cfg.DBPath, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	st, err := store.Open(cfg.DBPath, metrics.NewStore())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	input := os.Stdin
	if cfg.InputPath != "-" {
		f, err := os.Open(cfg.InputPath)
		if err != nil {
			return fmt.Errorf("open input %s: %w", cfg.InputPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		input = f
	}

	resume, found, err := st.LoadCheckpoint(ctx, model.StageExtract)
	if err != nil {
		return fmt.Errorf("load extract checkpoint: %w", err)
	}
	if found {
		logger.Info("resuming extract stage", zap.String("last_txid", resume.LastTxID), zap.Int64("byte_offset", resume.ByteOffset))
	}

	extractorCfg := extractor.DefaultConfig()
	if cfg.BatchSize > 0 {
		extractorCfg.BatchSize = cfg.BatchSize
	}

	return extractor.Run(ctx, input, st, metrics.NewExtractor(), resume, extractorCfg, logger)
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
