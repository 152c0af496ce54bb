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

	"github.com/goodnatureofminers/p2ms-classifier/internal/classifier"
	"github.com/goodnatureofminers/p2ms-classifier/internal/metrics"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
	"github.com/goodnatureofminers/p2ms-classifier/internal/store"
)

type config struct {
	DBPath        string `long:"db-path" env:"P2MS_CLASSIFY_DB_PATH" description:"path to the SQLite store" default:"p2ms.db"`
	MigrationsDir string `long:"migrations-dir" env:"P2MS_CLASSIFY_MIGRATIONS_DIR" description:"path to SQLite migration files" default:"internal/store/migrations"`
	BatchSize     int    `long:"batch-size" env:"P2MS_CLASSIFY_BATCH_SIZE" description:"txids per checkpoint batch" default:"500"`
	MetricsAddr   string `long:"metrics-addr" env:"P2MS_CLASSIFY_METRICS_ADDR" description:"address for metrics server" default:":2114"`
	EnableTier2   bool   `long:"enable-tier2" env:"P2MS_CLASSIFY_TIER2" description:"opt Counterparty's 2-of-2/2-of-3/3-of-3 multisig shapes into the cascade"`
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
		logger.Fatal("classifier stage failed", zap.Error(err))
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

	resume, found, err := st.LoadCheckpoint(ctx, model.StageClassify)
	if err != nil {
		return fmt.Errorf("load classify checkpoint: %w", err)
	}
	if found {
		logger.Info("resuming classify stage", zap.String("last_txid", resume.LastTxID))
	}

	classifierCfg := classifier.DefaultConfig()
	if cfg.BatchSize > 0 {
		classifierCfg.BatchSize = cfg.BatchSize
	}
	classifierCfg.EnableTier2 = cfg.EnableTier2

	return classifier.Run(ctx, st, metrics.NewClassifier(), resume, classifierCfg, logger)
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
